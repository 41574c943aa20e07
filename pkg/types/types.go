// Package types defines the core data structures for the Dendrite talent
// system: evaluation tasks, skill records, talent profiles, evaluation tags,
// and the contributor point/level model.
package types

// Search configuration.
const (
	// DefaultSearchLimit is the number of profiles returned when the caller
	// does not specify a limit.
	DefaultSearchLimit = 5

	// SimilarityThreshold is the cosine similarity a tag must exceed
	// (strictly) against a search query for its creator to be credited.
	SimilarityThreshold = 0.7

	// QueryCacheMaxSize bounds the query expansion cache. When the cache
	// grows past this size it is flushed entirely.
	QueryCacheMaxSize = 100
)

// Batch processing.
const (
	// MaxBatchSize is the maximum number of queued tasks consumed per
	// worker cycle.
	MaxBatchSize = 10
)

// AI configuration.
const (
	// VectorDimension is the fixed embedding width.
	VectorDimension = 768
)

// Validation bounds for evaluation submissions.
const (
	MinEmployeeNameLength = 1
	MaxEmployeeNameLength = 100
	MinContentLength      = 10
	MaxContentLength      = 5000
)
