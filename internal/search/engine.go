// Package search implements attribution-weighted semantic search over
// talent profiles: optional AI query expansion, embedding under the shared
// quota gate, pgvector ranking, natural-language recommendations, and
// concurrent batch variants on a bounded worker pool.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/YangKGcsdms/Dendrite/internal/llm"
	"github.com/YangKGcsdms/Dendrite/internal/quota"
	"github.com/YangKGcsdms/Dendrite/internal/storage"
	"github.com/YangKGcsdms/Dendrite/internal/vector"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// Engine answers talent search queries.
type Engine struct {
	generator llm.TextGenerator
	embedder  llm.EmbeddingGenerator
	gate      *quota.Gate
	profiles  storage.ProfileStore
	pool      *ants.Pool

	expansion atomic.Bool

	// cacheMu guards cache, keyed by the literal query string.
	cacheMu sync.Mutex
	cache   map[string]string
}

// NewEngine creates a search engine with a worker pool of poolSize
// goroutines for the batch endpoints.
func NewEngine(generator llm.TextGenerator, embedder llm.EmbeddingGenerator, gate *quota.Gate, profiles storage.ProfileStore, poolSize int, expansionEnabled bool) (*Engine, error) {
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("creating search pool: %w", err)
	}

	e := &Engine{
		generator: generator,
		embedder:  embedder,
		gate:      gate,
		profiles:  profiles,
		pool:      pool,
		cache:     make(map[string]string),
	}
	e.expansion.Store(expansionEnabled)
	return e, nil
}

// Close releases the worker pool.
func (e *Engine) Close() {
	e.pool.Release()
}

// SetQueryExpansion toggles AI query expansion process-wide, effective
// immediately for every caller including in-flight batches that have not
// yet expanded their query.
func (e *Engine) SetQueryExpansion(enabled bool) {
	e.expansion.Store(enabled)
	log.Printf("Query expansion set to %v", enabled)
}

// QueryExpansionEnabled reports the current toggle state.
func (e *Engine) QueryExpansionEnabled() bool {
	return e.expansion.Load()
}

// Search embeds the (optionally expanded) query and returns the most
// similar profiles, best first. A limit below 1 falls back to the default.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]storage.RankedProfile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.NewError(types.ErrCodeValidation, "search query is required")
	}
	if limit < 1 {
		limit = types.DefaultSearchLimit
	}

	text := query
	if e.expansion.Load() {
		text = e.expandQuery(ctx, query)
	}

	if err := e.gate.Acquire(ctx); err != nil {
		return nil, types.WrapError(types.ErrCodeQuotaInterrupted, err, "quota wait aborted")
	}
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeAICallFailed, err, "embedding search query")
	}

	ranked, err := e.profiles.RankProfiles(ctx, vector.ToFloat64s(vec), limit)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeInternal, err, "ranking profiles")
	}
	return ranked, nil
}

// Ask runs a search and has the model recommend the best fit in natural
// language. The recommendation prompt carries the user's original query, not
// the expanded one. An empty result set still gets an answer: the model is
// told it may honestly report that nobody matches.
func (e *Engine) Ask(ctx context.Context, query string) (string, []storage.RankedProfile, error) {
	ranked, err := e.Search(ctx, query, types.DefaultSearchLimit)
	if err != nil {
		return "", nil, err
	}

	matches := make([]string, len(ranked))
	for i, r := range ranked {
		matches[i] = fmt.Sprintf("%s (similarity %.2f): %s", r.EmployeeName, r.Similarity, r.Summary)
	}

	answer, err := e.generator.Complete(ctx, llm.BuildRecommendationPrompt(query, matches))
	if err != nil {
		return "", nil, types.WrapError(types.ErrCodeAICallFailed, err, "generating recommendation")
	}
	return answer, ranked, nil
}

// expandQuery rewrites a terse query into richer text for embedding. The
// result is cached by the literal query; a model failure falls back to the
// raw query without caching.
func (e *Engine) expandQuery(ctx context.Context, query string) string {
	e.cacheMu.Lock()
	if cached, ok := e.cache[query]; ok {
		e.cacheMu.Unlock()
		return cached
	}
	e.cacheMu.Unlock()

	expanded, err := e.generator.Complete(ctx, llm.BuildExpansionPrompt(query))
	if err != nil {
		log.Printf("WARNING: query expansion failed, using raw query: %v", err)
		return query
	}
	expanded = strings.TrimSpace(expanded)
	if expanded == "" {
		return query
	}

	e.cacheMu.Lock()
	if len(e.cache) >= types.QueryCacheMaxSize {
		// Full flush. The cache is a cheap memo, not an LRU.
		e.cache = make(map[string]string)
	}
	e.cache[query] = expanded
	e.cacheMu.Unlock()
	return expanded
}

// BatchSearchResult pairs one batch query with its outcome.
type BatchSearchResult struct {
	Query   string                  `json:"query"`
	Matches []storage.RankedProfile `json:"matches,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// BatchAskResult pairs one batch question with its recommendation.
type BatchAskResult struct {
	Query   string                  `json:"query"`
	Answer  string                  `json:"answer,omitempty"`
	Matches []storage.RankedProfile `json:"matches,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// BatchSearch runs the queries concurrently on the worker pool and returns
// results in input order. One query's failure is recorded in its slot and
// never affects the others. When the pool is saturated the overflow query
// runs on the calling goroutine, so submission never blocks behind the pool.
func (e *Engine) BatchSearch(ctx context.Context, queries []string, limit int) []BatchSearchResult {
	results := make([]BatchSearchResult, len(queries))
	var wg sync.WaitGroup

	for i, query := range queries {
		i, query := i, query
		run := func() {
			defer wg.Done()
			results[i].Query = query
			matches, err := e.Search(ctx, query, limit)
			if err != nil {
				results[i].Error = err.Error()
				return
			}
			results[i].Matches = matches
		}

		wg.Add(1)
		if err := e.pool.Submit(run); err != nil {
			if !errors.Is(err, ants.ErrPoolOverload) {
				log.Printf("WARNING: pool submit failed, running inline: %v", err)
			}
			run()
		}
	}

	wg.Wait()
	return results
}

// BatchAsk is BatchSearch for the recommendation flavor.
func (e *Engine) BatchAsk(ctx context.Context, queries []string) []BatchAskResult {
	results := make([]BatchAskResult, len(queries))
	var wg sync.WaitGroup

	for i, query := range queries {
		i, query := i, query
		run := func() {
			defer wg.Done()
			results[i].Query = query
			answer, matches, err := e.Ask(ctx, query)
			if err != nil {
				results[i].Error = err.Error()
				return
			}
			results[i].Answer = answer
			results[i].Matches = matches
		}

		wg.Add(1)
		if err := e.pool.Submit(run); err != nil {
			if !errors.Is(err, ants.ErrPoolOverload) {
				log.Printf("WARNING: pool submit failed, running inline: %v", err)
			}
			run()
		}
	}

	wg.Wait()
	return results
}
