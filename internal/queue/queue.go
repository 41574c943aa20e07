// Package queue provides the durable evaluation intake queue. Submissions
// are accepted immediately and drained later by the batch pipeline worker,
// so a process restart never loses accepted work.
package queue

import (
	"context"
	"errors"

	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

var (
	// ErrEmpty is returned by Pop when the queue holds no tasks.
	ErrEmpty = errors.New("queue is empty")

	// ErrMalformed is returned by Pop when a stored item cannot be decoded.
	// The item has already been removed: delivery is at-most-once and a
	// corrupt payload is dropped, not retried forever.
	ErrMalformed = errors.New("queue item is malformed")
)

// Queue is a durable FIFO of evaluation tasks.
type Queue interface {
	// Push appends a task to the queue.
	Push(ctx context.Context, task types.EvaluationTask) error

	// Pop removes and returns the oldest task. Returns ErrEmpty when there
	// is nothing to do and ErrMalformed when the stored payload is corrupt
	// (the payload is discarded either way).
	Pop(ctx context.Context) (types.EvaluationTask, error)

	// Size returns the number of queued tasks.
	Size(ctx context.Context) (int, error)

	// Close releases the underlying resources.
	Close() error
}
