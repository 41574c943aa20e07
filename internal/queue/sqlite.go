package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// envelopeVersion is bumped whenever the payload layout changes. Items with
// an unknown version are treated as malformed and dropped.
const envelopeVersion = 1

// envelope wraps a task with a version so old payloads fail loudly instead
// of decoding into garbage.
type envelope struct {
	Version int                  `json:"version"`
	Task    types.EvaluationTask `json:"task"`
}

// SQLiteQueue is a durable FIFO backed by a local SQLite file. Row IDs are
// monotonically increasing, which gives arrival order for free.
type SQLiteQueue struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS dendrite_queue (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    payload TEXT NOT NULL,
    enqueued_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// NewSQLiteQueue opens (or creates) the queue database at path.
// Use ":memory:" for an ephemeral queue in tests.
func NewSQLiteQueue(path string) (*SQLiteQueue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("queue: failed to open database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY under concurrent pushes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("queue: failed to apply schema: %w", err)
	}

	return &SQLiteQueue{db: db}, nil
}

// Push appends a task to the queue.
func (q *SQLiteQueue) Push(ctx context.Context, task types.EvaluationTask) error {
	payload, err := json.Marshal(envelope{Version: envelopeVersion, Task: task})
	if err != nil {
		return fmt.Errorf("queue: failed to encode task: %w", err)
	}

	if _, err := q.db.ExecContext(ctx,
		`INSERT INTO dendrite_queue (payload) VALUES (?)`, string(payload)); err != nil {
		return fmt.Errorf("queue: failed to enqueue task: %w", err)
	}
	return nil
}

// Pop removes and returns the oldest task. The removal is destructive before
// decoding: a payload that cannot be decoded is already gone and reported as
// ErrMalformed so the caller can log and move on.
func (q *SQLiteQueue) Pop(ctx context.Context) (types.EvaluationTask, error) {
	const query = `
		DELETE FROM dendrite_queue
		WHERE id = (SELECT id FROM dendrite_queue ORDER BY id LIMIT 1)
		RETURNING payload`

	var payload string
	err := q.db.QueryRowContext(ctx, query).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return types.EvaluationTask{}, ErrEmpty
	}
	if err != nil {
		return types.EvaluationTask{}, fmt.Errorf("queue: failed to dequeue task: %w", err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return types.EvaluationTask{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Version != envelopeVersion {
		return types.EvaluationTask{}, fmt.Errorf("%w: unknown envelope version %d", ErrMalformed, env.Version)
	}
	return env.Task, nil
}

// Size returns the number of queued tasks.
func (q *SQLiteQueue) Size(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dendrite_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("queue: failed to count tasks: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (q *SQLiteQueue) Close() error {
	return q.db.Close()
}

// Compile-time assertion.
var _ Queue = (*SQLiteQueue)(nil)
