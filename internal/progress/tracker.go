// Package progress tracks the state of real-time evaluation processing so
// clients can poll (or subscribe over WebSocket) while the pipeline runs.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status of a tracked task.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Update is one progress snapshot. Messages are bilingual: the UI picks the
// language, the tracker always carries both.
type Update struct {
	TaskID    string    `json:"task_id"`
	Status    Status    `json:"status"`
	MessageZH string    `json:"message_zh"`
	MessageEN string    `json:"message_en"`
	Percent   int       `json:"percent"`
	UpdatedAt time.Time `json:"updated_at"`
}

// defaultRetention is how long finished tasks stay queryable.
const defaultRetention = 10 * time.Minute

// Tracker stores the latest update per task and fans updates out to an
// optional broadcast hook (the WebSocket hub in production).
type Tracker struct {
	mu        sync.RWMutex
	tasks     map[string]Update
	retention time.Duration
	broadcast func(Update)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRetention overrides how long finished tasks are kept.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) { t.retention = d }
}

// WithBroadcast registers a hook invoked on every update, outside the lock.
func WithBroadcast(fn func(Update)) Option {
	return func(t *Tracker) { t.broadcast = fn }
}

// NewTracker creates a tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		tasks:     make(map[string]Update),
		retention: defaultRetention,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetBroadcast installs the broadcast hook after construction. The hub is
// built by the server layer, which itself needs the tracker, so the hook
// arrives late.
func (t *Tracker) SetBroadcast(fn func(Update)) {
	t.mu.Lock()
	t.broadcast = fn
	t.mu.Unlock()
}

// Start registers a new task and returns its ID.
func (t *Tracker) Start(messageZH, messageEN string) string {
	id := uuid.NewString()
	t.Publish(id, StatusProcessing, messageZH, messageEN, 0)
	return id
}

// Publish records a progress update for a task and notifies subscribers.
func (t *Tracker) Publish(taskID string, status Status, messageZH, messageEN string, percent int) {
	update := Update{
		TaskID:    taskID,
		Status:    status,
		MessageZH: messageZH,
		MessageEN: messageEN,
		Percent:   percent,
		UpdatedAt: time.Now(),
	}

	t.mu.Lock()
	t.tasks[taskID] = update
	t.sweepLocked()
	broadcast := t.broadcast
	t.mu.Unlock()

	if broadcast != nil {
		broadcast(update)
	}
}

// Get returns the latest update for a task.
func (t *Tracker) Get(taskID string) (Update, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	update, ok := t.tasks[taskID]
	return update, ok
}

// sweepLocked drops finished tasks older than the retention window.
// Caller holds t.mu.
func (t *Tracker) sweepLocked() {
	cutoff := time.Now().Add(-t.retention)
	for id, update := range t.tasks {
		if update.Status == StatusProcessing {
			continue
		}
		if update.UpdatedAt.Before(cutoff) {
			delete(t.tasks, id)
		}
	}
}
