package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/YangKGcsdms/Dendrite/internal/queue"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// WorkerConfig tunes the scheduled queue drainer.
type WorkerConfig struct {
	ScanInterval    time.Duration // default 5m
	InitialDelay    time.Duration // default 10s
	MaxBatchSize    int           // default types.MaxBatchSize
	ShutdownTimeout time.Duration // default 30s
}

// Worker drains the intake queue on a fixed schedule and runs each batch
// through the pipeline. A manual trigger performs the identical cycle
// synchronously. The queue's destructive pop makes double-processing
// impossible even when a manual trigger races the schedule.
type Worker struct {
	queue    queue.Queue
	pipeline *Pipeline
	cfg      WorkerConfig

	runMu  sync.Mutex // serializes cycles
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewWorker creates a worker.
func NewWorker(q queue.Queue, p *Pipeline, cfg WorkerConfig) *Worker {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Minute
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = types.MaxBatchSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return &Worker{
		queue:    q,
		pipeline: p,
		cfg:      cfg,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the scan loop in its own goroutine.
func (w *Worker) Start() {
	go w.run()
	log.Printf("Pipeline worker started (scan every %v after %v delay)", w.cfg.ScanInterval, w.cfg.InitialDelay)
}

// Stop asks the loop to exit and waits for an in-flight batch to finish,
// up to the shutdown timeout.
func (w *Worker) Stop() error {
	w.once.Do(func() { close(w.stopCh) })

	select {
	case <-w.doneCh:
		log.Println("Pipeline worker stopped gracefully")
		return nil
	case <-time.After(w.cfg.ShutdownTimeout):
		log.Printf("WARNING: shutdown timeout reached, pipeline worker may still be mid-batch")
		return errors.New("worker shutdown timed out")
	}
}

func (w *Worker) run() {
	defer close(w.doneCh)

	delay := time.NewTimer(w.cfg.InitialDelay)
	defer delay.Stop()
	select {
	case <-delay.C:
	case <-w.stopCh:
		return
	}

	ticker := time.NewTicker(w.cfg.ScanInterval)
	defer ticker.Stop()

	w.cycle()
	for {
		select {
		case <-ticker.C:
			w.cycle()
		case <-w.stopCh:
			return
		}
	}
}

// cycle runs one fetch+execute pass, swallowing any failure so the schedule
// survives.
func (w *Worker) cycle() {
	// Scheduled batches run to completion even during shutdown; Stop
	// bounds the wait instead of cancelling mid-batch.
	if _, err := w.TriggerNow(context.Background()); err != nil {
		log.Printf("ERROR: scheduled pipeline cycle failed: %v", err)
	}
}

// TriggerNow synchronously performs one fetch+execute cycle and returns its
// result. A (nil, nil) return means the queue was empty and nothing ran.
func (w *Worker) TriggerNow(ctx context.Context) (*Result, error) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	batch, err := w.fetchBatch(ctx)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, nil
	}
	return w.pipeline.Execute(ctx, batch), nil
}

// fetchBatch pops up to MaxBatchSize tasks, dropping malformed items with a
// log line. Returns nil when the queue was empty.
func (w *Worker) fetchBatch(ctx context.Context) (*types.BatchEvaluationTask, error) {
	tasks := make([]types.EvaluationTask, 0, w.cfg.MaxBatchSize)
	for len(tasks) < w.cfg.MaxBatchSize {
		task, err := w.queue.Pop(ctx)
		if errors.Is(err, queue.ErrEmpty) {
			break
		}
		if errors.Is(err, queue.ErrMalformed) {
			log.Printf("WARNING: dropped malformed queue item: %v", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil, nil
	}
	batch := types.NewBatchEvaluationTask(tasks)
	return &batch, nil
}
