package progress

import (
	"sync"
	"testing"
	"time"
)

func TestTracker_StartAndGet(t *testing.T) {
	tr := NewTracker()

	id := tr.Start("排队中", "Queued")
	if id == "" {
		t.Fatal("Start returned empty task ID")
	}

	update, ok := tr.Get(id)
	if !ok {
		t.Fatal("task not found after Start")
	}
	if update.Status != StatusProcessing || update.Percent != 0 {
		t.Errorf("unexpected initial update: %+v", update)
	}
	if update.MessageEN != "Queued" || update.MessageZH != "排队中" {
		t.Errorf("bilingual messages lost: %+v", update)
	}
}

func TestTracker_PublishOverwrites(t *testing.T) {
	tr := NewTracker()
	id := tr.Start("开始", "Started")

	tr.Publish(id, StatusProcessing, "提取技能中", "Extracting skills", 30)
	tr.Publish(id, StatusCompleted, "完成", "Done", 100)

	update, ok := tr.Get(id)
	if !ok {
		t.Fatal("task not found")
	}
	if update.Status != StatusCompleted || update.Percent != 100 {
		t.Errorf("expected final update, got %+v", update)
	}
}

func TestTracker_Broadcast(t *testing.T) {
	var (
		mu      sync.Mutex
		updates []Update
	)
	tr := NewTracker(WithBroadcast(func(u Update) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	}))

	id := tr.Start("开始", "Started")
	tr.Publish(id, StatusCompleted, "完成", "Done", 100)

	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 2 {
		t.Fatalf("expected 2 broadcast updates, got %d", len(updates))
	}
	if updates[1].Status != StatusCompleted {
		t.Errorf("unexpected final broadcast: %+v", updates[1])
	}
}

func TestTracker_FinishedTasksExpire(t *testing.T) {
	tr := NewTracker(WithRetention(time.Nanosecond))

	done := tr.Start("完成", "Done")
	tr.Publish(done, StatusCompleted, "完成", "Done", 100)
	running := tr.Start("运行中", "Running")

	time.Sleep(time.Millisecond)
	// Any publish triggers the sweep.
	tr.Publish(running, StatusProcessing, "运行中", "Running", 50)

	if _, ok := tr.Get(done); ok {
		t.Error("finished task should have been swept")
	}
	if _, ok := tr.Get(running); !ok {
		t.Error("running task must never be swept")
	}
}

func TestTracker_UnknownTask(t *testing.T) {
	tr := NewTracker()
	if _, ok := tr.Get("no-such-task"); ok {
		t.Error("expected lookup miss for unknown task")
	}
}
