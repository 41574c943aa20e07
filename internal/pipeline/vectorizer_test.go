package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/YangKGcsdms/Dendrite/internal/quota"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

func TestVectorizer_KeyedRedistribution(t *testing.T) {
	emb := &fakeEmbedder{}
	store := newFakeStore()
	g := NewBatchVectorGenerator(quota.NewGate(time.Millisecond), emb, store, store)

	skills := []*types.SkillRecord{
		{ID: 1, SkillName: "Go", Evidence: "evidence one"},
		{ID: 2, SkillName: "SQL", Evidence: "evidence two"},
	}
	profiles := []*types.TalentProfile{
		{ID: 3, EmployeeName: "alice", SummaryEN: "summary", SkillsEN: []string{"Go"}},
	}

	if err := g.Generate(context.Background(), skills, profiles); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(emb.calls) != 1 {
		t.Fatalf("expected one embedding call, got %d", len(emb.calls))
	}
	texts := emb.calls[0]
	if len(texts) != 3 {
		t.Fatalf("expected 3 texts, got %d", len(texts))
	}
	if texts[0] != skills[0].EmbeddingText() || texts[1] != skills[1].EmbeddingText() {
		t.Errorf("skill texts out of order: %q", texts)
	}
	if texts[2] != profiles[0].EmbeddingText() {
		t.Errorf("profile text misplaced: %q", texts[2])
	}

	// fakeEmbedder encodes the input index in the vector, so a stored
	// vector proves which slot it came from.
	if got := store.skillEmbeddings[2][1]; got != 2 {
		t.Errorf("skill 2 got the wrong vector: %v", store.skillEmbeddings[2])
	}
	if got := store.profileEmbeddings[3][2]; got != 3 {
		t.Errorf("profile 3 got the wrong vector: %v", store.profileEmbeddings[3])
	}
	if skills[0].Embedding == nil || profiles[0].Embedding == nil {
		t.Error("in-memory embeddings not set")
	}
}

func TestVectorizer_EmptyProfileCannotShiftOthers(t *testing.T) {
	emb := &fakeEmbedder{}
	store := newFakeStore()
	g := NewBatchVectorGenerator(quota.NewGate(time.Millisecond), emb, store, store)

	profiles := []*types.TalentProfile{
		{ID: 10, EmployeeName: "empty"}, // no summary, nothing to embed
		{ID: 11, EmployeeName: "full", SummaryEN: "works on infra"},
	}

	if err := g.Generate(context.Background(), nil, profiles); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// The empty profile is left out of the request entirely; the full
	// profile's vector is matched back by record ID, not position.
	if len(emb.calls[0]) != 1 {
		t.Fatalf("expected 1 text, got %d", len(emb.calls[0]))
	}
	if _, ok := store.profileEmbeddings[10]; ok {
		t.Error("empty profile must not receive a vector")
	}
	if got := store.profileEmbeddings[11][0]; got != 1 {
		t.Errorf("full profile got the wrong vector: %v", store.profileEmbeddings[11])
	}
	if profiles[0].Embedding != nil {
		t.Error("empty profile's in-memory embedding must stay unset")
	}
}

func TestVectorizer_NothingEmbeddableSkipsQuota(t *testing.T) {
	emb := &fakeEmbedder{}
	store := newFakeStore()
	// A gate this slow would hang the test if Acquire were called twice.
	gate := quota.NewGate(time.Hour)
	g := NewBatchVectorGenerator(gate, emb, store, store)

	profiles := []*types.TalentProfile{{ID: 1, EmployeeName: "empty"}}
	if err := g.Generate(context.Background(), nil, profiles); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := g.Generate(context.Background(), nil, profiles); err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if len(emb.calls) != 0 {
		t.Errorf("expected no embedding calls, got %d", len(emb.calls))
	}
}

func TestVectorizer_EmbeddingFailureIsNonFatal(t *testing.T) {
	emb := &fakeEmbedder{fail: true}
	store := newFakeStore()
	g := NewBatchVectorGenerator(quota.NewGate(time.Millisecond), emb, store, store)

	skills := []*types.SkillRecord{{ID: 1, SkillName: "Go", Evidence: "e"}}
	if err := g.Generate(context.Background(), skills, nil); err != nil {
		t.Fatalf("embedding failure must not be fatal: %v", err)
	}
	if len(store.skillEmbeddings) != 0 {
		t.Error("no vectors should be stored after a failed call")
	}
	if skills[0].Embedding != nil {
		t.Error("in-memory embedding must stay unset")
	}
}

func TestVectorizer_CancelledQuotaWaitIsFatal(t *testing.T) {
	emb := &fakeEmbedder{}
	store := newFakeStore()
	gate := quota.NewGate(time.Hour)
	// Burn the first grant so the next Acquire has to wait out the hour.
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatalf("priming acquire: %v", err)
	}
	g := NewBatchVectorGenerator(gate, emb, store, store)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	skills := []*types.SkillRecord{{ID: 1, SkillName: "Go", Evidence: "e"}}
	err := g.Generate(ctx, skills, nil)
	if !types.IsCode(err, types.ErrCodeQuotaInterrupted) {
		t.Fatalf("expected QUOTA_INTERRUPTED, got %v", err)
	}
	if len(emb.calls) != 0 {
		t.Error("no embedding call may happen without a quota grant")
	}
}
