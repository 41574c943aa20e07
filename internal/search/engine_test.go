package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/YangKGcsdms/Dendrite/internal/quota"
	"github.com/YangKGcsdms/Dendrite/internal/storage"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	err     error
	// respond overrides the default canned response when set.
	respond func(prompt string) string
}

func (f *fakeGenerator) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.respond != nil {
		return f.respond(prompt), nil
	}
	return "expanded: " + prompt, nil
}

func (f *fakeGenerator) GetModel() string { return "fake" }

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEmbedder struct {
	mu    sync.Mutex
	texts []string
	err   error
	vec   []float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.vec != nil {
		return f.vec, nil
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) GetModel() string { return "fake-embed" }

func (f *fakeEmbedder) embedded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// fakeProfiles ranks from a canned result list, optionally per query count.
type fakeProfiles struct {
	mu      sync.Mutex
	ranked  []storage.RankedProfile
	limits  []int
	rankErr error
}

func (f *fakeProfiles) UpsertProfile(context.Context, *types.TalentProfile) error { return nil }
func (f *fakeProfiles) ProfileByEmployee(context.Context, string) (*types.TalentProfile, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeProfiles) UpdateProfileEmbedding(context.Context, int64, []float64) error { return nil }

func (f *fakeProfiles) RankProfiles(_ context.Context, _ []float64, limit int) ([]storage.RankedProfile, error) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if f.rankErr != nil {
		return nil, f.rankErr
	}
	if len(f.ranked) > limit {
		return f.ranked[:limit], nil
	}
	return f.ranked, nil
}

func newTestEngine(t *testing.T, gen *fakeGenerator, emb *fakeEmbedder, profiles *fakeProfiles, expansion bool) *Engine {
	t.Helper()
	e, err := NewEngine(gen, emb, quota.NewGate(time.Millisecond), profiles, 4, expansion)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestSearch_DefaultLimit(t *testing.T) {
	profiles := &fakeProfiles{ranked: []storage.RankedProfile{{EmployeeName: "alice", Similarity: 0.92}}}
	e := newTestEngine(t, &fakeGenerator{}, &fakeEmbedder{}, profiles, false)

	got, err := e.Search(context.Background(), "golang expert", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].EmployeeName != "alice" {
		t.Errorf("unexpected results: %+v", got)
	}
	if profiles.limits[0] != types.DefaultSearchLimit {
		t.Errorf("limit = %d, want default %d", profiles.limits[0], types.DefaultSearchLimit)
	}
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	e := newTestEngine(t, &fakeGenerator{}, &fakeEmbedder{}, &fakeProfiles{}, false)
	_, err := e.Search(context.Background(), "   ", 5)
	if !types.IsCode(err, types.ErrCodeValidation) {
		t.Errorf("expected VALIDATION, got %v", err)
	}
}

func TestSearch_ExpansionDisabledMakesNoModelCall(t *testing.T) {
	gen := &fakeGenerator{}
	emb := &fakeEmbedder{}
	e := newTestEngine(t, gen, emb, &fakeProfiles{}, false)

	if _, err := e.Search(context.Background(), "golang expert", 5); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gen.callCount() != 0 {
		t.Errorf("economy mode made %d model calls, want 0", gen.callCount())
	}
	if texts := emb.embedded(); len(texts) != 1 || texts[0] != "golang expert" {
		t.Errorf("raw query must be embedded verbatim, got %v", texts)
	}
}

func TestSearch_ExpansionUsedAndCached(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) string { return "a senior Go engineer" }}
	emb := &fakeEmbedder{}
	e := newTestEngine(t, gen, emb, &fakeProfiles{}, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.Search(ctx, "golang expert", 5); err != nil {
			t.Fatalf("Search %d: %v", i, err)
		}
	}

	if gen.callCount() != 1 {
		t.Errorf("expected 1 expansion call for a repeated query, got %d", gen.callCount())
	}
	for _, text := range emb.embedded() {
		if text != "a senior Go engineer" {
			t.Errorf("expected the expanded text to be embedded, got %q", text)
		}
	}
}

func TestSearch_ExpansionFailureFallsBackToRawQuery(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model down")}
	emb := &fakeEmbedder{}
	e := newTestEngine(t, gen, emb, &fakeProfiles{}, true)

	if _, err := e.Search(context.Background(), "golang expert", 5); err != nil {
		t.Fatalf("expansion failure must not fail the search: %v", err)
	}
	if texts := emb.embedded(); texts[0] != "golang expert" {
		t.Errorf("expected raw query fallback, got %q", texts[0])
	}

	// The failure was not cached: the next search tries expansion again.
	_, _ = e.Search(context.Background(), "golang expert", 5)
	if gen.callCount() != 2 {
		t.Errorf("failed expansions must not be cached, got %d calls", gen.callCount())
	}
}

func TestSearch_CacheFullFlush(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) string { return "expanded" }}
	e := newTestEngine(t, gen, &fakeEmbedder{}, &fakeProfiles{}, true)
	ctx := context.Background()

	for i := 0; i < types.QueryCacheMaxSize; i++ {
		if _, err := e.Search(ctx, fmt.Sprintf("query %d", i), 5); err != nil {
			t.Fatalf("Search %d: %v", i, err)
		}
	}
	if got := len(e.cache); got != types.QueryCacheMaxSize {
		t.Fatalf("cache size = %d, want %d", got, types.QueryCacheMaxSize)
	}

	// The next distinct query flushes everything and re-caches only itself.
	if _, err := e.Search(ctx, "the straw", 5); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := len(e.cache); got != 1 {
		t.Errorf("cache size after flush = %d, want 1", got)
	}
	if _, ok := e.cache["the straw"]; !ok {
		t.Error("the flushing query itself must be cached")
	}
}

func TestSetQueryExpansion_TakesEffectImmediately(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) string { return "expanded" }}
	e := newTestEngine(t, gen, &fakeEmbedder{}, &fakeProfiles{}, true)
	ctx := context.Background()

	e.SetQueryExpansion(false)
	if e.QueryExpansionEnabled() {
		t.Fatal("toggle did not stick")
	}
	_, _ = e.Search(ctx, "anything", 5)
	if gen.callCount() != 0 {
		t.Errorf("expansion ran while disabled: %d calls", gen.callCount())
	}

	e.SetQueryExpansion(true)
	_, _ = e.Search(ctx, "anything", 5)
	if gen.callCount() != 1 {
		t.Errorf("expansion did not resume: %d calls", gen.callCount())
	}
}

func TestAsk_CarriesOriginalQueryAndMatches(t *testing.T) {
	gen := &fakeGenerator{respond: func(prompt string) string {
		if strings.Contains(prompt, "recommendation assistant") {
			return "Alice is the best fit."
		}
		return "expanded text"
	}}
	profiles := &fakeProfiles{ranked: []storage.RankedProfile{
		{EmployeeName: "alice", Summary: "Go and Redis", Similarity: 0.91},
	}}
	e := newTestEngine(t, gen, &fakeEmbedder{}, profiles, true)

	answer, matches, err := e.Ask(context.Background(), "who knows Redis?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "Alice is the best fit." {
		t.Errorf("answer = %q", answer)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}

	gen.mu.Lock()
	recommendation := gen.prompts[len(gen.prompts)-1]
	gen.mu.Unlock()
	if !strings.Contains(recommendation, "who knows Redis?") {
		t.Error("recommendation prompt must carry the original query, not the expansion")
	}
	if !strings.Contains(recommendation, "alice") {
		t.Error("recommendation prompt missing the matched profile")
	}
}

func TestBatchSearch_PreservesInputOrder(t *testing.T) {
	profiles := &fakeProfiles{ranked: []storage.RankedProfile{{EmployeeName: "alice"}}}
	e := newTestEngine(t, &fakeGenerator{}, &fakeEmbedder{}, profiles, false)

	queries := make([]string, 20)
	for i := range queries {
		queries[i] = fmt.Sprintf("query %d", i)
	}
	results := e.BatchSearch(context.Background(), queries, 3)

	if len(results) != len(queries) {
		t.Fatalf("got %d results for %d queries", len(results), len(queries))
	}
	for i, r := range results {
		if r.Query != queries[i] {
			t.Errorf("slot %d holds %q, want %q", i, r.Query, queries[i])
		}
		if r.Error != "" {
			t.Errorf("query %d failed: %s", i, r.Error)
		}
	}
}

func TestBatchSearch_IsolatesFailures(t *testing.T) {
	e := newTestEngine(t, &fakeGenerator{}, &fakeEmbedder{}, &fakeProfiles{}, false)

	results := e.BatchSearch(context.Background(), []string{"fine", "", "also fine"}, 3)
	if results[0].Error != "" || results[2].Error != "" {
		t.Errorf("healthy queries must succeed: %+v", results)
	}
	if results[1].Error == "" {
		t.Error("empty query must fail in its own slot")
	}
}

func TestBatchAsk_PreservesInputOrder(t *testing.T) {
	gen := &fakeGenerator{respond: func(prompt string) string { return "answer" }}
	e := newTestEngine(t, gen, &fakeEmbedder{}, &fakeProfiles{}, false)

	results := e.BatchAsk(context.Background(), []string{"q1", "q2", "q3"})
	for i, want := range []string{"q1", "q2", "q3"} {
		if results[i].Query != want {
			t.Errorf("slot %d holds %q, want %q", i, results[i].Query, want)
		}
		if results[i].Answer != "answer" {
			t.Errorf("slot %d answer = %q", i, results[i].Answer)
		}
	}
}
