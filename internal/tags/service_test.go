package tags

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/YangKGcsdms/Dendrite/internal/quota"
	"github.com/YangKGcsdms/Dendrite/internal/reward"
	"github.com/YangKGcsdms/Dendrite/internal/storage"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Complete(context.Context, string) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeGenerator) GetModel() string { return "fake" }

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vec, err := f.Embed(ctx, texts[0])
	if err != nil {
		return nil, err
	}
	return [][]float32{vec}, nil
}

func (f *fakeEmbedder) GetModel() string { return "fake-embed" }

// fakeStore backs both the tag store and the ledger's stores.
type fakeStore struct {
	mu           sync.Mutex
	tags         []*types.EvaluationTag
	contributors map[string]*types.ContributorProfile
	rewards      []*types.RewardRecord
	nextID       int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{contributors: make(map[string]*types.ContributorProfile)}
}

func (f *fakeStore) SaveTag(_ context.Context, tag *types.EvaluationTag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	tag.ID = f.nextID
	tag.CreatedAt = time.Now()
	copied := *tag
	f.tags = append(f.tags, &copied)
	return nil
}

func (f *fakeStore) TagsByTarget(_ context.Context, target string) ([]*types.EvaluationTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.EvaluationTag{}
	for _, t := range f.tags {
		if t.TargetEmployee == target {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveInteraction(_ context.Context, in *types.TagInteraction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	in.ID = f.nextID
	return nil
}

func (f *fakeStore) ContributorByEmployee(_ context.Context, employee string) (*types.ContributorProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contributors[employee]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeStore) InsertContributor(_ context.Context, c *types.ContributorProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	copied := *c
	f.contributors[c.EmployeeName] = &copied
	return nil
}

func (f *fakeStore) UpdateContributor(_ context.Context, c *types.ContributorProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.contributors[c.EmployeeName]
	if !ok || stored.Version != c.Version {
		return storage.ErrVersionConflict
	}
	copied := *c
	copied.Version++
	f.contributors[c.EmployeeName] = &copied
	c.Version++
	return nil
}

func (f *fakeStore) AppendReward(_ context.Context, r *types.RewardRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	copied := *r
	f.rewards = append(f.rewards, &copied)
	return nil
}

func (f *fakeStore) RewardsByEmployee(_ context.Context, employee string) ([]*types.RewardRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.RewardRecord{}
	for _, r := range f.rewards {
		if r.EmployeeName == employee {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func newTestService(gen *fakeGenerator, emb *fakeEmbedder, store *fakeStore) *Service {
	ledger := reward.NewLedger(store, store)
	return NewService(gen, emb, quota.NewGate(time.Millisecond), store, ledger)
}

func TestSubmitTag_HappyPath(t *testing.T) {
	gen := &fakeGenerator{response: "COMMUNICATION"}
	emb := &fakeEmbedder{}
	store := newFakeStore()
	svc := newTestService(gen, emb, store)

	tag, err := svc.SubmitTag(context.Background(), "alice", "bob", "great mentor", "helped onboard three juniors")
	if err != nil {
		t.Fatalf("SubmitTag: %v", err)
	}

	if tag.ID == 0 {
		t.Error("tag not persisted")
	}
	if tag.StandardizedCategory != types.CompetencyCommunication {
		t.Errorf("category = %s, want COMMUNICATION", tag.StandardizedCategory)
	}
	if tag.Weight != types.BaseTagWeight {
		t.Errorf("level-1 contributor weight = %v, want %v", tag.Weight, types.BaseTagWeight)
	}
	if len(tag.Embedding) == 0 {
		t.Error("expected an embedding")
	}

	contributor, err := store.ContributorByEmployee(context.Background(), "alice")
	if err != nil {
		t.Fatalf("contributor missing: %v", err)
	}
	if contributor.CurrentPoints != types.EvaluationSubmitReward {
		t.Errorf("points = %d, want %d", contributor.CurrentPoints, types.EvaluationSubmitReward)
	}
	if contributor.TotalTagsSubmitted != 1 {
		t.Errorf("TotalTagsSubmitted = %d, want 1", contributor.TotalTagsSubmitted)
	}

	rewards, _ := store.RewardsByEmployee(context.Background(), "alice")
	if len(rewards) != 1 || !strings.Contains(rewards[0].Reason, "great mentor") {
		t.Errorf("unexpected reward history: %+v", rewards)
	}
}

func TestSubmitTag_WeightFixedByLevelAtSubmission(t *testing.T) {
	store := newFakeStore()
	_ = store.InsertContributor(context.Background(), &types.ContributorProfile{
		EmployeeName:           "veteran",
		CurrentPoints:          350,
		TotalAccumulatedPoints: 350,
		Level:                  4,
	})
	svc := newTestService(&fakeGenerator{response: "PROBLEM_SOLVING"}, &fakeEmbedder{}, store)

	tag, err := svc.SubmitTag(context.Background(), "veteran", "bob", "debugging wizard", "")
	if err != nil {
		t.Fatalf("SubmitTag: %v", err)
	}
	want := types.TagWeight(4)
	if tag.Weight != want {
		t.Errorf("weight = %v, want %v", tag.Weight, want)
	}
}

func TestSubmitTag_ClassificationFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model down")}
	store := newFakeStore()
	svc := newTestService(gen, &fakeEmbedder{}, store)

	tag, err := svc.SubmitTag(context.Background(), "alice", "bob", "Kubernetes", "runs the cluster")
	if err != nil {
		t.Fatalf("classification failure must not reject the tag: %v", err)
	}
	if tag.StandardizedCategory != types.CompetencyHardSkillGeneral {
		t.Errorf("category = %s, want HARD_SKILL_GENERAL", tag.StandardizedCategory)
	}
}

func TestSubmitTag_UnrecognizedCategoryFallsBack(t *testing.T) {
	gen := &fakeGenerator{response: "SOMETHING_THE_MODEL_MADE_UP"}
	svc := newTestService(gen, &fakeEmbedder{}, newFakeStore())

	tag, err := svc.SubmitTag(context.Background(), "alice", "bob", "mystery", "")
	if err != nil {
		t.Fatalf("SubmitTag: %v", err)
	}
	if tag.StandardizedCategory != types.CompetencyHardSkillGeneral {
		t.Errorf("category = %s, want HARD_SKILL_GENERAL", tag.StandardizedCategory)
	}
}

func TestSubmitTag_EmbeddingFailureSavesWithoutVector(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("embedding down")}
	store := newFakeStore()
	svc := newTestService(&fakeGenerator{response: "RESILIENCE"}, emb, store)

	tag, err := svc.SubmitTag(context.Background(), "alice", "bob", "keeps calm", "production incidents")
	if err != nil {
		t.Fatalf("embedding failure must not reject the tag: %v", err)
	}
	if tag.Embedding != nil {
		t.Error("expected no embedding")
	}
	if tag.ID == 0 {
		t.Error("tag must still be persisted")
	}
}

func TestSubmitTag_Validation(t *testing.T) {
	svc := newTestService(&fakeGenerator{response: "COMMUNICATION"}, &fakeEmbedder{}, newFakeStore())
	ctx := context.Background()

	cases := []struct {
		name    string
		creator string
		target  string
		rawTag  string
	}{
		{"missing creator", "", "bob", "tag"},
		{"missing target", "alice", "  ", "tag"},
		{"missing tag name", "alice", "bob", " "},
		{"creator too long", strings.Repeat("x", types.MaxEmployeeNameLength+1), "bob", "tag"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SubmitTag(ctx, tc.creator, tc.target, tc.rawTag, "")
			if !types.IsCode(err, types.ErrCodeValidation) {
				t.Errorf("expected VALIDATION, got %v", err)
			}
		})
	}
}
