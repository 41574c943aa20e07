package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/YangKGcsdms/Dendrite/internal/storage"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// testStore opens a store against the database named by
// DENDRITE_TEST_POSTGRES_DSN, skipping when it is unset. These tests need a
// real Postgres with pgvector; they don't run in plain CI.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DENDRITE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DENDRITE_TEST_POSTGRES_DSN not set; skipping postgres integration tests")
	}
	s, err := NewStore(dsn)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSkillRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	skills := []*types.SkillRecord{
		{EmployeeName: "it-alice", SkillName: "Go", Proficiency: types.ProficiencyExpert, Evidence: "rebuilt the ingest service"},
		{EmployeeName: "it-alice", SkillName: "SQL", Proficiency: types.ProficiencyCompetent, Evidence: "query tuning"},
	}
	if err := s.SaveSkills(ctx, skills); err != nil {
		t.Fatalf("SaveSkills failed: %v", err)
	}
	for _, skill := range skills {
		if skill.ID == 0 {
			t.Error("SaveSkills did not fill in the generated ID")
		}
	}

	got, err := s.SkillsByEmployee(ctx, "it-alice")
	if err != nil {
		t.Fatalf("SkillsByEmployee failed: %v", err)
	}
	if len(got) < 2 {
		t.Fatalf("expected at least 2 skills, got %d", len(got))
	}

	emb := make([]float64, types.VectorDimension)
	emb[0] = 1
	if err := s.UpdateSkillEmbedding(ctx, skills[0].ID, emb); err != nil {
		t.Fatalf("UpdateSkillEmbedding failed: %v", err)
	}
	if err := s.UpdateSkillEmbedding(ctx, -1, emb); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing skill, got %v", err)
	}
}

func TestProfileUpsertAndRank(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	profile := &types.TalentProfile{
		EmployeeName: "it-bob",
		SummaryZH:    "资深后端工程师",
		SummaryEN:    "Senior backend engineer",
		SkillsZH:     []string{"后端开发"},
		SkillsEN:     []string{"Backend Development"},
	}
	if err := s.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}

	// Second upsert for the same employee must update, not duplicate.
	profile.SummaryEN = "Principal backend engineer"
	if err := s.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("second UpsertProfile failed: %v", err)
	}

	got, err := s.ProfileByEmployee(ctx, "it-bob")
	if err != nil {
		t.Fatalf("ProfileByEmployee failed: %v", err)
	}
	if got.SummaryEN != "Principal backend engineer" {
		t.Errorf("upsert did not update summary: %q", got.SummaryEN)
	}

	emb := make([]float64, types.VectorDimension)
	emb[0] = 1
	if err := s.UpdateProfileEmbedding(ctx, got.ID, emb); err != nil {
		t.Fatalf("UpdateProfileEmbedding failed: %v", err)
	}

	ranked, err := s.RankProfiles(ctx, emb, 5)
	if err != nil {
		t.Fatalf("RankProfiles failed: %v", err)
	}
	if len(ranked) == 0 {
		t.Fatal("expected at least one ranked profile")
	}

	if _, err := s.ProfileByEmployee(ctx, "it-nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing profile, got %v", err)
	}
}

func TestContributorOptimisticLock(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := &types.ContributorProfile{EmployeeName: "it-carol", Level: 1}
	if err := s.InsertContributor(ctx, c); err != nil {
		t.Fatalf("InsertContributor failed: %v", err)
	}

	stale := *c

	c.CurrentPoints = 50
	c.TotalAccumulatedPoints = 50
	if err := s.UpdateContributor(ctx, c); err != nil {
		t.Fatalf("UpdateContributor failed: %v", err)
	}

	// The stale copy still carries the old version and must lose.
	stale.CurrentPoints = 10
	if err := s.UpdateContributor(ctx, &stale); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict for stale update, got %v", err)
	}
}

func TestTagAndRewardRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tag := &types.EvaluationTag{
		CreatorEmployee:      "it-carol",
		TargetEmployee:       "it-alice",
		RawTagName:           "debugging wizard",
		Context:              "found the leak in an afternoon",
		StandardizedCategory: types.CompetencyProblemSolving,
		Weight:               1.25,
	}
	if err := s.SaveTag(ctx, tag); err != nil {
		t.Fatalf("SaveTag failed: %v", err)
	}

	tags, err := s.TagsByTarget(ctx, "it-alice")
	if err != nil {
		t.Fatalf("TagsByTarget failed: %v", err)
	}
	if len(tags) == 0 {
		t.Fatal("expected at least one tag")
	}

	interaction := &types.TagInteraction{
		TagID:        tag.ID,
		Type:         types.InteractionSearchHit,
		TriggerUser:  "it-searcher",
		RelatedQuery: "who can debug memory leaks",
	}
	if err := s.SaveInteraction(ctx, interaction); err != nil {
		t.Fatalf("SaveInteraction failed: %v", err)
	}

	record := &types.RewardRecord{
		EmployeeName:        "it-carol",
		PointsChange:        types.SearchHitReward,
		Reason:              "Tag won a search",
		SourceInteractionID: &interaction.ID,
	}
	if err := s.AppendReward(ctx, record); err != nil {
		t.Fatalf("AppendReward failed: %v", err)
	}

	history, err := s.RewardsByEmployee(ctx, "it-carol")
	if err != nil {
		t.Fatalf("RewardsByEmployee failed: %v", err)
	}
	if len(history) == 0 {
		t.Fatal("expected reward history")
	}
	if history[0].SourceInteractionID == nil || *history[0].SourceInteractionID != interaction.ID {
		t.Error("reward record lost its source interaction link")
	}
}
