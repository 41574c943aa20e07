// Package tags handles contributor-submitted evaluation tags: validation,
// AI classification onto the standard competency model, weighting by the
// contributor's level at submission time, and the submission reward.
package tags

import (
	"context"
	"log"
	"strings"

	"github.com/YangKGcsdms/Dendrite/internal/llm"
	"github.com/YangKGcsdms/Dendrite/internal/quota"
	"github.com/YangKGcsdms/Dendrite/internal/reward"
	"github.com/YangKGcsdms/Dendrite/internal/storage"
	"github.com/YangKGcsdms/Dendrite/internal/vector"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// Service accepts and persists evaluation tags.
type Service struct {
	generator llm.TextGenerator
	embedder  llm.EmbeddingGenerator
	gate      *quota.Gate
	store     storage.TagStore
	ledger    *reward.Ledger
}

// NewService creates a tag service.
func NewService(generator llm.TextGenerator, embedder llm.EmbeddingGenerator, gate *quota.Gate, store storage.TagStore, ledger *reward.Ledger) *Service {
	return &Service{generator: generator, embedder: embedder, gate: gate, store: store, ledger: ledger}
}

// SubmitTag validates, classifies, weights, embeds and saves one tag, then
// credits the contributor. The tag's weight is fixed by the contributor's
// level at this moment and never changes retroactively. Classification and
// embedding failures degrade (fallback category, no vector) rather than
// rejecting the submission.
func (s *Service) SubmitTag(ctx context.Context, creator, target, rawTag, tagContext string) (*types.EvaluationTag, error) {
	creator = strings.TrimSpace(creator)
	target = strings.TrimSpace(target)
	rawTag = strings.TrimSpace(rawTag)
	if creator == "" || target == "" {
		return nil, types.NewError(types.ErrCodeValidation, "creator and target employee are required")
	}
	if rawTag == "" {
		return nil, types.NewError(types.ErrCodeValidation, "tag name is required")
	}
	if len(creator) > types.MaxEmployeeNameLength || len(target) > types.MaxEmployeeNameLength {
		return nil, types.NewError(types.ErrCodeValidation, "employee name exceeds %d characters", types.MaxEmployeeNameLength)
	}

	contributor, err := s.ledger.GetOrCreate(ctx, creator)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeInternal, err, "loading contributor %s", creator)
	}

	tag := &types.EvaluationTag{
		CreatorEmployee:      creator,
		TargetEmployee:       target,
		RawTagName:           rawTag,
		Context:              tagContext,
		StandardizedCategory: s.classify(ctx, rawTag, tagContext),
		Weight:               types.TagWeight(contributor.Level),
	}

	if vec, ok := s.embed(ctx, tag); ok {
		tag.Embedding = vec
	}

	if err := s.store.SaveTag(ctx, tag); err != nil {
		return nil, types.WrapError(types.ErrCodeInternal, err, "saving tag %q", rawTag)
	}

	if _, err := s.ledger.AddTagSubmission(ctx, creator, rawTag); err != nil {
		// The tag is saved; the missing reward is a known loss, not a
		// reason to fail the submission.
		log.Printf("WARNING: tag %d saved but submission reward failed for %s: %v", tag.ID, creator, err)
	}

	log.Printf("Tag %q saved for %s (category %s, weight %.2f)", rawTag, target, tag.StandardizedCategory, tag.Weight)
	return tag, nil
}

// classify maps the raw tag onto the standard competency model, falling
// back to HARD_SKILL_GENERAL when the model is unavailable.
func (s *Service) classify(ctx context.Context, rawTag, tagContext string) types.StandardCompetency {
	names := make([]string, len(types.StandardCompetencies))
	for i, c := range types.StandardCompetencies {
		names[i] = string(c)
	}

	response, err := s.generator.Complete(ctx, llm.BuildClassifyPrompt(rawTag, tagContext, names))
	if err != nil {
		log.Printf("WARNING: tag classification failed for %q, using fallback: %v", rawTag, err)
		return types.CompetencyHardSkillGeneral
	}
	return types.ParseCompetency(response)
}

// embed produces the tag's vector under the quota gate. A tag without a
// vector still participates in everything except attribution matching.
func (s *Service) embed(ctx context.Context, tag *types.EvaluationTag) ([]float64, bool) {
	if err := s.gate.Acquire(ctx); err != nil {
		log.Printf("WARNING: quota wait aborted, tag %q saved without vector: %v", tag.RawTagName, err)
		return nil, false
	}
	vec, err := s.embedder.Embed(ctx, tag.EmbeddingText())
	if err != nil {
		log.Printf("WARNING: embedding failed, tag %q saved without vector: %v", tag.RawTagName, err)
		return nil, false
	}
	return vector.ToFloat64s(vec), true
}
