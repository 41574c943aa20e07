package search

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

// Attribution credits tag creators when their tags helped a search succeed.
// A hit is confirmed by cosine similarity between the winning query and each
// of the target's tags; every tag strictly above the threshold earns its
// creator a search-assist reward.
type Attribution struct {
	tags     storage.TagStore
	embedder llm.EmbeddingGenerator
	gate     *quota.Gate
	ledger   *reward.Ledger
}

// NewAttribution creates an attribution tracker.
func NewAttribution(tags storage.TagStore, embedder llm.EmbeddingGenerator, gate *quota.Gate, ledger *reward.Ledger) *Attribution {
	return &Attribution{tags: tags, embedder: embedder, gate: gate, ledger: ledger}
}

// creditworthy reports whether a similarity clears the attribution
// threshold. The threshold is exclusive: exact equality earns nothing.
func creditworthy(similarity float64) bool {
	return similarity > types.SimilarityThreshold
}

// TrackSearchHit records that a search for query ended on targetEmployee
// and attributes the hit to matching tags. The query is embedded once under
// the quota gate, however many tags the target has. Tags that never got a
// vector are skipped silently. Returns how many tags were credited.
func (a *Attribution) TrackSearchHit(ctx context.Context, targetEmployee, query, triggerUser string) (int, error) {
	targetEmployee = strings.TrimSpace(targetEmployee)
	query = strings.TrimSpace(query)
	if targetEmployee == "" || query == "" {
		return 0, types.NewError(types.ErrCodeValidation, "target employee and query are required")
	}

	tags, err := a.tags.TagsByTarget(ctx, targetEmployee)
	if err != nil {
		return 0, types.WrapError(types.ErrCodeInternal, err, "loading tags for %s", targetEmployee)
	}

	candidates := tags[:0:0]
	for _, tag := range tags {
		if len(tag.Embedding) > 0 {
			candidates = append(candidates, tag)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	if err := a.gate.Acquire(ctx); err != nil {
		return 0, types.WrapError(types.ErrCodeQuotaInterrupted, err, "quota wait aborted")
	}
	queryVecF32, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return 0, types.WrapError(types.ErrCodeAICallFailed, err, "embedding winning query")
	}
	queryVec := vector.ToFloat64s(queryVecF32)

	credited := 0
	for _, tag := range candidates {
		similarity := vector.Cosine(tag.Embedding, queryVec)
		if !creditworthy(similarity) {
			continue
		}

		interaction := &types.TagInteraction{
			TagID:        tag.ID,
			Type:         types.InteractionSearchHit,
			TriggerUser:  triggerUser,
			RelatedQuery: query,
		}
		if err := a.tags.SaveInteraction(ctx, interaction); err != nil {
			log.Printf("ERROR: recording search hit for tag %d: %v", tag.ID, err)
			continue
		}
		if _, err := a.ledger.AddSearchAssist(ctx, tag.CreatorEmployee, targetEmployee, interaction.ID); err != nil {
			log.Printf("ERROR: crediting %s for tag %d: %v", tag.CreatorEmployee, tag.ID, err)
			continue
		}
		credited++
		log.Printf("Search hit attributed: tag %q (%.2f) by %s", tag.RawTagName, similarity, tag.CreatorEmployee)
	}
	return credited, nil
}
