package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/YangKGcsdms/Dendrite/internal/llm"
	"github.com/YangKGcsdms/Dendrite/internal/quota"
	"github.com/YangKGcsdms/Dendrite/internal/storage"
	"github.com/YangKGcsdms/Dendrite/internal/vector"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// BatchVectorGenerator fills in embeddings for freshly written skill records
// and profiles. It acquires the quota gate exactly once and issues exactly
// one embedding request for the whole batch, however large.
type BatchVectorGenerator struct {
	gate     *quota.Gate
	embedder llm.EmbeddingGenerator
	skills   storage.SkillStore
	profiles storage.ProfileStore
}

// NewBatchVectorGenerator creates a vectorizer.
func NewBatchVectorGenerator(gate *quota.Gate, embedder llm.EmbeddingGenerator, skills storage.SkillStore, profiles storage.ProfileStore) *BatchVectorGenerator {
	return &BatchVectorGenerator{gate: gate, embedder: embedder, skills: skills, profiles: profiles}
}

func skillKey(id int64) string   { return fmt.Sprintf("skill:%d", id) }
func profileKey(id int64) string { return fmt.Sprintf("profile:%d", id) }

// Generate embeds every skill and profile in one batched call and writes the
// vectors back. Each outgoing text carries a stable key (record ID), and the
// returned vectors are redistributed through a key-to-vector map, so a record
// with nothing to embed is simply left out of the request and can never shift
// another record's vector.
//
// An embedding failure is logged and leaves the vectors unset; the records
// stay valid and a later run can vectorize them. A cancelled quota wait is
// fatal: proceeding without a grant would breach the upstream quota.
func (g *BatchVectorGenerator) Generate(ctx context.Context, skills []*types.SkillRecord, profiles []*types.TalentProfile) error {
	keys := make([]string, 0, len(skills)+len(profiles))
	texts := make([]string, 0, len(skills)+len(profiles))
	for _, skill := range skills {
		keys = append(keys, skillKey(skill.ID))
		texts = append(texts, skill.EmbeddingText())
	}
	for _, profile := range profiles {
		if text := profile.EmbeddingText(); text != "" {
			keys = append(keys, profileKey(profile.ID))
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		if len(skills) > 0 || len(profiles) > 0 {
			log.Printf("Vectorization skipped: nothing embeddable in this batch")
		}
		return nil
	}

	if err := g.gate.Acquire(ctx); err != nil {
		return types.WrapError(types.ErrCodeQuotaInterrupted, err, "quota wait aborted")
	}

	vectors, err := g.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		log.Printf("WARNING: batch embedding failed, %d records left unvectorized: %v", len(texts), err)
		return nil
	}
	if len(vectors) != len(texts) {
		log.Printf("ERROR: embedding count mismatch (%d vectors for %d texts), batch discarded", len(vectors), len(texts))
		return nil
	}

	byKey := make(map[string][]float64, len(keys))
	for i, key := range keys {
		byKey[key] = vector.ToFloat64s(vectors[i])
	}

	stored := 0
	for _, skill := range skills {
		vec, ok := byKey[skillKey(skill.ID)]
		if !ok {
			continue
		}
		if err := g.skills.UpdateSkillEmbedding(ctx, skill.ID, vec); err != nil {
			log.Printf("WARNING: failed to store vector for skill %d: %v", skill.ID, err)
			continue
		}
		skill.Embedding = vec
		stored++
	}
	for _, profile := range profiles {
		vec, ok := byKey[profileKey(profile.ID)]
		if !ok {
			continue
		}
		if err := g.profiles.UpdateProfileEmbedding(ctx, profile.ID, vec); err != nil {
			log.Printf("WARNING: failed to store vector for profile %d: %v", profile.ID, err)
			continue
		}
		profile.Embedding = vec
		stored++
	}

	log.Printf("Vectorization complete: %d vectors stored from one embedding call", stored)
	return nil
}
