// Package pipeline implements the batched evaluation pipeline: skill
// extraction, profile synthesis and batch vectorization, plus the scheduled
// worker that drains the intake queue and the real-time processor used for
// single submissions.
package pipeline

import (
	"context"
	"log"

	"github.com/YangKGcsdms/Dendrite/internal/llm"
	"github.com/YangKGcsdms/Dendrite/internal/storage"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// SkillExtractor turns raw evaluation text into persisted skill records.
type SkillExtractor struct {
	generator llm.TextGenerator
	skills    storage.SkillStore
}

// NewSkillExtractor creates an extractor.
func NewSkillExtractor(generator llm.TextGenerator, skills storage.SkillStore) *SkillExtractor {
	return &SkillExtractor{generator: generator, skills: skills}
}

// Extract runs one extraction call over an employee's merged evaluation text
// and persists the resulting skill records (without embeddings, which are
// filled in later by the batch vectorizer). A malformed model response is
// treated as zero skills, not as a failure.
func (e *SkillExtractor) Extract(ctx context.Context, employee, mergedContent string) ([]*types.SkillRecord, error) {
	prompt := llm.BuildExtractionPrompt(employee, mergedContent)

	response, err := e.generator.Complete(ctx, prompt)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeAICallFailed, err, "skill extraction for %s", employee)
	}

	extracted, err := llm.ParseSkills(response)
	if err != nil {
		log.Printf("WARNING: extraction returned unparseable response for %s: %v", employee, err)
		return []*types.SkillRecord{}, nil
	}

	records := make([]*types.SkillRecord, 0, len(extracted))
	for _, skill := range extracted {
		proficiency, ok := types.ParseProficiency(skill.Proficiency)
		if !ok {
			log.Printf("WARNING: unknown proficiency %q for %s/%s, defaulting to %s",
				skill.Proficiency, employee, skill.SkillName, proficiency)
		}
		records = append(records, &types.SkillRecord{
			EmployeeName: employee,
			SkillName:    skill.SkillName,
			Proficiency:  proficiency,
			Evidence:     skill.Evidence,
		})
	}

	if err := e.skills.SaveSkills(ctx, records); err != nil {
		return nil, types.WrapError(types.ErrCodeInternal, err, "persisting skills for %s", employee)
	}

	log.Printf("Extracted %d skills for %s", len(records), employee)
	return records, nil
}
