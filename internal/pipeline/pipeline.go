package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// Result summarizes one pipeline execution over a batch.
type Result struct {
	Success         bool          `json:"success"`
	SkillsExtracted int           `json:"skills_extracted"`
	ProfilesUpdated int           `json:"profiles_updated"`
	VectorsStored   int           `json:"vectors_stored"`
	Duration        time.Duration `json:"duration"`
	ErrorMessage    string        `json:"error_message,omitempty"`
}

// Pipeline executes the three-stage evaluation flow over one batch:
// extraction, synthesis, then batch vectorization. Stages are best-effort
// per employee: one employee's failure never aborts the others.
type Pipeline struct {
	extractor   *SkillExtractor
	synthesizer *ProfileSynthesizer
	vectorizer  *BatchVectorGenerator
}

// NewPipeline creates a pipeline.
func NewPipeline(extractor *SkillExtractor, synthesizer *ProfileSynthesizer, vectorizer *BatchVectorGenerator) *Pipeline {
	return &Pipeline{extractor: extractor, synthesizer: synthesizer, vectorizer: vectorizer}
}

// Execute runs the batch through all three stages and reports totals.
// Only a failure outside the per-employee boundaries (today: an aborted
// quota wait during vectorization) marks the result unsuccessful.
func (p *Pipeline) Execute(ctx context.Context, batch *types.BatchEvaluationTask) *Result {
	start := time.Now()
	result := &Result{Success: true}

	employees := batch.DistinctEmployees()
	log.Printf("Pipeline starting: %d tasks across %d employees", batch.Size(), len(employees))

	// Stage 1: extraction, one model call per employee over merged text.
	newSkills := []*types.SkillRecord{}
	for _, employee := range employees {
		records, err := p.extractor.Extract(ctx, employee, batch.MergedContentFor(employee))
		if err != nil {
			log.Printf("ERROR: extraction failed for %s: %v", employee, err)
			continue
		}
		newSkills = append(newSkills, records...)
		result.SkillsExtracted += len(records)
	}

	// Stage 2: synthesis re-reads full history, so it runs for every
	// employee in the batch even when extraction came up empty.
	updatedProfiles := []*types.TalentProfile{}
	for _, employee := range employees {
		profile, err := p.synthesizer.Synthesize(ctx, employee)
		if err != nil {
			if types.IsCode(err, types.ErrCodeEmployeeNoData) {
				log.Printf("WARNING: no skill history for %s, profile skipped", employee)
			} else {
				log.Printf("ERROR: synthesis failed for %s: %v", employee, err)
			}
			continue
		}
		updatedProfiles = append(updatedProfiles, profile)
		result.ProfilesUpdated++
	}

	// Stage 3: one embedding call for everything the batch produced.
	if err := p.vectorizer.Generate(ctx, newSkills, updatedProfiles); err != nil {
		result.Success = false
		result.ErrorMessage = err.Error()
		if errors.Is(err, context.Canceled) || types.IsCode(err, types.ErrCodeQuotaInterrupted) {
			log.Printf("ERROR: pipeline aborted during vectorization: %v", err)
		}
	}
	result.VectorsStored = result.ProfilesUpdated

	result.Duration = time.Since(start)
	log.Printf("Pipeline finished in %v: %d skills, %d profiles, success=%v",
		result.Duration.Round(time.Millisecond), result.SkillsExtracted, result.ProfilesUpdated, result.Success)
	return result
}
