package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/YangKGcsdms/Dendrite/internal/llm"
	"github.com/YangKGcsdms/Dendrite/internal/storage"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// ProfileSynthesizer builds the bilingual talent profile for one employee
// from their full persisted skill history.
type ProfileSynthesizer struct {
	generator llm.TextGenerator
	skills    storage.SkillStore
	profiles  storage.ProfileStore
}

// NewProfileSynthesizer creates a synthesizer.
func NewProfileSynthesizer(generator llm.TextGenerator, skills storage.SkillStore, profiles storage.ProfileStore) *ProfileSynthesizer {
	return &ProfileSynthesizer{generator: generator, skills: skills, profiles: profiles}
}

// Synthesize re-reads the employee's entire skill history, generates a
// bilingual summary and upserts the profile. The embedding is written later
// by the batch vectorizer. Returns EMPLOYEE_NO_DATA when the employee has no
// skill records at all.
func (s *ProfileSynthesizer) Synthesize(ctx context.Context, employee string) (*types.TalentProfile, error) {
	records, err := s.skills.SkillsByEmployee(ctx, employee)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeInternal, err, "reading skill history for %s", employee)
	}
	if len(records) == 0 {
		return nil, types.NewError(types.ErrCodeEmployeeNoData, "no evaluation data for employee %s", employee)
	}

	prompt := llm.BuildSynthesisPrompt(employee, evidenceText(records))
	response, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeAICallFailed, err, "profile synthesis for %s", employee)
	}

	profile := &types.TalentProfile{EmployeeName: employee}
	summary, err := llm.ParseProfileSummary(response)
	if err != nil {
		// Zero-result semantics: keep the profile row alive with empty
		// summaries; it stays out of similarity search until the next run.
		log.Printf("WARNING: synthesis returned unparseable response for %s: %v", employee, err)
	} else {
		profile.SummaryZH = summary.SummaryZH
		profile.SummaryEN = summary.SummaryEN
		profile.SkillsZH = summary.TagsZH
		profile.SkillsEN = summary.TagsEN
	}

	if err := s.profiles.UpsertProfile(ctx, profile); err != nil {
		return nil, types.WrapError(types.ErrCodeInternal, err, "persisting profile for %s", employee)
	}

	log.Printf("Profile updated for %s (%d tags)", employee, len(profile.SkillsEN))
	return profile, nil
}

// evidenceText flattens skill records into the synthesis prompt's input.
func evidenceText(records []*types.SkillRecord) string {
	var sb strings.Builder
	for _, r := range records {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", r.SkillName, r.Proficiency, r.Evidence)
	}
	return sb.String()
}
