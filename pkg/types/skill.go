package types

import (
	"strings"
	"time"
)

// Proficiency is the ordinal skill level assigned by the extraction model.
type Proficiency string

const (
	ProficiencyNovice     Proficiency = "novice"
	ProficiencyCompetent  Proficiency = "competent"
	ProficiencyProficient Proficiency = "proficient"
	ProficiencyExpert     Proficiency = "expert"
)

// ParseProficiency normalizes a model-produced proficiency string.
// The second return value is false when the input did not match any known
// level; callers typically fall back to ProficiencyNovice.
func ParseProficiency(s string) (Proficiency, bool) {
	switch Proficiency(strings.ToLower(strings.TrimSpace(s))) {
	case ProficiencyNovice:
		return ProficiencyNovice, true
	case ProficiencyCompetent:
		return ProficiencyCompetent, true
	case ProficiencyProficient:
		return ProficiencyProficient, true
	case ProficiencyExpert:
		return ProficiencyExpert, true
	}
	return ProficiencyNovice, false
}

// SkillRecord is one skill extracted from evaluation text for an employee.
// Embedding is nil until the batch vector generator fills it in; a record
// without an embedding is valid but excluded from similarity ranking.
type SkillRecord struct {
	ID           int64       `json:"id"`
	EmployeeName string      `json:"employee_name"`
	SkillName    string      `json:"skill_name"`
	Proficiency  Proficiency `json:"proficiency"`
	Evidence     string      `json:"evidence"`
	Embedding    []float64   `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}

// EmbeddingText is the canonical text vectorized for this skill.
func (s *SkillRecord) EmbeddingText() string {
	return s.SkillName + ": " + s.Evidence
}
