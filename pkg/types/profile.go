package types

import (
	"strings"
	"time"
)

// TalentProfile is the per-employee semantic profile synthesized from skill
// history. There is at most one profile per employee. The embedding is
// written in a second pass after synthesis; a profile without one is valid
// but never matched by similarity search.
type TalentProfile struct {
	ID           int64     `json:"id"`
	EmployeeName string    `json:"employee_name"`
	SummaryZH    string    `json:"summary_zh"`
	SummaryEN    string    `json:"summary_en"`
	SkillsZH     []string  `json:"skills_zh"`
	SkillsEN     []string  `json:"skills_en"`
	Embedding    []float64 `json:"-"`
	LastUpdated  time.Time `json:"last_updated"`
}

// EmbeddingText is the canonical text vectorized for this profile: the
// English summary plus the English tag list. The English side is used
// because it ranks better for semantic search. Returns the empty string
// when no English summary exists, in which case the vector write is
// skipped.
func (p *TalentProfile) EmbeddingText() string {
	if p.SummaryEN == "" {
		return ""
	}
	if len(p.SkillsEN) == 0 {
		return p.SummaryEN
	}
	return p.SummaryEN + " " + strings.Join(p.SkillsEN, ", ")
}
