package types

import (
	"strings"
	"time"
)

// StandardCompetency is the closed set of categories an evaluation tag is
// classified into.
type StandardCompetency string

const (
	// Thinking
	CompetencyProblemSolving   StandardCompetency = "PROBLEM_SOLVING"
	CompetencyStrategicMindset StandardCompetency = "STRATEGIC_MINDSET"

	// Execution
	CompetencyActionOriented  StandardCompetency = "ACTION_ORIENTED"
	CompetencyDriveForResults StandardCompetency = "DRIVE_FOR_RESULTS"

	// Collaboration
	CompetencyPeerRelationships StandardCompetency = "PEER_RELATIONSHIPS"
	CompetencyCommunication     StandardCompetency = "COMMUNICATION"

	// Drive
	CompetencyTechnicalLearning StandardCompetency = "TECHNICAL_LEARNING"
	CompetencyResilience        StandardCompetency = "RESILIENCE"

	// Catch-all for concrete hard skills (Java, SQL, ...)
	CompetencyHardSkillGeneral StandardCompetency = "HARD_SKILL_GENERAL"
)

// StandardCompetencies lists every valid competency, in display order.
var StandardCompetencies = []StandardCompetency{
	CompetencyProblemSolving,
	CompetencyStrategicMindset,
	CompetencyActionOriented,
	CompetencyDriveForResults,
	CompetencyPeerRelationships,
	CompetencyCommunication,
	CompetencyTechnicalLearning,
	CompetencyResilience,
	CompetencyHardSkillGeneral,
}

// ParseCompetency maps a model-produced category string onto the closed
// enum. Non-letter characters are stripped before matching so responses
// like "`PROBLEM_SOLVING`." still parse. Unrecognized input falls back to
// CompetencyHardSkillGeneral.
func ParseCompetency(s string) StandardCompetency {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_' {
			return r
		}
		return -1
	}, s)
	candidate := StandardCompetency(strings.ToUpper(cleaned))
	for _, c := range StandardCompetencies {
		if c == candidate {
			return c
		}
	}
	return CompetencyHardSkillGeneral
}

// Tag weight parameters. A contributor's level at submission time fixes the
// tag weight permanently; later level changes never apply retroactively.
const (
	BaseTagWeight        = 1.0
	LevelWeightIncrement = 0.25
)

// TagWeight computes the initial weight for a tag created by a contributor
// at the given level.
func TagWeight(level int) float64 {
	if level < 1 {
		level = 1
	}
	return BaseTagWeight + float64(level-1)*LevelWeightIncrement
}

// EvaluationTag is a contributor-submitted tag about a target employee.
type EvaluationTag struct {
	ID                   int64              `json:"id"`
	CreatorEmployee      string             `json:"creator_employee"`
	TargetEmployee       string             `json:"target_employee"`
	RawTagName           string             `json:"raw_tag_name"`
	Context              string             `json:"context"`
	StandardizedCategory StandardCompetency `json:"standardized_category"`
	Weight               float64            `json:"weight"`
	Embedding            []float64          `json:"-"`
	CreatedAt            time.Time          `json:"created_at"`
}

// EmbeddingText is the text vectorized for this tag.
func (t *EvaluationTag) EmbeddingText() string {
	return t.RawTagName + " " + t.Context
}

// InteractionType classifies an audit event recorded against a tag.
type InteractionType string

const (
	// InteractionSearchHit marks the strongest signal: the tag helped a
	// search find its target.
	InteractionSearchHit InteractionType = "SEARCH_HIT"

	InteractionUpvote      InteractionType = "UPVOTE"
	InteractionAIValidated InteractionType = "AI_VALIDATED"
)

// TagInteraction is an append-only audit row recording that a tag produced
// value (search hit, upvote, ...).
type TagInteraction struct {
	ID           int64           `json:"id"`
	TagID        int64           `json:"tag_id"`
	Type         InteractionType `json:"type"`
	TriggerUser  string          `json:"trigger_user"`
	RelatedQuery string          `json:"related_query"`
	Timestamp    time.Time       `json:"timestamp"`
}
