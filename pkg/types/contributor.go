package types

import "time"

// Gamification parameters.
const (
	// PointsPerLevel is the accumulated-point cost of each level step.
	PointsPerLevel = 100

	// MaxLevel caps contributor levels.
	MaxLevel = 5

	// SearchHitReward is credited to a tag's creator when the tag wins a
	// search.
	SearchHitReward = 50

	// EvaluationSubmitReward is credited for submitting a tag.
	EvaluationSubmitReward = 5
)

// LevelForPoints derives the contributor level from total accumulated
// points: one level per PointsPerLevel, clamped to MaxLevel.
func LevelForPoints(totalAccumulated int64) int {
	level := int(totalAccumulated/PointsPerLevel) + 1
	if level > MaxLevel {
		level = MaxLevel
	}
	return level
}

// ContributorProfile tracks a contributor's points and level. CurrentPoints
// is spendable and may shrink; TotalAccumulatedPoints only ever grows and
// drives the level, so the level never decreases either. Version is an
// optimistic-lock counter guarding concurrent point updates.
type ContributorProfile struct {
	ID                     int64     `json:"id"`
	EmployeeName           string    `json:"employee_name"`
	CurrentPoints          int64     `json:"current_points"`
	TotalAccumulatedPoints int64     `json:"total_accumulated_points"`
	Level                  int       `json:"level"`
	TasteEmbedding         []float64 `json:"-"`
	TotalTagsSubmitted     int       `json:"total_tags_submitted"`
	SearchHitsCount        int       `json:"search_hits_count"`
	Version                int64     `json:"-"`
}

// RewardRecord is one append-only ledger row. Records are never mutated or
// deleted.
type RewardRecord struct {
	ID                  int64     `json:"id"`
	EmployeeName        string    `json:"employee_name"`
	PointsChange        int       `json:"points_change"`
	Reason              string    `json:"reason"`
	SourceInteractionID *int64    `json:"source_interaction_id,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}
