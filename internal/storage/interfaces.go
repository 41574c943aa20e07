// Package storage provides composable storage interfaces for the Dendrite system.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. Services depend only on
// the interfaces they use, which keeps fakes small in tests.
package storage

import (
	"context"
	"errors"

	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionConflict indicates that an optimistic-locking update lost the
	// race: the row's version no longer matches the one that was read.
	ErrVersionConflict = errors.New("version conflict")
)

// SkillStore manages extracted skill records.
type SkillStore interface {
	// SaveSkills inserts the given skill records in one transaction.
	SaveSkills(ctx context.Context, skills []*types.SkillRecord) error

	// SkillsByEmployee returns all skill records for an employee,
	// newest first. Returns an empty slice when none exist.
	SkillsByEmployee(ctx context.Context, employeeName string) ([]*types.SkillRecord, error)

	// UpdateSkillEmbedding stores the embedding for one skill record.
	// Returns ErrNotFound if the record doesn't exist.
	UpdateSkillEmbedding(ctx context.Context, id int64, embedding []float64) error
}

// RankedProfile is one semantic search result: a profile with its cosine
// similarity to the query vector.
type RankedProfile struct {
	EmployeeName string  `json:"employee_name"`
	Summary      string  `json:"summary"`
	Similarity   float64 `json:"similarity"`
}

// ProfileStore manages synthesized talent profiles.
type ProfileStore interface {
	// UpsertProfile creates or updates the profile for its employee.
	// Each employee has at most one profile.
	UpsertProfile(ctx context.Context, profile *types.TalentProfile) error

	// ProfileByEmployee returns the profile for an employee.
	// Returns ErrNotFound if no profile exists.
	ProfileByEmployee(ctx context.Context, employeeName string) (*types.TalentProfile, error)

	// UpdateProfileEmbedding stores the embedding for one profile.
	// Returns ErrNotFound if the profile doesn't exist.
	UpdateProfileEmbedding(ctx context.Context, id int64, embedding []float64) error

	// RankProfiles returns up to limit profiles ordered by similarity to the
	// query vector, best first. Profiles without an embedding are excluded.
	RankProfiles(ctx context.Context, query []float64, limit int) ([]RankedProfile, error)
}

// TagStore manages evaluation tags and their interaction audit trail.
type TagStore interface {
	// SaveTag inserts a new evaluation tag and fills in its ID.
	SaveTag(ctx context.Context, tag *types.EvaluationTag) error

	// TagsByTarget returns all tags attached to a target employee.
	TagsByTarget(ctx context.Context, targetEmployee string) ([]*types.EvaluationTag, error)

	// SaveInteraction appends one tag interaction audit record.
	SaveInteraction(ctx context.Context, interaction *types.TagInteraction) error
}

// ContributorStore manages contributor gamification state.
type ContributorStore interface {
	// ContributorByEmployee returns the contributor row for an employee.
	// Returns ErrNotFound if none exists.
	ContributorByEmployee(ctx context.Context, employeeName string) (*types.ContributorProfile, error)

	// InsertContributor creates a new contributor row and fills in its ID.
	InsertContributor(ctx context.Context, contributor *types.ContributorProfile) error

	// UpdateContributor writes the contributor row guarded by its version:
	// the update only applies when the stored version still matches
	// contributor.Version, and the version is incremented atomically.
	// Returns ErrVersionConflict when the guard fails.
	UpdateContributor(ctx context.Context, contributor *types.ContributorProfile) error
}

// RewardStore manages the append-only reward history.
type RewardStore interface {
	// AppendReward inserts one reward record.
	AppendReward(ctx context.Context, record *types.RewardRecord) error

	// RewardsByEmployee returns an employee's reward history, newest first.
	RewardsByEmployee(ctx context.Context, employeeName string) ([]*types.RewardRecord, error)
}

// Store aggregates every storage interface plus lifecycle management.
// The Postgres implementation satisfies the whole thing; tests implement
// only the slices they need.
type Store interface {
	SkillStore
	ProfileStore
	TagStore
	ContributorStore
	RewardStore

	// Close releases the underlying connections.
	Close() error
}
