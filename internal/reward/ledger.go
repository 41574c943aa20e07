// Package reward implements the contributor points ledger. Points arrive
// from tag submissions and search attributions; levels derive from lifetime
// accumulated points and never go down.
package reward

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/YangKGcsdms/Dendrite/internal/storage"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// maxRetries bounds the optimistic-lock retry loop. Conflicts within one
// process are already serialized by the per-employee mutex, so retries only
// fire when another process raced us.
const maxRetries = 3

// Ledger applies point changes atomically per employee: a per-employee
// mutex serializes writers in this process, and the contributor row's
// version guard catches writers in other processes.
type Ledger struct {
	contributors storage.ContributorStore
	rewards      storage.RewardStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedger creates a ledger over the given stores.
func NewLedger(contributors storage.ContributorStore, rewards storage.RewardStore) *Ledger {
	return &Ledger{
		contributors: contributors,
		rewards:      rewards,
		locks:        make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing updates for one employee.
func (l *Ledger) lockFor(employee string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[employee]
	if !ok {
		m = &sync.Mutex{}
		l.locks[employee] = m
	}
	return m
}

// AddPoints credits (or debits) an employee's points and appends a ledger
// record. The delta always applies to spendable points; only positive deltas
// grow totalAccumulatedPoints, so penalties never undo level progress.
// A level-up appends a note to the recorded reason.
func (l *Ledger) AddPoints(ctx context.Context, employee string, delta int, reason string) (*types.ContributorProfile, error) {
	return l.apply(ctx, employee, delta, reason, nil, nil)
}

// AddSearchAssist credits a tag creator whose tag won a search for
// beneficiary, bumping their search-hit counter and linking the reward to
// the audit interaction. The recorded reason names the beneficiary.
func (l *Ledger) AddSearchAssist(ctx context.Context, creator, beneficiary string, interactionID int64) (*types.ContributorProfile, error) {
	return l.apply(ctx, creator, types.SearchHitReward,
		"Search assist: your tag helped find "+beneficiary, &interactionID,
		func(c *types.ContributorProfile) { c.SearchHitsCount++ })
}

// AddTagSubmission credits a contributor for submitting a tag and bumps
// their submission counter.
func (l *Ledger) AddTagSubmission(ctx context.Context, contributor, rawTag string) (*types.ContributorProfile, error) {
	return l.apply(ctx, contributor, types.EvaluationSubmitReward,
		"Submitted tag: "+rawTag, nil,
		func(c *types.ContributorProfile) { c.TotalTagsSubmitted++ })
}

// GetOrCreate returns the contributor row for an employee, creating a fresh
// level-1 row when none exists.
func (l *Ledger) GetOrCreate(ctx context.Context, employee string) (*types.ContributorProfile, error) {
	c, err := l.contributors.ContributorByEmployee(ctx, employee)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	c = &types.ContributorProfile{EmployeeName: employee, Level: 1}
	if err := l.contributors.InsertContributor(ctx, c); err != nil {
		// Another writer may have created the row between our read and
		// insert; fall back to reading it.
		if existing, readErr := l.contributors.ContributorByEmployee(ctx, employee); readErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return c, nil
}

// History returns an employee's reward records, newest first.
func (l *Ledger) History(ctx context.Context, employee string) ([]*types.RewardRecord, error) {
	return l.rewards.RewardsByEmployee(ctx, employee)
}

// apply runs one atomic point change. mutate, when non-nil, adjusts extra
// counters under the same version guard.
func (l *Ledger) apply(ctx context.Context, employee string, delta int, reason string, sourceID *int64, mutate func(*types.ContributorProfile)) (*types.ContributorProfile, error) {
	lock := l.lockFor(employee)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		profile, err := l.GetOrCreate(ctx, employee)
		if err != nil {
			return nil, err
		}

		recordedReason := reason

		profile.CurrentPoints += int64(delta)
		if delta > 0 {
			profile.TotalAccumulatedPoints += int64(delta)
		}
		if mutate != nil {
			mutate(profile)
		}

		if newLevel := types.LevelForPoints(profile.TotalAccumulatedPoints); newLevel > profile.Level {
			profile.Level = newLevel
			recordedReason = fmt.Sprintf("%s (level up to Lv%d)", reason, newLevel)
		}

		err = l.contributors.UpdateContributor(ctx, profile)
		if errors.Is(err, storage.ErrVersionConflict) {
			log.Printf("reward: version conflict for %s, retrying (%d/%d)", employee, attempt+1, maxRetries)
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		record := &types.RewardRecord{
			EmployeeName:        employee,
			PointsChange:        delta,
			Reason:              recordedReason,
			SourceInteractionID: sourceID,
		}
		if err := l.rewards.AppendReward(ctx, record); err != nil {
			return nil, fmt.Errorf("reward: points applied but ledger append failed: %w", err)
		}
		return profile, nil
	}
	return nil, fmt.Errorf("reward: gave up after %d version conflicts for %s: %w", maxRetries, employee, lastErr)
}
