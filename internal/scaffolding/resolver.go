// Package scaffolding owns the mapping from evaluation scores to support
// levels and tracks the current level per student.
package scaffolding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"solbot-backend/internal/prompts"
	"solbot-backend/internal/store"
)

// LevelForScore maps an overall evaluation score to a scaffolding level.
// Lower scores earn more support: below 1.5 the student gets high support
// (level 1), below 2.0 medium (level 2), and 2.0 or above low (level 3).
func LevelForScore(score float64) int {
	switch {
	case score < 1.5:
		return prompts.LevelHighSupport
	case score < 2.0:
		return prompts.LevelMediumSupport
	default:
		return prompts.LevelLowSupport
	}
}

// Resolver answers "what support level does this student currently get for
// this phase/component" from a write-through in-process cache backed by the
// persistent audit trail. The cache is updated on every evaluated turn;
// the store gains a record only on formal submissions.
type Resolver struct {
	mu     sync.Mutex
	levels map[string]int
	store  store.Store
}

// NewResolver creates a Resolver over the given store.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{
		levels: make(map[string]int),
		store:  s,
	}
}

func key(userID, phase, component string) string {
	return fmt.Sprintf("%s:%s:%s", userID, phase, component)
}

// Current returns the student's scaffolding level, consulting the cache
// first, then the persisted audit trail, then defaulting to medium support.
func (r *Resolver) Current(ctx context.Context, userID, phase, component string) int {
	r.mu.Lock()
	if level, ok := r.levels[key(userID, phase, component)]; ok {
		r.mu.Unlock()
		return level
	}
	r.mu.Unlock()

	level, err := r.store.GetLatestScaffoldingLevel(ctx, userID, phase, component)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("WARN [Scaffolding] Failed to load level for user %s: %v", userID, err)
		}
		return prompts.LevelMediumSupport
	}

	level = prompts.ClampLevel(level)
	r.mu.Lock()
	r.levels[key(userID, phase, component)] = level
	r.mu.Unlock()
	return level
}

// SetCached records a new level in the in-process cache without touching the
// audit trail. Used for ordinary (non-submission) evaluated turns.
func (r *Resolver) SetCached(userID, phase, component string, level int) {
	level = prompts.ClampLevel(level)
	r.mu.Lock()
	r.levels[key(userID, phase, component)] = level
	r.mu.Unlock()
}

// Persist records a new level in both the cache and the audit trail. The
// cache is updated first so the next turn sees the new level even if the
// store write fails.
func (r *Resolver) Persist(ctx context.Context, arg store.CreateScaffoldingRecordParams) error {
	arg.Level = prompts.ClampLevel(arg.Level)
	r.SetCached(arg.UserID, arg.Phase, arg.Component, arg.Level)

	if _, err := r.store.CreateScaffoldingRecord(ctx, arg); err != nil {
		return fmt.Errorf("failed to persist scaffolding level: %w", err)
	}
	return nil
}
