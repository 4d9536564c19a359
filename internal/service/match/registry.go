// Package match owns the symmetric match relationship between two users.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/metrics"
)

// Store is the persistence the registry needs. *repository.MatchRepository satisfies it.
type Store interface {
	CreatePair(ctx context.Context, a, b uint64) (*db.Match, bool, error)
	Get(ctx context.Context, userID, targetUserID uint64) (*db.Match, error)
	GetByID(ctx context.Context, matchID, userID uint64) (*db.Match, error)
	ListByUser(ctx context.Context, userID uint64) ([]db.Match, error)
}

type Registry struct {
	store   Store
	metrics *metrics.Metrics
}

func NewRegistry(store Store, m *metrics.Metrics) *Registry {
	return &Registry{store: store, metrics: m}
}

// RecordMatch creates the match pair for userID and targetUserID if it does
// not exist yet. It is safe to call concurrently for the same pair: all
// callers get the same match id, created is true for exactly one of them.
func (r *Registry) RecordMatch(ctx context.Context, userID, targetUserID uint64) (*db.Match, bool, error) {
	if userID == targetUserID {
		return nil, false, svcErr.Validation("cannot match a user with themselves")
	}

	m, created, err := r.store.CreatePair(ctx, userID, targetUserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create match: %w", err)
	}
	if created {
		r.metrics.MatchCreated()
		logger.From(ctx).Info("match created",
			slog.Uint64("match_id", m.ID),
			slog.Uint64("user_id", userID),
			slog.Uint64("target_user_id", targetUserID),
		)
	}
	return m, created, nil
}

// GetMatch returns userID's side of the match with targetUserID.
func (r *Registry) GetMatch(ctx context.Context, userID, targetUserID uint64) (*db.Match, error) {
	m, err := r.store.Get(ctx, userID, targetUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("match not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}
	return m, nil
}

// GetMatchByID returns the match with matchID if userID is one of its parties.
func (r *Registry) GetMatchByID(ctx context.Context, matchID, userID uint64) (*db.Match, error) {
	m, err := r.store.GetByID(ctx, matchID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("match not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}
	return m, nil
}

// GetMatchHistory returns every match owned by userID, newest first.
// An empty history is NotFound.
func (r *Registry) GetMatchHistory(ctx context.Context, userID uint64) ([]db.Match, error) {
	matches, err := r.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	if len(matches) == 0 {
		return nil, svcErr.NotFound("no matches found")
	}
	return matches, nil
}
