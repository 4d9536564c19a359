// Package swipe records directional swipes and detects mutual likes.
package swipe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/idgen"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/metrics"
)

// Store is the swipe persistence. *repository.SwipeRepository satisfies it.
type Store interface {
	Create(ctx context.Context, s *db.Swipe) (bool, error)
	Latest(ctx context.Context, userID, targetUserID uint64) (*db.Swipe, error)
	History(ctx context.Context, userID uint64) ([]db.Swipe, error)
	SwipedTargets(ctx context.Context, userID uint64) ([]uint64, error)
	CountLikers(ctx context.Context, recipientID uint64) (int64, error)
}

// Matcher creates match pairs. *match.Registry satisfies it.
type Matcher interface {
	RecordMatch(ctx context.Context, userID, targetUserID uint64) (*db.Match, bool, error)
}

// LikeCache caches the "liked you" counter. *cache.RedisCache satisfies it.
type LikeCache interface {
	GetLikeCount(ctx context.Context, userID uint64) (int64, bool, error)
	LikeCountGeneration(ctx context.Context, userID uint64) (int64, error)
	SetLikeCount(ctx context.Context, userID uint64, count, gen int64) (bool, error)
	InvalidateLikeCount(ctx context.Context, userID uint64) error
}

// Result is the outcome of RecordSwipe.
type Result struct {
	IsMatch bool
	// MatchID is set when IsMatch is true.
	MatchID uint64
}

type Engine struct {
	ids     *idgen.Allocator
	swipes  Store
	matches Matcher
	cache   LikeCache
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Engine)

// WithCache enables the cached like counter.
func WithCache(c LikeCache) Option { return func(e *Engine) { e.cache = c } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

func NewEngine(ids *idgen.Allocator, swipes Store, matches Matcher, opts ...Option) *Engine {
	e := &Engine{ids: ids, swipes: swipes, matches: matches, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidAction reports whether action is LIKE or DISLIKE.
func ValidAction(action string) bool {
	return action == db.ActionLike || action == db.ActionDislike
}

// RecordSwipe stores userID's swipe on targetUserID and reports whether it
// completed a mutual like.
//
// Behavior:
//   - Self swipes and unknown actions are Validation errors.
//   - Repeating the latest action toward the same target is a Conflict.
//   - A different action is stored as a new row (history keeps both).
//   - Returning to an action already stored for the pair is a Conflict,
//     since (user, target, action) is unique.
//   - A LIKE answered by a reciprocal latest LIKE creates the match pair
//     before IsMatch is reported.
func (e *Engine) RecordSwipe(ctx context.Context, userID, targetUserID uint64, action string) (Result, error) {
	if userID == targetUserID {
		return Result{}, svcErr.Validation("cannot swipe on yourself")
	}
	if !ValidAction(action) {
		return Result{}, svcErr.Validation("action must be %s or %s", db.ActionLike, db.ActionDislike)
	}

	latest, err := e.swipes.Latest(ctx, userID, targetUserID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load latest swipe: %w", err)
	}
	if latest != nil && latest.Action == action {
		return Result{}, svcErr.Conflict("already swiped")
	}

	id, err := e.ids.Next()
	if err != nil {
		return Result{}, err
	}
	created, err := e.swipes.Create(ctx, &db.Swipe{
		ID:           id,
		UserID:       userID,
		TargetUserID: targetUserID,
		Action:       action,
		CreatedAt:    e.now().UTC(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to store swipe: %w", err)
	}
	if !created {
		return Result{}, svcErr.Conflict("already swiped")
	}
	e.metrics.SwipeRecorded(action)

	log := logger.From(ctx).With(
		slog.Uint64("user_id", userID),
		slog.Uint64("target_user_id", targetUserID),
	)
	log.Debug("swipe recorded", slog.String("action", action), slog.Uint64("swipe_id", id))

	// both counters may move: target gained/lost a liker, user changed who they dislike
	e.invalidate(ctx, log, targetUserID, userID)

	if action != db.ActionLike {
		return Result{}, nil
	}

	reciprocal, err := e.swipes.Latest(ctx, targetUserID, userID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load reciprocal swipe: %w", err)
	}
	if reciprocal == nil || reciprocal.Action != db.ActionLike {
		return Result{}, nil
	}

	m, _, err := e.matches.RecordMatch(ctx, userID, targetUserID)
	if err != nil {
		return Result{}, err
	}
	return Result{IsMatch: true, MatchID: m.ID}, nil
}

func (e *Engine) invalidate(ctx context.Context, log *slog.Logger, userIDs ...uint64) {
	if e.cache == nil {
		return
	}
	for _, id := range userIDs {
		if err := e.cache.InvalidateLikeCount(ctx, id); err != nil {
			log.Warn("failed to invalidate like count", slog.Uint64("recipient", id), slog.Any("err", err))
		}
	}
}

// GetSwipeHistory returns every swipe made by userID, oldest first.
func (e *Engine) GetSwipeHistory(ctx context.Context, userID uint64) ([]db.Swipe, error) {
	swipes, err := e.swipes.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load swipe history: %w", err)
	}
	return swipes, nil
}

// SwipedTargets returns the distinct users userID has swiped on.
func (e *Engine) SwipedTargets(ctx context.Context, userID uint64) ([]uint64, error) {
	ids, err := e.swipes.SwipedTargets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load swiped targets: %w", err)
	}
	return ids, nil
}

// CountLikedYou returns how many users currently like userID.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:userID), refreshing its TTL.
//  2. On a miss or a cache error, falls back to the DB.
//  3. On DB fetch, updates Redis with a 1h TTL, unless a swipe invalidated
//     the counter while the DB was being read.
func (e *Engine) CountLikedYou(ctx context.Context, userID uint64) (int64, error) {
	log := logger.From(ctx)

	cacheable := false
	var gen int64
	if e.cache != nil {
		n, ok, err := e.cache.GetLikeCount(ctx, userID)
		if err != nil {
			log.Warn("like count cache read failed", slog.Uint64("recipient", userID), slog.Any("err", err))
		} else if ok {
			return n, nil
		} else if gen, err = e.cache.LikeCountGeneration(ctx, userID); err == nil {
			cacheable = true
		}
	}

	n, err := e.swipes.CountLikers(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count likers: %w", err)
	}

	if cacheable {
		stored, err := e.cache.SetLikeCount(ctx, userID, n, gen)
		switch {
		case err != nil:
			log.Warn("like count cache write failed", slog.Uint64("recipient", userID), slog.Any("err", err))
		case !stored:
			log.Debug("like count changed during read, not cached", slog.Uint64("recipient", userID))
		}
	}
	return n, nil
}
