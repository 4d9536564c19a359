package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/idgen"
)

// MatchRepository stores both directions of every match.
type MatchRepository struct {
	db  *gorm.DB
	ids *idgen.Allocator
	now func() time.Time
}

// NewMatchRepository creates a new repository; ids allocates fresh match ids.
func NewMatchRepository(database *gorm.DB, ids *idgen.Allocator) *MatchRepository {
	return &MatchRepository{db: database, ids: ids, now: time.Now}
}

// Create persists one Match row. A fresh id is allocated unless m.ID is
// already set (complement rows reuse the first row's id).
// Returns false when the (user, target) row already exists.
func (r *MatchRepository) Create(ctx context.Context, m *db.Match) (bool, error) {
	return r.create(r.db.WithContext(ctx), m)
}

func (r *MatchRepository) create(tx *gorm.DB, m *db.Match) (bool, error) {
	if m.ID == 0 {
		id, err := r.ids.Next()
		if err != nil {
			return false, err
		}
		m.ID = id
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now().UTC()
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreatePair idempotently stores the match between a and b.
//
// Behavior:
//   - The canonical row (lower user id first) decides the match id: it is
//     inserted with a fresh id unless present, then read back under a
//     shared lock so a row committed by a concurrent caller is visible
//     even under REPEATABLE READ.
//   - The complement row copies the canonical id and created_at.
//   - Concurrent callers for the same unordered pair converge on one id;
//     created is true only for the caller whose canonical insert won.
//
// Returns the row owned by a (a -> b).
func (r *MatchRepository) CreatePair(ctx context.Context, a, b uint64) (*db.Match, bool, error) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}

	var (
		canonical db.Match
		created   bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if created, err = r.create(tx, &db.Match{UserID: lo, TargetUserID: hi}); err != nil {
			return err
		}
		err = tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("user_id = ? AND target_user_id = ?", lo, hi).
			Take(&canonical).Error
		if err != nil {
			return err
		}

		_, err = r.create(tx, &db.Match{
			ID:           canonical.ID,
			UserID:       hi,
			TargetUserID: lo,
			CreatedAt:    canonical.CreatedAt,
		})
		return err
	})
	if err != nil {
		return nil, false, err
	}

	return &db.Match{
		ID:           canonical.ID,
		UserID:       a,
		TargetUserID: b,
		CreatedAt:    canonical.CreatedAt,
	}, created, nil
}

// Get returns the match row owned by userID, or gorm.ErrRecordNotFound.
func (r *MatchRepository) Get(ctx context.Context, userID, targetUserID uint64) (*db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_user_id = ?", userID, targetUserID).
		Take(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID returns userID's side of the match with the given id, or gorm.ErrRecordNotFound.
func (r *MatchRepository) GetByID(ctx context.Context, matchID, userID uint64) (*db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", matchID, userID).
		Take(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByUser returns all matches owned by userID, newest first.
func (r *MatchRepository) ListByUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&matches).Error
	return matches, err
}
