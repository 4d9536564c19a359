package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-match/internal/db"
)

// SwipeRepository provides data access methods for the Swipe model.
// Rows are insert-only; the unique (user_id, target_user_id, action) index
// serializes concurrent writers on the same key.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Create inserts a swipe unless the same (user, target, action) row exists.
//
// Behavior:
//   - Returns created=true when the row was written.
//   - Returns created=false, err=nil when the unique key already exists
//     (a concurrent duplicate or a repeated action).
func (r *SwipeRepository) Create(ctx context.Context, s *db.Swipe) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(s)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Latest returns the most recent swipe userID -> targetUserID, or nil.
func (r *SwipeRepository) Latest(ctx context.Context, userID, targetUserID uint64) (*db.Swipe, error) {
	var s db.Swipe
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_user_id = ?", userID, targetUserID).
		Order("id DESC").
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// History returns every swipe made by userID, oldest first.
func (r *SwipeRepository) History(ctx context.Context, userID uint64) ([]db.Swipe, error) {
	var swipes []db.Swipe
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&swipes).Error
	return swipes, err
}

// SwipedTargets returns the distinct users userID has swiped on.
func (r *SwipeRepository) SwipedTargets(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("target_user_id", &ids).Error
	return ids, err
}

// CountLikers returns how many users currently like the given recipient.
//
// Behavior:
//   - Counts users whose latest swipe toward recipient is LIKE.
//   - Excludes users whose latest swipe from recipient is DISLIKE.
//   - Used in conjunction with Redis cache (DB is fallback).
func (r *SwipeRepository) CountLikers(ctx context.Context, recipientID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("swipes s").
		Where("s.target_user_id = ? AND s.action = ?", recipientID, db.ActionLike).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes later
				WHERE later.user_id = s.user_id
				  AND later.target_user_id = s.target_user_id
				  AND later.id > s.id
			)`).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes s2
				WHERE s2.user_id = ?
				  AND s2.target_user_id = s.user_id
				  AND s2.action = ?
				  AND NOT EXISTS (
					SELECT 1 FROM swipes s3
					WHERE s3.user_id = s2.user_id
					  AND s3.target_user_id = s2.target_user_id
					  AND s3.id > s2.id
				  )
			)`, recipientID, db.ActionDislike).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
