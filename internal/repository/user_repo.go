package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
)

// UserRepository provides profile storage and the discovery query.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Create inserts a new profile.
func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// Get returns a profile by id, or gorm.ErrRecordNotFound.
func (r *UserRepository) Get(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIdentity returns the profile owned by identityID, or gorm.ErrRecordNotFound.
func (r *UserRepository) GetByIdentity(ctx context.Context, identityID uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("identity_id = ?", identityID).Take(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetMany returns the profiles for ids keyed by id. Unknown ids are skipped.
func (r *UserRepository) GetMany(ctx context.Context, ids []uint64) (map[uint64]db.User, error) {
	out := make(map[uint64]db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// Update writes the listed columns of patch to the profile and returns the
// stored row, or gorm.ErrRecordNotFound.
func (r *UserRepository) Update(ctx context.Context, id uint64, patch *db.User, columns []string) (*db.User, error) {
	var updated *db.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u db.User
		if err := tx.Where("id = ?", id).Take(&u).Error; err != nil {
			return err
		}
		if len(columns) > 0 {
			// Select lets nil/zero values through, so a field can be cleared.
			if err := tx.Model(&u).Select(columns).Updates(patch).Error; err != nil {
				return err
			}
			if err := tx.Where("id = ?", id).Take(&u).Error; err != nil {
				return err
			}
		}
		updated = &u
		return nil
	})
	return updated, err
}

// CandidateQuery is the mutual-compatibility filter for discovery.
type CandidateQuery struct {
	ExcludedIDs []uint64
	AfterID     *uint64
	Limit       int

	// what the requester wants
	Gender string
	MinAge int
	MaxAge int

	// who the requester is
	RequesterGender string
	RequesterAge    int
	City            string
}

// FindCandidates returns users matching q ordered by id ascending.
//
// Behavior:
//   - Candidate gender/age satisfy the requester's preferences.
//   - Candidate preferences accept the requester's gender and age.
//   - Same city; excluded ids skipped; id > AfterID when set.
//   - At most q.Limit rows.
func (r *UserRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]db.User, error) {
	query := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("gender = ?", q.Gender).
		Where("age BETWEEN ? AND ?", q.MinAge, q.MaxAge).
		Where("pref_gender = ?", q.RequesterGender).
		Where("pref_min_age <= ? AND pref_max_age >= ?", q.RequesterAge, q.RequesterAge).
		Where("city = ?", q.City)

	if len(q.ExcludedIDs) > 0 {
		query = query.Where("id NOT IN ?", q.ExcludedIDs)
	}
	if q.AfterID != nil {
		query = query.Where("id > ?", *q.AfterID)
	}

	var users []db.User
	err := query.Order("id ASC").Limit(q.Limit).Find(&users).Error
	return users, err
}
