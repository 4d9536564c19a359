// Package discovery finds compatible, not yet swiped users and manages the
// profile fields discovery depends on.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/idgen"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/repository"
)

const (
	DefaultPageSize    = 10
	DefaultMaxPageSize = 50
)

// UserStore is the profile persistence. *repository.UserRepository satisfies it.
type UserStore interface {
	Create(ctx context.Context, u *db.User) error
	Get(ctx context.Context, id uint64) (*db.User, error)
	GetByIdentity(ctx context.Context, identityID uint64) (*db.User, error)
	Update(ctx context.Context, id uint64, patch *db.User, columns []string) (*db.User, error)
	FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]db.User, error)
}

// Exclusions lists the users a requester already swiped on. *swipe.Engine satisfies it.
type Exclusions interface {
	SwipedTargets(ctx context.Context, userID uint64) ([]uint64, error)
}

// Page is one page of candidates. NextCursor is the id of the last
// candidate when the page is full, nil otherwise.
type Page struct {
	Candidates []db.User
	NextCursor *uint64
}

type Finder struct {
	users       UserStore
	swiped      Exclusions
	ids         *idgen.Allocator
	pageSize    int
	maxPageSize int
}

type Option func(*Finder)

// WithPageSize sets the default and maximum limit.
func WithPageSize(size, max int) Option {
	return func(f *Finder) {
		if size > 0 {
			f.pageSize = size
		}
		if max >= f.pageSize {
			f.maxPageSize = max
		}
	}
}

func NewFinder(ids *idgen.Allocator, users UserStore, swiped Exclusions, opts ...Option) *Finder {
	f := &Finder{
		users:       users,
		swiped:      swiped,
		ids:         ids,
		pageSize:    DefaultPageSize,
		maxPageSize: DefaultMaxPageSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FindCandidates returns up to limit users compatible with requester.
//
// Behavior:
//   - Requester preferences and age/gender/city must be set (Validation).
//   - Candidates satisfy requester preferences and accept the requester back,
//     live in the same city, are not in excludedIDs and have id > cursor.
//   - Ordered by id ascending.
//   - NextCursor is set iff the page is full.
func (f *Finder) FindCandidates(ctx context.Context, requester *db.User, excludedIDs []uint64, limit int, cursor *uint64) (Page, error) {
	prefs := requester.Preferences()
	if prefs == nil {
		return Page{}, svcErr.Validation("user preferences not set")
	}
	if requester.Age == nil || requester.Gender == nil || requester.City == nil {
		return Page{}, svcErr.Validation("profile incomplete: age, gender and city are required")
	}
	limit = f.clampLimit(limit)

	users, err := f.users.FindCandidates(ctx, repository.CandidateQuery{
		ExcludedIDs:     excludedIDs,
		AfterID:         cursor,
		Limit:           limit,
		Gender:          prefs.InterestedInGender,
		MinAge:          prefs.MinAge,
		MaxAge:          prefs.MaxAge,
		RequesterGender: *requester.Gender,
		RequesterAge:    *requester.Age,
		City:            *requester.City,
	})
	if err != nil {
		return Page{}, fmt.Errorf("failed to query candidates: %w", err)
	}

	page := Page{Candidates: users}
	if len(users) == limit {
		last := users[len(users)-1].ID
		page.NextCursor = &last
	}
	return page, nil
}

// Discover loads userID, excludes everyone they swiped on and themselves,
// and returns the next page of candidates. An empty first page is NotFound.
func (f *Finder) Discover(ctx context.Context, userID uint64, limit int, cursor *uint64) (Page, error) {
	requester, err := f.GetProfile(ctx, userID)
	if err != nil {
		return Page{}, err
	}

	swiped, err := f.swiped.SwipedTargets(ctx, userID)
	if err != nil {
		return Page{}, err
	}
	excluded := append(swiped, userID)

	page, err := f.FindCandidates(ctx, requester, excluded, limit, cursor)
	if err != nil {
		return Page{}, err
	}
	if cursor == nil && len(page.Candidates) == 0 {
		return Page{}, svcErr.NotFound("no potential matches found, adjust your preferences")
	}

	logger.From(ctx).Debug("candidates found",
		slog.Uint64("user_id", userID),
		slog.Int("count", len(page.Candidates)),
		slog.Int("excluded", len(excluded)),
	)
	return page, nil
}

func (f *Finder) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return f.pageSize
	case limit > f.maxPageSize:
		return f.maxPageSize
	default:
		return limit
	}
}

// GetProfile returns the profile of userID.
func (f *Finder) GetProfile(ctx context.Context, userID uint64) (*db.User, error) {
	u, err := f.users.Get(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// CreateInitialProfile returns the profile owned by identityID, creating an
// empty one on first use.
func (f *Finder) CreateInitialProfile(ctx context.Context, identityID uint64) (*db.User, error) {
	existing, err := f.users.GetByIdentity(ctx, identityID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	id, err := f.ids.Next()
	if err != nil {
		return nil, err
	}
	u := &db.User{ID: id, IdentityID: identityID}
	if err := f.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}
