package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
)

const (
	MinAge = 18
	MaxAge = 120
)

// ProfilePatch holds the fields to change. nil fields are left untouched.
type ProfilePatch struct {
	Name             *string
	Age              *int
	Gender           *string
	Bio              *string
	City             *string
	Country          *string
	ProfilePhoto     *string
	AdditionalPhotos *[]string
	Preferences      *db.Preferences
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Age == nil && p.Gender == nil && p.Bio == nil &&
		p.City == nil && p.Country == nil && p.ProfilePhoto == nil &&
		p.AdditionalPhotos == nil && p.Preferences == nil
}

// UpdateProfile validates patch and applies the supplied fields to userID.
func (f *Finder) UpdateProfile(ctx context.Context, userID uint64, patch ProfilePatch) (*db.User, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	row, columns := patch.row()
	u, err := f.users.Update(ctx, userID, row, columns)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (p ProfilePatch) validate() error {
	if err := checkLen("name", p.Name, 1, 50); err != nil {
		return err
	}
	if err := checkLen("gender", p.Gender, 1, 16); err != nil {
		return err
	}
	if err := checkLen("bio", p.Bio, 0, 500); err != nil {
		return err
	}
	if err := checkLen("city", p.City, 3, 40); err != nil {
		return err
	}
	if err := checkLen("country", p.Country, 3, 40); err != nil {
		return err
	}
	if p.Age != nil && (*p.Age < MinAge || *p.Age > MaxAge) {
		return svcErr.Validation("age must be between %d and %d", MinAge, MaxAge)
	}
	if pr := p.Preferences; pr != nil {
		if pr.MinAge < MinAge || pr.MaxAge > MaxAge || pr.MinAge > pr.MaxAge {
			return svcErr.Validation("preferences must satisfy %d <= minAge <= maxAge <= %d", MinAge, MaxAge)
		}
		if strings.TrimSpace(pr.InterestedInGender) == "" {
			return svcErr.Validation("preferences.interestedInGender is required")
		}
		if pr.MaxDistance < 0 {
			return svcErr.Validation("preferences.maxDistance must not be negative")
		}
	}
	return nil
}

func checkLen(field string, v *string, min, max int) error {
	if v == nil {
		return nil
	}
	n := utf8.RuneCountInString(strings.TrimSpace(*v))
	if n < min || n > max {
		return svcErr.Validation("%s must be between %d and %d characters", field, min, max)
	}
	return nil
}

// row converts the patch into a User carrying the new values and the list
// of columns to write.
func (p ProfilePatch) row() (*db.User, []string) {
	var (
		u    db.User
		cols []string
	)
	set := func(col string, dst **string, v *string) {
		if v != nil {
			s := strings.TrimSpace(*v)
			*dst = &s
			cols = append(cols, col)
		}
	}
	set("name", &u.Name, p.Name)
	set("gender", &u.Gender, p.Gender)
	set("bio", &u.Bio, p.Bio)
	set("city", &u.City, p.City)
	set("country", &u.Country, p.Country)
	set("profile_photo", &u.ProfilePhoto, p.ProfilePhoto)

	if p.Age != nil {
		u.Age = p.Age
		cols = append(cols, "age")
	}
	if p.AdditionalPhotos != nil {
		u.AdditionalPhotos = *p.AdditionalPhotos
		cols = append(cols, "additional_photos")
	}
	if p.Preferences != nil {
		u.SetPreferences(*p.Preferences)
		cols = append(cols, "pref_min_age", "pref_max_age", "pref_gender", "pref_max_distance")
	}
	return &u, cols
}
