package db

import (
	"time"
)

// Swipe actions.
const (
	ActionLike    = "LIKE"
	ActionDislike = "DISLIKE"
)

// Identity is the credential record a User belongs to.
type Identity struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement:false"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255"`
	AuthProvider string `gorm:"size:32;not null"`
	CreatedAt    time.Time
}

// Preferences describe who a user wants to be shown.
type Preferences struct {
	MinAge             int
	MaxAge             int
	InterestedInGender string
	MaxDistance        int
}

// User is a profile. Every optional field is nil/empty until the profile is updated.
//
// Preferences are stored flat in nullable pref_* columns so discovery can
// filter on them in SQL. Indexes:
//   - idx_users_discovery(city, gender, age): candidate predicate.
type User struct {
	ID               uint64   `gorm:"primaryKey;autoIncrement:false"`
	IdentityID       uint64   `gorm:"uniqueIndex;not null"`
	Name             *string  `gorm:"size:64"`
	Age              *int     `gorm:"index:idx_users_discovery,priority:3"`
	Gender           *string  `gorm:"size:16;index:idx_users_discovery,priority:2"`
	Bio              *string  `gorm:"size:500"`
	City             *string  `gorm:"size:64;index:idx_users_discovery,priority:1"`
	Country          *string  `gorm:"size:64"`
	ProfilePhoto     *string  `gorm:"size:255"`
	AdditionalPhotos []string `gorm:"serializer:json"`

	PrefMinAge      *int
	PrefMaxAge      *int
	PrefGender      *string `gorm:"size:16"`
	PrefMaxDistance *int

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Preferences returns nil unless the gender and age bounds are all set.
func (u *User) Preferences() *Preferences {
	if u.PrefMinAge == nil || u.PrefMaxAge == nil || u.PrefGender == nil {
		return nil
	}
	p := &Preferences{
		MinAge:             *u.PrefMinAge,
		MaxAge:             *u.PrefMaxAge,
		InterestedInGender: *u.PrefGender,
	}
	if u.PrefMaxDistance != nil {
		p.MaxDistance = *u.PrefMaxDistance
	}
	return p
}

// SetPreferences stores p in the pref_* columns.
func (u *User) SetPreferences(p Preferences) {
	u.PrefMinAge = &p.MinAge
	u.PrefMaxAge = &p.MaxAge
	u.PrefGender = &p.InterestedInGender
	u.PrefMaxDistance = &p.MaxDistance
}

// Swipe is one directional LIKE/DISLIKE. Rows are never updated.
//
// ID comes from the id allocator, so a higher ID is a more recent swipe.
// Unique (user_id, target_user_id, action): one row per action per pair.
type Swipe struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement:false"`
	UserID       uint64    `gorm:"not null;uniqueIndex:idx_swipe_pair_action,priority:1"`
	TargetUserID uint64    `gorm:"not null;uniqueIndex:idx_swipe_pair_action,priority:2;index:idx_swipe_target"`
	Action       string    `gorm:"size:8;not null;uniqueIndex:idx_swipe_pair_action,priority:3"`
	CreatedAt    time.Time `gorm:"not null"`
}

// Match is one direction of a mutual like.
//
// Composite PK (UserID, TargetUserID): at most one row per direction.
// Both directions share ID and CreatedAt; ID doubles as the chat room key.
type Match struct {
	UserID       uint64    `gorm:"primaryKey;autoIncrement:false"`
	TargetUserID uint64    `gorm:"primaryKey;autoIncrement:false"`
	ID           uint64    `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
}

// Message is a chat line inside a match, ordered by Timestamp then ID.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement:false"`
	SenderID  uint64    `gorm:"not null"`
	MatchID   uint64    `gorm:"not null;index:idx_message_match_ts,priority:1"`
	Content   string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"column:sent_at;not null;index:idx_message_match_ts,priority:2"`
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&Identity{}, &User{}, &Swipe{}, &Match{}, &Message{}}
}
