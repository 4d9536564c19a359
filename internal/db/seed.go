package db

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-match/internal/idgen"
)

// SeedTestData resets the database and populates it with demo profiles, swipes and matches.
//
// Behavior:
//  1. Clears messages, matches, swipes, users and identities.
//  2. Creates 20 identities (password "password") with complete profiles:
//     10 male / 10 female, split across two cities, all with preferences.
//  3. Generates ~200 swipes with ~70% likes; every 3rd pair is forced into
//     a mutual like and gets its Match pair.
//
// Returns the seeded users in creation order.
func SeedTestData(db *gorm.DB, ids *idgen.Allocator, log *slog.Logger) ([]User, error) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "matches", "swipes", "users", "identities"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	cities := []string{"London", "Manchester"}

	// --- Seed identities + profiles ---
	users := make([]User, 0, 20)
	for i := 1; i <= 20; i++ {
		identityID, err := ids.Next()
		if err != nil {
			return nil, err
		}
		identity := Identity{
			ID:           identityID,
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			AuthProvider: "local",
		}
		if err := db.Create(&identity).Error; err != nil {
			return nil, fmt.Errorf("failed to seed identity: %w", err)
		}

		userID, err := ids.Next()
		if err != nil {
			return nil, err
		}

		gender, interested := "male", "female"
		if i > 10 {
			gender, interested = "female", "male"
		}
		name := fmt.Sprintf("user%d", i)
		age := 22 + r.Intn(15)
		city := cities[i%len(cities)]
		country := "UK"

		user := User{
			ID:         userID,
			IdentityID: identityID,
			Name:       &name,
			Age:        &age,
			Gender:     &gender,
			City:       &city,
			Country:    &country,
		}
		user.SetPreferences(Preferences{MinAge: 20, MaxAge: 40, InterestedInGender: interested, MaxDistance: 50})

		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to seed user: %w", err)
		}
		users = append(users, user)
	}
	log.Info("seeded users", "count", len(users))

	// --- Seed swipes (~200) ---
	counter, matches := 0, 0
	for a := range users {
		for j := 0; j < 12; j++ { // each user swipes on ~12 others
			b := r.Intn(len(users))
			actor, target := users[a], users[b]
			if actor.ID == target.ID || *actor.Gender == *target.Gender {
				continue
			}

			action := ActionDislike
			if r.Intn(100) < 70 {
				action = ActionLike
			}

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				action = ActionLike
				if err := seedSwipe(db, ids, target.ID, actor.ID, ActionLike); err != nil {
					return nil, err
				}
				created, err := seedMatch(db, ids, actor.ID, target.ID)
				if err != nil {
					return nil, err
				}
				if created {
					matches++
				}
			}

			if err := seedSwipe(db, ids, actor.ID, target.ID, action); err != nil {
				return nil, err
			}
			counter++
		}
	}
	log.Info("seeded swipes", "count", counter, "matches", matches)

	return users, nil
}

func seedSwipe(db *gorm.DB, ids *idgen.Allocator, userID, targetID uint64, action string) error {
	id, err := ids.Next()
	if err != nil {
		return err
	}
	s := Swipe{ID: id, UserID: userID, TargetUserID: targetID, Action: action, CreatedAt: time.Now().UTC()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&s).Error; err != nil {
		return fmt.Errorf("failed to seed swipe: %w", err)
	}
	return nil
}

func seedMatch(db *gorm.DB, ids *idgen.Allocator, a, b uint64) (bool, error) {
	id, err := ids.Next()
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	pair := []Match{
		{ID: id, UserID: a, TargetUserID: b, CreatedAt: now},
		{ID: id, UserID: b, TargetUserID: a, CreatedAt: now},
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&pair)
	if res.Error != nil {
		return false, fmt.Errorf("failed to seed match: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
