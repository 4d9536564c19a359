// Package testutil wires in-memory SQLite, miniredis and an id allocator
// for package tests.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/idgen"
)

// NewDB opens an isolated shared-cache in-memory SQLite database with the
// schema migrated. One open connection serializes writers the way a
// row lock would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db.Models()...))
	return database
}

// NewCache starts a miniredis bound to the test lifetime.
func NewCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()

	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

// NewAllocator returns an allocator with worker id 1.
func NewAllocator(t *testing.T) *idgen.Allocator {
	t.Helper()
	a, err := idgen.NewAllocator(1)
	require.NoError(t, err)
	return a
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Profile describes a test user.
type Profile struct {
	ID     uint64
	Gender string
	Age    int
	City   string

	// nil leaves preferences unset
	Prefs *db.Preferences
}

// CreateUser inserts p and returns the stored row.
func CreateUser(t *testing.T, database *gorm.DB, p Profile) db.User {
	t.Helper()

	name := fmt.Sprintf("user%d", p.ID)
	u := db.User{ID: p.ID, IdentityID: p.ID + 1_000_000, Name: &name}
	if p.Gender != "" {
		u.Gender = &p.Gender
	}
	if p.Age != 0 {
		u.Age = &p.Age
	}
	if p.City != "" {
		u.City = &p.City
	}
	if p.Prefs != nil {
		u.SetPreferences(*p.Prefs)
	}
	require.NoError(t, database.Create(&u).Error)
	return u
}

// Config returns a configuration suitable for wiring services in tests.
func Config() *config.Config {
	cfg := &config.Config{}
	cfg.App.ENV = "test"
	cfg.GRPC.Timeout = 5 * time.Second
	cfg.Auth = config.AuthConfig{JWTSecret: "test-secret", Issuer: "muzz-test", TokenTTL: time.Hour}
	cfg.Discovery = config.DiscoveryConfig{PageSize: 10, MaxPageSize: 50}
	cfg.Chat = config.ChatConfig{MaxMessageLen: 2000, OutboxSize: 16}
	return cfg
}
