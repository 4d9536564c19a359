package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/idgen"
	"github.com/oggyb/muzz-match/internal/metrics"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/service/chat"
	"github.com/oggyb/muzz-match/internal/service/discovery"
	"github.com/oggyb/muzz-match/internal/service/match"
	"github.com/oggyb/muzz-match/internal/service/swipe"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.) and the
// services built on top of them.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	IDs        *idgen.Allocator
	Metrics    *metrics.Metrics
	Tokens     *auth.JWTValidator

	Users     *repository.UserRepository
	Swipes    *swipe.Engine
	Matches   *match.Registry
	Discovery *discovery.Finder
	Chat      *chat.Service
}

// New wires the service graph. rdb and m may be nil: like counts are then
// always read from the database and nothing is measured.
func New(cfg *config.Config, database *gorm.DB, rdb *cache.RedisCache, ids *idgen.Allocator, logger *slog.Logger, m *metrics.Metrics) *AppContext {
	users := repository.NewUserRepository(database)
	matches := match.NewRegistry(repository.NewMatchRepository(database, ids), m)

	swipeOpts := []swipe.Option{swipe.WithMetrics(m)}
	if rdb != nil {
		swipeOpts = append(swipeOpts, swipe.WithCache(rdb))
	}
	swipes := swipe.NewEngine(ids, repository.NewSwipeRepository(database), matches, swipeOpts...)

	finder := discovery.NewFinder(ids, users, swipes,
		discovery.WithPageSize(cfg.Discovery.PageSize, cfg.Discovery.MaxPageSize),
	)

	chatSvc := chat.NewService(ids, matches, repository.NewMessageRepository(database), cfg.Chat,
		chat.WithMetrics(m),
	)

	return &AppContext{
		Config:     cfg,
		DB:         database,
		RedisCache: rdb,
		Logger:     logger,
		IDs:        ids,
		Metrics:    m,
		Tokens:     auth.NewJWTValidator(cfg.Auth),
		Users:      users,
		Swipes:     swipes,
		Matches:    matches,
		Discovery:  finder,
		Chat:       chatSvc,
	}
}
