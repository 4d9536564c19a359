package main

import (
	"fmt"
	"os"
	"time"

	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/idgen"
	"github.com/oggyb/muzz-match/internal/logger"
)

// seed resets the configured database with demo data and prints a bearer
// token per seeded user, ready for grpcurl.
func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	ids, err := idgen.NewAllocator(cfg.ID.WorkerID, idgen.WithEpoch(time.UnixMilli(cfg.ID.EpochMS).UTC()))
	if err != nil {
		log.Error("failed to init id allocator", "err", err)
		os.Exit(1)
	}

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	users, err := db.SeedTestData(database, ids, log)
	if err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	tokens := auth.NewJWTValidator(cfg.Auth)
	for _, u := range users {
		token, err := tokens.Sign(u.ID)
		if err != nil {
			log.Error("failed to sign token", "user_id", u.ID, "err", err)
			os.Exit(1)
		}
		fmt.Printf("%s\t%s\n", idgen.Format(u.ID), token)
	}

	log.Info("seeding completed", "users", len(users))
}
