// Package tacklebox parses service flags and starts the game-state runtime.
package tacklebox

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/louisbranch/tacklebox/internal/app/server"
	"github.com/louisbranch/tacklebox/internal/catalog"
	"github.com/louisbranch/tacklebox/internal/dispatcher"
	"github.com/louisbranch/tacklebox/internal/game/casino"
	"github.com/louisbranch/tacklebox/internal/game/catch"
	"github.com/louisbranch/tacklebox/internal/game/consume"
	"github.com/louisbranch/tacklebox/internal/game/effects"
	"github.com/louisbranch/tacklebox/internal/game/inventory"
	"github.com/louisbranch/tacklebox/internal/game/ledger"
	"github.com/louisbranch/tacklebox/internal/game/quest"
	"github.com/louisbranch/tacklebox/internal/game/shop"
	"github.com/louisbranch/tacklebox/internal/game/trophy"
	"github.com/louisbranch/tacklebox/internal/identity"
	entrypoint "github.com/louisbranch/tacklebox/internal/platform/cmd"
	"github.com/louisbranch/tacklebox/internal/platform/keylock"
	"github.com/louisbranch/tacklebox/internal/storage/sqlite"
)

// ServiceName identifies the service in telemetry.
const ServiceName = "tacklebox"

// Config holds service configuration.
type Config struct {
	Addr              string `env:"TACKLEBOX_ADDR" envDefault:":8080"`
	DBPath            string `env:"TACKLEBOX_DB_PATH" envDefault:"data/tacklebox.db"`
	CanonicalPlatform string `env:"TACKLEBOX_CANONICAL_PLATFORM" envDefault:"discord"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the sqlite database")
	fs.StringVar(&cfg.CanonicalPlatform, "canonical-platform", cfg.CanonicalPlatform,
		"Platform preferred for cross-platform identity display")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the game-state service.
func Run(ctx context.Context, cfg Config) error {
	cat, err := catalog.LoadEmbedded()
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	locks := keylock.NewRing()
	now := time.Now
	roll := rand.Float64

	services := dispatcher.Services{
		Identity:  identity.NewResolver(store, locks, now, roll, cfg.CanonicalPlatform),
		Ledger:    ledger.NewService(store, now),
		Inventory: inventory.NewService(store, now),
		Effects:   effects.NewEngine(store, cat, now),
		Catch:     catch.NewEngine(store, cat, now, roll),
		Quests:    quest.NewEngine(store, cat, now, roll),
		Trophies:  trophy.NewService(store, now),
		Shop:      shop.NewService(store, cat, now),
		Consume:   consume.NewService(store, cat, now),
		Casino:    casino.NewService(store, cat, now, roll),
	}

	return entrypoint.RunWithTelemetry(ctx, ServiceName, func(ctx context.Context) error {
		srv := server.New(cfg.Addr, dispatcher.New(services, locks))
		log.Printf("listening on %s", cfg.Addr)
		return srv.ListenAndServe(ctx)
	})
}
