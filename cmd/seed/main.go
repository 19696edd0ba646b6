package main

import (
	"context"
	stdlog "log"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/joho/godotenv"
)

// seed applies the schema and loads the demo catalog into an empty database.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", "error", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate", "error", err)
	}

	n, err := catalog.NewService(&catalog.Repo{DB: db}).SeedDemo(ctx)
	if err != nil {
		log.Fatal("seed", "created", n, "error", err)
	}
	if n == 0 {
		log.Info("catalog already has products, nothing to do")
		return
	}
	log.Info("demo catalog seeded", "products", n)
}
