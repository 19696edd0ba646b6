package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	"github.com/ariefcatur/go-storefront/internal/images"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/memstore"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// cartStore is what both the cart and orders services read carts through.
type cartStore interface {
	cart.Store
	orders.Carts
}

type cartEvents interface {
	cart.Events
	httpx.CartFeed
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer log.Sync()

	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var (
		productStore catalog.Store
		carts        cartStore
		orderStore   orders.Store
	)
	switch cfg.StorageDriver {
	case config.DriverMemory:
		st := memstore.New()
		productStore, carts, orderStore = st.Products(), st.Carts(), st.Orders()
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db connect", "error", err)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal("db migrate", "error", err)
		}
		productStore, carts, orderStore = &catalog.Repo{DB: db}, &cart.Repo{DB: db}, &orders.Repo{DB: db}
	default:
		log.Fatal("unknown storage driver", "driver", cfg.StorageDriver)
	}

	products := catalog.NewService(productStore)
	if cfg.StorageDriver == config.DriverMemory {
		n, err := products.SeedDemo(ctx)
		if err != nil {
			log.Fatal("seed demo catalog", "error", err)
		}
		log.Info("demo catalog loaded", "products", n)
	}

	// Redis: cart change feed and order idempotency keys
	var (
		events cartEvents
		idem   orders.Idempotency
	)
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			log.Fatal("redis", "addr", cfg.RedisAddr, "error", err)
		}
		events, idem = &redisx.CartEvents{RDB: rdb}, &redisx.Idempotency{RDB: rdb}
	} else {
		log.Warn("REDIS_ADDR not set, cart feed and idempotency keys are process-local")
		events, idem = memstore.NewBroker(), memstore.NewIdempotency()
	}

	// Kafka producer
	var (
		prod      *kafkax.Producer
		publisher orders.Publisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
		prod.Start(ctx)
		publisher = prod
	} else {
		log.Warn("KAFKA_BROKERS not set, order confirmations are disabled")
	}

	// MinIO
	var imageStore httpx.ImageStore
	if cfg.Minio.Endpoint != "" {
		st, err := images.NewStore(cfg.Minio)
		if err != nil {
			log.Fatal("minio", "error", err)
		}
		bctx, bcancel := context.WithTimeout(ctx, 5*time.Second)
		if err := st.EnsureBucket(bctx); err != nil {
			log.Warn("image bucket unavailable", "bucket", cfg.Minio.Bucket, "error", err)
		}
		bcancel()
		imageStore = st
	}

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, every authenticated route will answer 401")
	}

	cartSvc := cart.NewService(carts, products, events, log, cfg.CartMaxAttempts)
	orderSvc := orders.NewService(orders.Deps{
		Store:       orderStore,
		Carts:       carts,
		Catalog:     products,
		Publisher:   publisher,
		Idempotency: idem,
		CartEvents:  events,
		Log:         log,
		ServiceName: cfg.ServiceName,
		MaxAttempts: cfg.CartMaxAttempts,
	})

	api := httpx.API{
		Log:           log,
		AllowedOrigin: cfg.ClientURL,
		JWTSecret:     []byte(cfg.JWTSecret),
		Products:      products,
		Cart:          cartSvc,
		CartFeed:      events,
		Orders:        orderSvc,
		Images:        imageStore,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr, "driver", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case <-sig:
			log.Info("shutting down")
		case <-gctx.Done():
		}
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Error("http server", "error", err)
	}

	// flush buffered order events before exit
	if prod != nil {
		prod.Close()
		cancel()
		prod.WaitClosed()
	}
}
