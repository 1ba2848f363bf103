package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tecassist/plankit/handler"
	"github.com/tecassist/plankit/pkg/billing"
	"github.com/tecassist/plankit/pkg/config"
	"github.com/tecassist/plankit/pkg/httpserver"
	"github.com/tecassist/plankit/pkg/logger"
	"github.com/tecassist/plankit/pkg/pg"
	"github.com/tecassist/plankit/pkg/plan"
	"github.com/tecassist/plankit/pkg/redis"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`

	// StoreBackend selects where plan records live: memory, redis or postgres.
	StoreBackend string `env:"PLAN_STORE" envDefault:"memory"`
	// Provider selects the payment processor integration: stripe or paddle.
	Provider string `env:"BILLING_PROVIDER" envDefault:"stripe"`

	CatalogPath string `env:"PLAN_CATALOG_PATH"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithService("pland", cfg.Environment))
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("pland exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	catalog, err := plan.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	store, customers, events, health, closeStores, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	storage := plan.NewStorage(store, catalog, log)
	reconciler := plan.NewReconciler(storage, events, customers, log)
	status := plan.NewStatusService(storage, nil, log)

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	router := handler.NewRouter(
		handler.NewBillingHandler(provider, reconciler, log),
		handler.NewPlanHandler(status, log),
		health...,
	)

	var srvCfg httpserver.Config
	config.MustLoad(&srvCfg)
	return httpserver.New(srvCfg, log).Run(ctx, router)
}

// buildStores wires the persistence backend the deployment selected.
func buildStores(ctx context.Context, cfg appConfig, log *slog.Logger) (
	plan.Store, plan.CustomerIndex, plan.ProcessedEventStore,
	[]func(context.Context) error, func(), error,
) {
	switch cfg.StoreBackend {
	case "postgres":
		var pgCfg pg.Config
		config.MustLoad(&pgCfg)
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
			pool.Close()
			return nil, nil, nil, nil, nil, err
		}
		s := plan.NewPostgresStore(pool)
		return s, s, s, []func(context.Context) error{pg.Healthcheck(pool)}, pool.Close, nil

	case "redis":
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		s := plan.NewRedisStore(client)
		closeFn := func() { _ = client.Close() }
		return s, s, s, []func(context.Context) error{redis.Healthcheck(client)}, closeFn, nil

	case "memory":
		s := plan.NewMemoryStore()
		return s, s, s, nil, func() {}, nil

	default:
		return nil, nil, nil, nil, nil, errors.New("unknown PLAN_STORE backend: " + cfg.StoreBackend)
	}
}

func buildProvider(cfg appConfig) (billing.Provider, error) {
	switch cfg.Provider {
	case "paddle":
		var paddleCfg billing.PaddleConfig
		config.MustLoad(&paddleCfg)
		return billing.NewPaddleProvider(paddleCfg)
	case "stripe":
		var stripeCfg billing.StripeConfig
		config.MustLoad(&stripeCfg)
		return billing.NewStripeProvider(stripeCfg)
	default:
		return nil, errors.New("unknown BILLING_PROVIDER: " + cfg.Provider)
	}
}
