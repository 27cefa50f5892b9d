// Command seed inserts the default application user.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"spaapi/internal/cache"
	"spaapi/internal/config"
	"spaapi/internal/database"
	"spaapi/internal/observability"
	"spaapi/internal/repository"
	"spaapi/internal/security"
	"spaapi/internal/seed"
	"spaapi/internal/timeutil"

	"go.opentelemetry.io/otel/attribute"
)

const metricsJob = "spaapi_seed"

func main() {
	if err := run(); err != nil {
		observability.Logger.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	applySchema bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.BoolVar(&opts.applySchema, "schema", true, "Apply the configured schema policy before seeding; with -schema=false the users table must already exist")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func run() error {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(cfg.Env, cfg.LogLevel)

	ctx := observability.WithRunID(context.Background(), observability.NewRunID())

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:  "spaapi-seed",
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			observability.Logger.WarnContext(ctx, "Tracer shutdown failed", "error", err)
		}
	}()

	observability.Logger.InfoContext(ctx, "Database seeder starting",
		"env", cfg.Env, "driver", cfg.DBDriver, "apply_schema", opts.applySchema)

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: opts.applySchema})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if cfg.RedisURL != "" {
		release, err := acquireSeedLock(ctx, cfg)
		if err != nil {
			return err
		}
		defer release()
	}

	seeder := seed.NewSeeder(
		repository.NewUserRepository(db),
		security.NewBcryptHasher(cfg.BcryptCost),
		timeutil.SystemClock{},
	)

	runErr := runSeeder(ctx, seeder)

	if err := observability.PushMetrics(ctx, cfg.PushgatewayURL, metricsJob); err != nil {
		observability.Logger.WarnContext(ctx, "Metrics push failed", "error", err)
	}
	if runErr != nil {
		return runErr
	}

	return reportSeededUser(ctx, repository.NewUserRepository(db))
}

// reportSeededUser logs the row the run just inserted. Without a unique index
// earlier runs leave older rows behind, so the newest one is reported along
// with the total.
func reportSeededUser(ctx context.Context, repo repository.UserRepository) error {
	user, err := repo.LatestByEmail(ctx, seed.DefaultEmail)
	if err != nil {
		return fmt.Errorf("read back seeded user: %w", err)
	}
	count, err := repo.CountByEmail(ctx, seed.DefaultEmail)
	if err != nil {
		return fmt.Errorf("count seeded users: %w", err)
	}

	attrs := []any{"id", user.ID, "email", user.Email, "rows_with_email", count}
	if user.EmailVerifiedAt != nil {
		attrs = append(attrs, "email_verified_at", timeutil.ISO8601(*user.EmailVerifiedAt))
	}
	observability.Logger.InfoContext(ctx, "Seeded user", attrs...)
	return nil
}

// runSeeder wraps a single Run in a span and records its outcome.
func runSeeder(ctx context.Context, s *seed.Seeder) error {
	span, ctx := observability.NewSpan(ctx, "seed.run", attribute.String("seed.email", seed.DefaultEmail))
	defer span.End()

	start := time.Now()
	err := s.Run(ctx)
	observability.ObserveSeedRun(start, err)
	if err != nil {
		span.SetError(err)
	}
	return err
}

// acquireSeedLock stops two seeders from racing on the same database. The
// returned func releases the lock and closes the client.
func acquireSeedLock(ctx context.Context, cfg *config.Config) (func(), error) {
	client, err := cache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	lock := cache.NewRunLock(client, cache.SeedLockKey, time.Duration(cfg.SeedLockTTLSeconds)*time.Second)
	if err := lock.Acquire(ctx); err != nil {
		_ = client.Close()
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, fmt.Errorf("another seeder is running: %w", err)
		}
		return nil, err
	}
	observability.Logger.InfoContext(ctx, "Seed lock acquired", "key", lock.Key())

	return func() {
		if _, err := lock.Release(context.Background()); err != nil {
			observability.Logger.WarnContext(ctx, "Seed lock release failed", "error", err)
		}
		_ = client.Close()
	}, nil
}
