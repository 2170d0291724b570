package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Mecho90/BuildingManagement-sub000/internal/config"
	"github.com/Mecho90/BuildingManagement-sub000/internal/constants"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

const (
	maxRetries     = 5
	connectTimeout = 5 * time.Second
	initialBackoff = 500 * time.Millisecond
)

type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
	Store  repositories.Store
}

// NewApp connects to Postgres, retrying with exponential backoff.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := ConnectWithRetry(ctx, cfg.DBUrl, maxRetries)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, DB: pool, Store: repositories.NewStore(pool)}, nil
}

func ConnectWithRetry(ctx context.Context, databaseURL string, tries uint) (*pgxpool.Pool, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialBackoff
	b.Multiplier = 2

	attempt := 0
	pool, err := backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		attempt++
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		p, err := newDBPool(cctx, databaseURL)
		if err != nil {
			return nil, err
		}
		utils.Logger.Infof("Connected to DB on attempt %d", attempt)
		return p, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
		backoff.WithMaxElapsedTime(constants.DBConnectMaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			utils.Logger.WithError(err).Warnf("Failed DB connect on attempt %d/%d. Retrying in %v...", attempt, tries, next)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect after %d attempts: %w", attempt, err)
	}
	return pool, nil
}

// Migrate applies the embedded schema migrations.
func (a *App) Migrate(ctx context.Context) error {
	return repositories.RunMigrations(ctx, a.DB)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		utils.Logger.Info("DB connection closed.")
	}
}

func newDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	cfg.MaxConnIdleTime = 2 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	return pgxpool.ConnectConfig(ctx, cfg)
}
