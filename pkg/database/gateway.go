package database

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/pkg/config"
)

// Gateway owns the PostgreSQL pool for the lifetime of the process.
type Gateway struct {
	db       *sqlx.DB
	logger   *zap.Logger
	interval time.Duration
	healthy  atomic.Bool
	onHealth func(bool)
}

// Retry describes the bounded exponential backoff used while connecting.
type Retry struct {
	Attempts   int
	Initial    time.Duration
	MaxBackoff time.Duration
}

// Delay returns the wait before attempt n (1-based), doubling up to MaxBackoff.
func (r Retry) Delay(n int) time.Duration {
	d := r.Initial
	if d <= 0 {
		d = time.Second
	}
	for i := 1; i < n; i++ {
		d *= 2
		if r.MaxBackoff > 0 && d >= r.MaxBackoff {
			return r.MaxBackoff
		}
	}
	return d
}

// DSN renders the lib/pq connection string.
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// Connect opens the pool and pings it with backoff until it answers or attempts run out.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	retry := Retry{Attempts: cfg.ConnectRetries, Initial: cfg.ConnectBackoff, MaxBackoff: cfg.ConnectMaxBackoff}
	if err := pingWithRetry(ctx, db, retry, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	gw := NewGateway(db, logger, cfg.HealthInterval)
	return gw, nil
}

// NewGateway wraps an existing handle; used by Connect and by tests with sqlmock.
func NewGateway(db *sqlx.DB, logger *zap.Logger, interval time.Duration) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	gw := &Gateway{db: db, logger: logger, interval: interval}
	gw.healthy.Store(true)
	return gw
}

func pingWithRetry(ctx context.Context, db *sqlx.DB, retry Retry, logger *zap.Logger) error {
	attempts := retry.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = db.PingContext(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		wait := retry.Delay(attempt)
		logger.Warn("database not reachable, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", wait),
			zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return fmt.Errorf("connect database: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("connect database after %d attempts: %w", attempts, lastErr)
}

// DB exposes the pooled handle to repositories.
func (g *Gateway) DB() *sqlx.DB {
	return g.db
}

// Ping checks connectivity and records the result.
func (g *Gateway) Ping(ctx context.Context) error {
	err := g.db.PingContext(ctx)
	g.setHealthy(err)
	return err
}

// Healthy reports the result of the latest ping.
func (g *Gateway) Healthy() bool {
	return g.healthy.Load()
}

// Watch pings on an interval until ctx is cancelled, logging connectivity transitions.
// database/sql re-dials dropped connections on demand, so the watcher only observes.
func (g *Gateway) Watch(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_ = g.Ping(pingCtx)
			cancel()
		}
	}
}

func (g *Gateway) setHealthy(err error) {
	was := g.healthy.Swap(err == nil)
	if g.onHealth != nil {
		g.onHealth(err == nil)
	}
	switch {
	case err != nil && was:
		g.logger.Error("database connectivity lost", zap.Error(err))
	case err == nil && !was:
		g.logger.Info("database connectivity restored")
	}
}

// OnHealthChange registers fn to receive every ping outcome. Call before Watch.
func (g *Gateway) OnHealthChange(fn func(healthy bool)) {
	g.onHealth = fn
	if fn != nil {
		fn(g.healthy.Load())
	}
}

// Close releases the pool.
func (g *Gateway) Close() error {
	return g.db.Close()
}
