package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/internal/adapters/file"
	"github.com/aretw0/flowgraph/internal/config"
	loamstore "github.com/aretw0/flowgraph/pkg/adapters/loam"
	"github.com/aretw0/flowgraph/pkg/adapters/memory"
	"github.com/aretw0/flowgraph/pkg/adapters/postgres"
	redisstore "github.com/aretw0/flowgraph/pkg/adapters/redis"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/observability"
	"github.com/aretw0/flowgraph/pkg/persistence/middleware"
	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/aretw0/flowgraph/pkg/session"
)

// ErrInvalidKey is returned when the configured encryption key cannot be used.
var ErrInvalidKey = errors.New("invalid encryption key")

// Backends bundles the stores selected by the configuration.
type Backends struct {
	Graphs   ports.GraphStore
	Sessions ports.SessionStore
	Edits    ports.TemplateEditsStore
	Locker   ports.DistributedLocker

	closers []func() error
}

// Close releases every connection the backends hold.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenBackends connects the stores for cfg.Store.Driver.
//
// The redis driver keeps graphs in the loam directory; Redis only holds
// sessions and locks. Whenever a Redis URL is configured, sessions and
// locks move to Redis regardless of the driver.
func OpenBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		b.Graphs = memory.NewGraphStore()
		b.Edits = memory.NewEditsStore()
		b.Sessions = memory.NewStore()

	case config.DriverLoam, config.DriverRedis:
		store, err := loamstore.Open(cfg.Store.LoamDir)
		if err != nil {
			return nil, err
		}
		b.Graphs = store
		b.Edits = store
		b.Sessions = file.New(cfg.Store.SessionDir)

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Graphs = postgres.NewGraphStore(db)
		b.Edits = postgres.NewEditsStore(db)
		b.Sessions = postgres.NewSessionStore(db)

	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, cfg.Store.Driver)
	}

	if cfg.Store.RedisURL != "" {
		opts := []redisstore.Option{redisstore.WithPrefix(cfg.Store.KeyPrefix)}
		if cfg.Store.SessionTTL > 0 {
			opts = append(opts, redisstore.WithTTL(cfg.Store.SessionTTL))
		}
		store, err := redisstore.NewFromURL(cfg.Store.RedisURL, opts...)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			_ = b.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.closers = append(b.closers, store.Close)
		b.Sessions = store
		b.Locker = redisstore.NewLocker(store.Client(), cfg.Store.KeyPrefix)
	}

	mws, err := sessionMiddlewares(cfg)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Sessions = middleware.Chain(b.Sessions, mws...)

	logger.Debug("Backends opened",
		"driver", cfg.Store.Driver,
		"redis", cfg.Store.RedisURL != "",
		"encrypted", cfg.Encryption.Key != "",
	)
	return b, nil
}

// sessionMiddlewares masks configured keys before sealing the session.
func sessionMiddlewares(cfg config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Privacy.MaskPatterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Privacy.MaskPatterns))
	}
	if cfg.Encryption.Key == "" {
		return mws, nil
	}

	active, err := decodeKey(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range cfg.Encryption.FallbackKeys {
		fallback, err := decodeKey(k)
		if err != nil {
			return nil, err
		}
		enc.FallbackKeys = append(enc.FallbackKeys, fallback)
	}
	return append(mws, middleware.NewEncryptionMiddleware(enc)), nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: need 32 bytes, got %d", ErrInvalidKey, len(key))
	}
	return key, nil
}

// NewEngine builds an engine wired to the logger, and to metrics on reg when
// they are enabled and reg is not nil.
func NewEngine(cfg config.Config, logger *slog.Logger, reg prometheus.Registerer, hooks ...domain.LifecycleHooks) *flowgraph.Engine {
	opts := []flowgraph.Option{flowgraph.WithLogger(logger)}
	if cfg.Metrics.Enabled && reg != nil {
		opts = append(opts, flowgraph.WithMetrics(observability.NewMetrics(reg)))
	}
	if len(hooks) > 0 {
		opts = append(opts, flowgraph.WithLifecycleHooks(observability.Chain(hooks...)))
	}
	return flowgraph.New(opts...)
}

// NewService opens the backends and assembles the service around engine.
// The caller owns the returned Backends and must close them.
func NewService(ctx context.Context, cfg config.Config, engine *flowgraph.Engine, logger *slog.Logger) (*flowgraph.Service, *Backends, error) {
	b, err := OpenBackends(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening stores: %w", err)
	}

	mgrOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(cfg.Store.LockTTL),
	}
	if b.Locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(b.Locker))
	}

	svc := flowgraph.NewService(engine, b.Graphs, b.Sessions, b.Edits,
		flowgraph.WithSessionManager(session.NewManager(b.Sessions, mgrOpts...)),
		flowgraph.WithServiceLogger(logger),
	)
	return svc, b, nil
}
