package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stackdesk/zendesk-mcp/pkg/config"
	"github.com/stackdesk/zendesk-mcp/pkg/cursor"
	"github.com/stackdesk/zendesk-mcp/pkg/mcpserver"
	"github.com/stackdesk/zendesk-mcp/pkg/observability"
	"github.com/stackdesk/zendesk-mcp/pkg/zendesk"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	store, cleanup, err := buildCursorStore(ctx, cfg)
	if err != nil {
		logger.Fatal("cursor store init failed", zap.Error(err))
	}
	defer cleanup()

	client, err := zendesk.NewClient(zendesk.Config{
		Subdomain: cfg.Subdomain,
		Email:     cfg.Email,
		APIToken:  cfg.APIToken,
	},
		zendesk.WithCursorStore(store, cfg.CursorLabel),
		zendesk.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("zendesk client init failed", zap.Error(err))
	}

	srv := mcpserver.New(client, logger)
	logger.Info("starting zendesk-mcp",
		zap.String("transport", cfg.Transport),
		zap.String("cursor_backend", cfg.CursorBackend),
		zap.String("subdomain", cfg.Subdomain))

	switch cfg.Transport {
	case config.TransportHTTP:
		err = srv.ServeHTTP(cfg.HTTPAddr)
	default:
		err = srv.ServeStdio()
	}
	if err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// buildCursorStore picks the incremental checkpoint backend. The
// cleanup closes the backing connection pool when there is one.
func buildCursorStore(ctx context.Context, cfg *config.Config) (cursor.Store, func(), error) {
	noop := func() {}
	switch cfg.CursorBackend {
	case config.CursorBackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, err
		}
		return cursor.NewRedisStore(client), func() { client.Close() }, nil
	case config.CursorBackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		store, err := cursor.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil
	default:
		return cursor.NewMemoryStore(), noop, nil
	}
}
