// Package main provides the event sourcing demonstration: it records a small
// event history, replays it and prints the projected entities as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/rueidis"

	"github.com/jnst/event-sourcing-pattern/internal/config"
	"github.com/jnst/event-sourcing-pattern/internal/logger"
	"github.com/jnst/event-sourcing-pattern/internal/model"
	"github.com/jnst/event-sourcing-pattern/internal/projection"
	"github.com/jnst/event-sourcing-pattern/internal/repository"
	"github.com/jnst/event-sourcing-pattern/internal/service"
)

const exitCode = 1

// eventStore is the full surface the demo needs from a storage adapter: the
// log itself plus name-to-identifier resolution for the projector.
type eventStore interface {
	repository.EventStore
	projection.EntityDirectory
}

func setupStore(ctx context.Context, cfg *config.Config) (eventStore, func(), error) {
	switch cfg.DBDriver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}

		return repository.NewPostgresEventStore(pool), pool.Close, nil
	default:
		db, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		return repository.NewSQLiteEventStore(db), func() { _ = db.Close() }, nil
	}
}

func setupNotifier(cfg *config.Config) (service.EventNotifier, func(), error) {
	if cfg.RedisAddr == "" {
		return nil, func() {}, nil
	}

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		return nil, nil, err
	}

	return service.NewRedisNotifierImpl(redisClient), redisClient.Close, nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	loggerInstance := logger.Setup(cfg.LogLevel)
	slog.SetDefault(loggerInstance)

	ctx := context.Background()

	store, closeStore, err := setupStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer closeStore()

	notifier, closeNotifier, err := setupNotifier(cfg)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer closeNotifier()

	if err := store.CreateSchema(ctx); err != nil {
		slog.Error("failed to create schema", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	eventService := service.NewEventServiceImpl(store, store, notifier)

	events := []model.Event{
		model.NewProductInvented("Chocolate"),
		model.NewProductPriced("Chocolate", 499),
		model.NewOutletOpened("Pismo Beach"),
		model.NewOutletStocked("Pismo Beach", 24, "Chocolate"),
	}

	if err := eventService.Append(ctx, events); err != nil {
		slog.Error("failed to append events", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	stored, err := eventService.Events(ctx)
	if err != nil {
		slog.Error("failed to fetch events", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	slog.Info("replayed event log",
		slog.String("driver", cfg.DBDriver),
		slog.Int("event_count", len(stored)),
	)

	snapshot, err := eventService.Snapshot(ctx)
	if err != nil {
		slog.Error("failed to project snapshot", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	output, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		slog.Error("failed to encode snapshot", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	fmt.Println(string(output))
}
