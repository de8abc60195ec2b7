// Package main provides the event stream follower: it consumes events the
// demo publishes to Redis Streams and logs them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/rueidis"

	"github.com/jnst/event-sourcing-pattern/internal/config"
	"github.com/jnst/event-sourcing-pattern/internal/logger"
	"github.com/jnst/event-sourcing-pattern/internal/model"
	"github.com/jnst/event-sourcing-pattern/internal/service"
)

const (
	groupName         = "event-tail"
	redisBlockTimeout = 1000 // milliseconds
	errorRetryDelay   = 1 * time.Second
	signalBufferSize  = 1
	exitCode          = 1
)

// StreamHandler processes events from Redis Streams.
type StreamHandler struct {
	redisClient rueidis.Client
}

// NewStreamHandler creates a new stream handler instance.
func NewStreamHandler(redisClient rueidis.Client) *StreamHandler {
	return &StreamHandler{
		redisClient: redisClient,
	}
}

func setupRedisClient(cfg *config.Config) (rueidis.Client, error) {
	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		return nil, err
	}

	return redisClient, nil
}

func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, signalBufferSize)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutdown signal received, stopping tail")
		cancel()
	}()

	return ctx, cancel
}

func createConsumerGroup(ctx context.Context, redisClient rueidis.Client, streamKey string) {
	createGroupCmd := redisClient.B().XgroupCreate().Key(streamKey).Group(groupName).Id("0").Mkstream().Build()
	if err := redisClient.Do(ctx, createGroupCmd).Error(); err != nil {
		slog.Info("consumer group creation result (may already exist)", slog.String("error", err.Error()))
	}
}

func runTailLoop(ctx context.Context, handler *StreamHandler, streamKey, consumerName string) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("tail stopped")
			return
		default:
			if err := handler.consumeEvents(ctx, streamKey, consumerName); err != nil {
				slog.Error("error consuming events", slog.String("error", err.Error()))
				time.Sleep(errorRetryDelay)
			}
		}
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	loggerInstance := logger.Setup(cfg.LogLevel)
	slog.SetDefault(loggerInstance)

	if cfg.RedisAddr == "" {
		slog.Error("REDIS_ADDR is required for the tail")
		os.Exit(exitCode)
	}

	redisClient, err := setupRedisClient(cfg)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer redisClient.Close()

	handler := NewStreamHandler(redisClient)
	ctx, cancel := setupSignalHandling()
	defer cancel()

	createConsumerGroup(ctx, redisClient, service.EventStreamKey)

	slog.Info("starting event tail",
		slog.String("stream", service.EventStreamKey),
		slog.String("group", groupName),
		slog.String("consumer", cfg.ConsumerName),
	)

	runTailLoop(ctx, handler, service.EventStreamKey, cfg.ConsumerName)
}

func (h *StreamHandler) readEvents(
	ctx context.Context,
	streamKey, consumerName string,
) (map[string][]rueidis.XRangeEntry, error) {
	readCmd := h.redisClient.B().Xreadgroup().Group(groupName, consumerName).
		Count(1).
		Block(redisBlockTimeout).
		Streams().
		Key(streamKey).
		Id(">").
		Build()

	result := h.redisClient.Do(ctx, readCmd)
	if err := result.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil // block timeout, nothing to read
		}

		return nil, err
	}

	return result.AsXRead()
}

func (h *StreamHandler) acknowledgeEvent(ctx context.Context, streamKey, messageID string) {
	ackCmd := h.redisClient.B().Xack().Key(streamKey).Group(groupName).Id(messageID).Build()
	if err := h.redisClient.Do(ctx, ackCmd).Error(); err != nil {
		slog.Error("failed to ACK event",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()),
		)
	} else {
		slog.Debug("ACKed event", slog.String("message_id", messageID))
	}
}

func (h *StreamHandler) consumeEvents(ctx context.Context, streamKey, consumerName string) error {
	streams, err := h.readEvents(ctx, streamKey, consumerName)
	if err != nil {
		return err
	}

	if streams == nil {
		return nil
	}

	for _, messages := range streams {
		for _, message := range messages {
			if err := h.processEvent(message); err != nil {
				slog.Error("failed to process event",
					slog.String("message_id", message.ID),
					slog.String("error", err.Error()),
				)

				continue
			}

			h.acknowledgeEvent(ctx, streamKey, message.ID)
		}
	}

	return nil
}

func (h *StreamHandler) processEvent(message rueidis.XRangeEntry) error {
	kind, ok := message.FieldValues["event_kind"]
	if !ok {
		return errors.New("missing event_kind in message")
	}

	payloadStr, ok := message.FieldValues["payload"]
	if !ok {
		return errors.New("missing payload in message")
	}

	switch model.Kind(kind) {
	case model.KindProductInvented:
		var payload struct {
			Name string `json:"name"`
			Date string `json:"date"`
		}
		if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
			return fmt.Errorf("failed to parse product invented payload: %w", err)
		}

		slog.Info("product invented",
			slog.String("name", payload.Name),
			slog.String("date", payload.Date),
		)
	case model.KindProductPriced:
		var payload struct {
			Product string `json:"product"`
			Cents   int64  `json:"cents"`
			Date    string `json:"date"`
		}
		if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
			return fmt.Errorf("failed to parse product priced payload: %w", err)
		}

		slog.Info("product priced",
			slog.String("product", payload.Product),
			slog.Int64("cents", payload.Cents),
			slog.String("date", payload.Date),
		)
	case model.KindOutletOpened:
		var payload struct {
			Name string `json:"name"`
			Date string `json:"date"`
		}
		if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
			return fmt.Errorf("failed to parse outlet opened payload: %w", err)
		}

		slog.Info("outlet opened",
			slog.String("name", payload.Name),
			slog.String("date", payload.Date),
		)
	case model.KindOutletStocked:
		var payload struct {
			Outlet   string `json:"outlet"`
			Servings int64  `json:"servings"`
			Product  string `json:"product"`
			Date     string `json:"date"`
		}
		if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
			return fmt.Errorf("failed to parse outlet stocked payload: %w", err)
		}

		slog.Info("outlet stocked",
			slog.String("outlet", payload.Outlet),
			slog.Int64("servings", payload.Servings),
			slog.String("product", payload.Product),
			slog.String("date", payload.Date),
		)
	default:
		slog.Warn("unknown event kind", slog.String("event_kind", kind))
	}

	return nil
}
