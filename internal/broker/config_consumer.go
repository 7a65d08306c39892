package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"trialops/internal/config"
	"trialops/internal/logger"
	"trialops/pkg/logging"
	"trialops/pkg/metrics"
	"trialops/pkg/models"
)

type ConfigEventHandler func(ctx context.Context, event models.ConfigUpdateEvent) error

// ConfigEventConsumer is a plain reader for the low-volume rule-change topic.
// Handler errors are logged, never retried: the periodic rule reload is the
// safety net for a missed event.
type ConfigEventConsumer struct {
	cfg         config.KafkaConfig
	reader      *kafka.Reader
	logger      logger.Logger
	serviceName string
}

func NewConfigEventConsumer(cfg config.KafkaConfig, serviceName string, log logger.Logger) *ConfigEventConsumer {
	return &ConfigEventConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: serviceName,
	}
}

func (c *ConfigEventConsumer) Consume(ctx context.Context, handler ConfigEventHandler) error {
	topic := c.cfg.ConfigUpdateTopic

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID + "-config",
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	consumeCtx := logging.WithServiceName(ctx, c.serviceName)
	c.logger.InfowCtx(consumeCtx, "Started consuming config updates",
		"topic", topic,
	)

	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfowCtx(consumeCtx, "Stopped consuming config updates",
					"topic", topic,
					"reason", "context canceled",
				)
				return ctx.Err()
			}
			c.logger.ErrorwCtx(consumeCtx, "Error reading config update",
				"error", err,
				"topic", topic,
			)
			time.Sleep(time.Second)
			continue
		}

		metrics.IncKafkaMessagesRead(c.serviceName, topic)

		var event models.ConfigUpdateEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			c.logger.ErrorwCtx(consumeCtx, "Failed to unmarshal config update",
				"error", err,
				"topic", topic,
			)
			continue
		}

		if err := handler(consumeCtx, event); err != nil {
			c.logger.ErrorwCtx(consumeCtx, "Config update handler failed",
				"error", err,
				"event_type", event.EventType,
				"rule_id", event.RuleID,
			)
		}
	}
}

func (c *ConfigEventConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
