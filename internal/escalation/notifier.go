package escalation

import (
	"context"
	"fmt"
	"time"

	"trialops/internal/broker"
	"trialops/internal/logger"
	"trialops/pkg/circuitbreaker"
	"trialops/pkg/metrics"
	"trialops/pkg/models"
	"trialops/pkg/retry"
)

// Notifier publishes escalation events to the broker. The producer sits
// behind a circuit breaker with retries, so a flapping broker does not stall
// the scan loop indefinitely.
type Notifier struct {
	producer broker.Producer
	topic    string
	breaker  *circuitbreaker.Wrapper
	policy   retry.Policy
	logger   logger.Logger
}

func NewNotifier(producer broker.Producer, topic string, log logger.Logger) *Notifier {
	return &Notifier{
		producer: producer,
		topic:    topic,
		breaker:  circuitbreaker.NewWrapper(circuitbreaker.DefaultConfig("escalation-producer")),
		policy: retry.Policy{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
		},
		logger: log,
	}
}

func (n *Notifier) Notify(ctx context.Context, event models.EscalationEvent) error {
	err := retry.Retry(ctx, n.policy, func() error {
		_, execErr := n.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
			return nil, n.producer.Publish(ctx, n.topic, event.ItemID, event)
		})
		return execErr
	})

	if err != nil {
		metrics.EscalationNotificationsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to publish escalation for item %s: %w", event.ItemID, err)
	}

	metrics.EscalationNotificationsTotal.WithLabelValues("published").Inc()
	n.logger.InfowCtx(ctx, "Escalation published",
		"item_id", event.ItemID,
		"study_id", event.StudyID,
		"escalation_role", event.EscalationRole,
	)
	return nil
}
