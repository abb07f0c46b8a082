package kafka_middleware

import (
	"context"

	"amokanban/pkg/kafka"
	"amokanban/pkg/metrics"
)

// MetricsProducerMiddleware counts publishes per event type and outcome.
func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		err := next(ctx, msg)
		m.IncEventPublished(msg.GetEventType(), err)
		return err
	}
}
