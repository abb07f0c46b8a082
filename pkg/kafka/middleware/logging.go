package kafka_middleware

import (
	"context"
	"time"

	"amokanban/pkg/kafka"
	"amokanban/pkg/logger"
)

// LoggingProducerMiddleware logs every publish with its outcome and duration.
func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)

		attrs := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_type", msg.GetEventType(),
			"event_id", msg.GetEventID(),
			"correlation_id", msg.GetCorrelationID(),
			"duration", time.Since(start),
		}
		if err != nil {
			log.Error("Failed to publish event", append(attrs, "error", err)...)
		} else {
			log.Debug("Event published", attrs...)
		}
		return err
	}
}
