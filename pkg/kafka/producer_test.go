package kafka

import (
	"context"
	"errors"
	"testing"

	kafka_config "amokanban/pkg/kafka/config"
	"amokanban/pkg/logger"
)

func testConfig() *kafka_config.Config {
	return &kafka_config.Config{
		Brokers:              []string{"localhost:9092"},
		Topic:                "amokanban.events",
		ProducerMaxAttempts:  1,
		ProducerBatchTimeout: kafka_config.DefaultProducerBatchTimeout,
		ProducerRequireAcks:  -1,
		ProducerCompression:  "none",
	}
}

func TestNewProducer_Validation(t *testing.T) {
	if _, err := NewProducer(nil, logger.Discard()); err == nil {
		t.Error("expected error for nil config")
	}

	noBrokers := testConfig()
	noBrokers.Brokers = nil
	if _, err := NewProducer(noBrokers, logger.Discard()); err == nil {
		t.Error("expected error without brokers")
	}

	noTopic := testConfig()
	noTopic.Topic = ""
	if _, err := NewProducer(noTopic, logger.Discard()); err == nil {
		t.Error("expected error without topic")
	}
}

func TestProducer_PublishRejectsInvalidMessages(t *testing.T) {
	p, err := NewProducer(testConfig(), logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	if err := p.Publish(context.Background(), Message{Value: []byte("{}")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "1"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}
}

func TestProducer_MiddlewareOrderAndClose(t *testing.T) {
	p, err := NewProducer(testConfig(), logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var order []string
	stop := errors.New("stop before write")
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "first")
		return next(ctx, msg)
	})
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "second:"+msg.Topic)
		return stop
	})

	msg := NewLeadEvent(EventLeadReceived, 5, map[string]string{"action": "add"}, "")
	if err := p.Publish(context.Background(), msg); !errors.Is(err, stop) {
		t.Fatalf("expected middleware error, got %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second:amokanban.events" {
		t.Errorf("unexpected middleware order %v", order)
	}

	if err := p.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := p.Publish(context.Background(), msg); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}
