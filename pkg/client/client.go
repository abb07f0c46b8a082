package client

import (
	"context"
	"time"

	"amokanban/pkg/kafka"
	kafka_config "amokanban/pkg/kafka/config"
	"amokanban/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Client holds the long-lived connections shared by the handlers.
type Client struct {
	Redis *redis.Client
	Kafka *kafka.Producer
}

func NewClient() *Client {
	return &Client{}
}

// SetRedis connects and pings Redis. A failed ping leaves the cache disabled
// instead of stopping the service.
func (c *Client) SetRedis(log *logger.Logger, addr, password string, db int, timeout time.Duration) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis, lead cache disabled",
			"addr", addr,
			"error", err,
		)
		_ = rdb.Close()
		return
	}

	log.Info("Successfully connected to Redis", "addr", addr, "db", db)
	c.Redis = rdb
}

func (c *Client) SetKafka(log *logger.Logger, cfg *kafka_config.Config) {
	producer, err := kafka.NewProducer(cfg, log)
	if err != nil {
		log.Fatal("Failed to create Kafka producer", "error", err)
	}
	log.Info("Kafka producer ready", "brokers", cfg.Brokers, "topic", cfg.Topic)
	c.Kafka = producer
}

// Publisher returns the Kafka producer, or a no-op publisher when Kafka is off.
func (c *Client) Publisher() kafka.Publisher {
	if c == nil || c.Kafka == nil {
		return kafka.NopPublisher{}
	}
	return c.Kafka
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	if c.Kafka != nil {
		if err := c.Kafka.Close(); err != nil {
			log.Error("Failed to close Kafka producer", "error", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}
}
