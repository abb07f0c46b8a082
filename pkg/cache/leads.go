package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"amokanban/pkg/logger"
	"amokanban/pkg/model"

	"github.com/redis/go-redis/v9"
)

const leadsKeyPrefix = "amokanban:leads:"

// LeadCache stores CRM lead listings.
type LeadCache interface {
	GetLeads(ctx context.Context, key string) ([]model.AmoLead, bool, error)
	SetLeads(ctx context.Context, key string, leads []model.AmoLead) error
}

// LeadsKey identifies the listing of a pipeline narrowed to statuses.
func LeadsKey(pipelineID int64, statusIDs []int64) string {
	parts := make([]string, len(statusIDs))
	for i, s := range statusIDs {
		parts[i] = strconv.FormatInt(s, 10)
	}
	status := strings.Join(parts, ",")
	if status == "" {
		status = "all"
	}
	return fmt.Sprintf("%s%d:%s", leadsKeyPrefix, pipelineID, status)
}

type RedisLeadCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisLeadCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisLeadCache {
	return &RedisLeadCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// GetLeads reports ok=false on a miss. A corrupt entry is treated as a miss.
func (c *RedisLeadCache) GetLeads(ctx context.Context, key string) ([]model.AmoLead, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get leads from cache: %w", err)
	}

	var leads []model.AmoLead
	if err := json.Unmarshal(data, &leads); err != nil {
		c.log.Warn("Discarding unreadable cache entry", "key", key, "error", err)
		return nil, false, nil
	}

	c.log.Debug("Leads served from cache", "key", key, "count", len(leads))
	return leads, true, nil
}

func (c *RedisLeadCache) SetLeads(ctx context.Context, key string, leads []model.AmoLead) error {
	data, err := json.Marshal(leads)
	if err != nil {
		return fmt.Errorf("failed to marshal leads: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache leads: %w", err)
	}
	return nil
}

func (c *RedisLeadCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
