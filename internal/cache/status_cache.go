package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GTDGit/gtd_gateway/internal/models"
)

// StatusCache stores each organization's gateway status projection for a
// short TTL, so portal polling does not hit the database on every request.
type StatusCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewStatusCache creates a new StatusCache.
func NewStatusCache(redis *RedisClient, ttl time.Duration) *StatusCache {
	return &StatusCache{
		redis: redis,
		ttl:   ttl,
	}
}

// keyByOrganization returns the Redis key holding an organization's projection.
func (c *StatusCache) keyByOrganization(orgID string) string {
	return fmt.Sprintf("gateway:status:org:%s", orgID)
}

// generationKey returns the Redis key counting an organization's invalidations.
func (c *StatusCache) generationKey(orgID string) string {
	return fmt.Sprintf("gateway:status:gen:%s", orgID)
}

// Get returns the cached projection. ok is false on a miss.
func (c *StatusCache) Get(ctx context.Context, orgID string) ([]models.GatewayStatus, bool, error) {
	raw, err := c.redis.Get(ctx, c.keyByOrganization(orgID))
	if err == ErrMiss {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var list []models.GatewayStatus
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal gateway status: %w", err)
	}
	return list, true, nil
}

// Generation returns the invalidation counter of an organization. Read it
// before loading the projection from the database and pass it to Set.
func (c *StatusCache) Generation(ctx context.Context, orgID string) (int64, error) {
	return c.redis.GetInt64(ctx, c.generationKey(orgID))
}

// Set stores the projection of an organization unless it was invalidated
// after generation was read. A skipped write is not an error.
func (c *StatusCache) Set(ctx context.Context, orgID string, generation int64, list []models.GatewayStatus) error {
	if list == nil {
		list = []models.GatewayStatus{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway status: %w", err)
	}
	_, err = c.redis.SetIfEqual(ctx, c.generationKey(orgID), generation, c.keyByOrganization(orgID), string(data), c.ttl)
	return err
}

// Invalidate drops the cached projection of an organization and bumps its
// generation, so loads that started earlier cannot write it back.
func (c *StatusCache) Invalidate(ctx context.Context, orgID string) error {
	return c.redis.IncrAndDelete(ctx, c.generationKey(orgID), c.keyByOrganization(orgID))
}
