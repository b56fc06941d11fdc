package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"rtscore/pkg/domain"
)

// settingsCacheTTL bounds staleness of cached tenant settings. Eligibility
// evaluations read settings on every call; a short TTL keeps threshold
// edits visible without hitting Postgres each time.
const settingsCacheTTL = 5 * time.Minute

// SettingsCache fronts a Store with a Redis read-through cache for the
// settings reads. All other methods pass through.
type SettingsCache struct {
	Store
	client *redis.Client
	logger *slog.Logger
}

func NewSettingsCache(store Store, client *redis.Client, logger *slog.Logger) *SettingsCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsCache{Store: store, client: client, logger: logger}
}

func settingsKey(id domain.TenantID) string {
	return fmt.Sprintf("tenant:%s:settings", id)
}

func (c *SettingsCache) FindSettings(ctx context.Context, id domain.TenantID) (Settings, error) {
	raw, err := c.client.Get(ctx, settingsKey(id)).Bytes()
	if err == nil {
		var settings Settings
		if err := json.Unmarshal(raw, &settings); err == nil {
			return settings, nil
		}
		// Corrupt entry: fall through to the store and rewrite.
	}

	settings, err := c.Store.FindSettings(ctx, id)
	if err != nil {
		return Settings{}, err
	}

	payload, merr := json.Marshal(settings)
	if merr == nil {
		if err := c.client.Set(ctx, settingsKey(id), payload, settingsCacheTTL).Err(); err != nil {
			// Cache failures must not fail the read path.
			c.logger.WarnContext(ctx, "failed to cache tenant settings", "tenant_id", id, "error", err)
		}
	}
	return settings, nil
}

func (c *SettingsCache) SaveSettings(ctx context.Context, id domain.TenantID, settings Settings) error {
	if err := c.Store.SaveSettings(ctx, id, settings); err != nil {
		return err
	}
	if err := c.client.Del(ctx, settingsKey(id)).Err(); err != nil {
		c.logger.WarnContext(ctx, "failed to invalidate tenant settings cache", "tenant_id", id, "error", err)
	}
	return nil
}
