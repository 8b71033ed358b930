package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"audient.app/internal/fieldops"
	"audient.app/internal/workhours"
)

const (
	orgConfigPrefix     = "org_config:"
	DefaultOrgConfigTTL = 5 * time.Minute
)

// OrgConfigCache caches organization work-hours windows in Redis.
type OrgConfigCache struct {
	cmd Commands
	ttl time.Duration
}

var _ fieldops.ConfigCache = (*OrgConfigCache)(nil)

// NewOrgConfigCache returns a cache whose entries expire after ttl
// (DefaultOrgConfigTTL when ttl <= 0).
func NewOrgConfigCache(cmd Commands, ttl time.Duration) *OrgConfigCache {
	if ttl <= 0 {
		ttl = DefaultOrgConfigTTL
	}
	return &OrgConfigCache{cmd: cmd, ttl: ttl}
}

func orgConfigKey(orgID string) string { return orgConfigPrefix + orgID }

// Get returns the cached config. A miss is (zero, false, nil); an entry that
// no longer validates is dropped and reported as a miss.
func (c *OrgConfigCache) Get(ctx context.Context, orgID string) (workhours.Config, bool, error) {
	raw, err := c.cmd.Get(ctx, orgConfigKey(orgID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return workhours.Config{}, false, nil
	}
	if err != nil {
		return workhours.Config{}, false, fmt.Errorf("get org config: %w", err)
	}
	var cfg workhours.Config
	if err := json.Unmarshal(raw, &cfg); err != nil || cfg.Validate() != nil {
		_ = c.Invalidate(ctx, orgID)
		return workhours.Config{}, false, nil
	}
	return cfg, true, nil
}

func (c *OrgConfigCache) Set(ctx context.Context, orgID string, cfg workhours.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := c.cmd.Set(ctx, orgConfigKey(orgID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set org config: %w", err)
	}
	return nil
}

func (c *OrgConfigCache) Invalidate(ctx context.Context, orgID string) error {
	if err := c.cmd.Del(ctx, orgConfigKey(orgID)).Err(); err != nil {
		return fmt.Errorf("invalidate org config: %w", err)
	}
	return nil
}
