package host

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/stockyard-io/stockyard/pkg/storage"
)

// Well-known host setting keys consulted by the plugin registry.
const (
	SettingEnablePluginTasks = "plugins.enable_tasks"
	SettingEnablePluginApps  = "plugins.enable_apps"
	SettingEnablePluginURLs  = "plugins.enable_urls"
)

const (
	hostSettingScope = "host"
	settingCacheTTL  = 5 * time.Minute
)

// Settings exposes host-level configuration flags backed by the config store,
// with an optional Redis cache in front for hot lookups.
type Settings struct {
	store storage.ConfigStore
	cache *redis.Client
	log   *logrus.Logger
}

// NewSettings creates a host settings accessor. The cache client may be nil.
func NewSettings(store storage.ConfigStore, cache *redis.Client, log *logrus.Logger) *Settings {
	if log == nil {
		log = logrus.New()
	}
	return &Settings{store: store, cache: cache, log: log}
}

func settingCacheKey(key string) string {
	return fmt.Sprintf("setting:%s:%s", hostSettingScope, key)
}

// Get returns a host setting value, or the fallback when unset or the store
// is unreachable.
func (s *Settings) Get(ctx context.Context, key, fallback string) string {
	if s.cache != nil {
		if value, err := s.cache.Get(ctx, settingCacheKey(key)).Result(); err == nil {
			return value
		} else if err != redis.Nil {
			s.log.Warnf("Settings cache read failed for %s: %v", key, err)
		}
	}

	value, ok, err := s.store.GetSetting(ctx, hostSettingScope, key)
	if err != nil {
		s.log.Warnf("Settings store read failed for %s: %v", key, err)
		return fallback
	}
	if !ok {
		return fallback
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, settingCacheKey(key), value, settingCacheTTL).Err(); err != nil {
			s.log.Warnf("Settings cache write failed for %s: %v", key, err)
		}
	}
	return value
}

// Set writes a host setting and drops any cached copy.
func (s *Settings) Set(ctx context.Context, key, value string) error {
	if err := s.store.SetSetting(ctx, hostSettingScope, key, value); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, settingCacheKey(key)).Err(); err != nil {
			s.log.Warnf("Settings cache invalidation failed for %s: %v", key, err)
		}
	}
	return nil
}

// Bool returns a host setting interpreted as a boolean.
func (s *Settings) Bool(ctx context.Context, key string, fallback bool) bool {
	value := s.Get(ctx, key, strconv.FormatBool(fallback))
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// SetBool writes a boolean host setting.
func (s *Settings) SetBool(ctx context.Context, key string, value bool) error {
	return s.Set(ctx, key, strconv.FormatBool(value))
}
