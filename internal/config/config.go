// Package config reads the provider's runtime configuration out of the
// viper instance assembled by the CLI, and exposes it as a small typed
// view: the registry URL plus the set of models to prefetch at startup.
package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// URLKey is the config key holding the registry host:port to fetch
// models from. Every other key is treated as a prefetch target whose
// value is the image reference to fetch.
const URLKey = "url"

// DefaultRegistryURL is used when URLKey is unset.
const DefaultRegistryURL = "localhost:5000"

// Config is a read-through view over the process's viper instance.
type Config struct {
	v      *viper.Viper
	logger *zap.Logger
}

// New wraps v. logger may be nil.
func New(v *viper.Viper, logger *zap.Logger) *Config {
	return &Config{v: v, logger: logger}
}

// RegistryURL returns the configured registry host:port, or
// DefaultRegistryURL if URLKey is unset.
func (c *Config) RegistryURL() string {
	if url := c.v.GetString(URLKey); url != "" {
		return url
	}
	return DefaultRegistryURL
}

// PrefetchTargets returns the image references named by the value of
// every config key that does not start with "url". The key itself is
// discarded: the image reference is both the thing to fetch and the
// model_id it is registered under, mirroring the provider's init-time
// contract.
func (c *Config) PrefetchTargets() []string {
	var targets []string
	for _, key := range c.v.AllKeys() {
		if strings.HasPrefix(key, URLKey) {
			continue
		}
		if value := c.v.GetString(key); value != "" {
			targets = append(targets, value)
		}
	}
	return targets
}

// OnChange registers fn to be called with the image reference of any
// prefetch target added after the process has already started watching
// its config file. A reload only ever adds prefetch targets, it never
// preempts a model whose key disappears from the file. fn is invoked
// synchronously from viper's file-watcher goroutine.
func (c *Config) OnChange(fn func(imageRef string)) {
	known := make(map[string]struct{})
	for _, ref := range c.PrefetchTargets() {
		known[ref] = struct{}{}
	}

	c.v.OnConfigChange(func(_ fsnotify.Event) {
		for _, ref := range c.PrefetchTargets() {
			if _, seen := known[ref]; seen {
				continue
			}
			known[ref] = struct{}{}
			if c.logger != nil {
				c.logger.Info("new prefetch target detected in reloaded config", zap.String("image_ref", ref))
			}
			fn(ref)
		}
	})
	c.v.WatchConfig()
}
