package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PolicyConfig bounds the temporal engine: how often snapshots are cut,
// how much history a single reconstruction may replay, and how often a
// contended mutation is retried before giving up.
type PolicyConfig struct {
	SnapshotInterval   time.Duration `mapstructure:"snapshotInterval"`
	MaxReplayEvents    int           `mapstructure:"maxReplayEvents"`
	MutationRetries    int           `mapstructure:"mutationRetries"`
	SnapshotBatchOrgs  int           `mapstructure:"snapshotBatchOrgs"`
	SnapshotRunTimeout time.Duration `mapstructure:"snapshotRunTimeout"`
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		SnapshotInterval:   24 * time.Hour,
		MaxReplayEvents:    50_000,
		MutationRetries:    3,
		SnapshotBatchOrgs:  50,
		SnapshotRunTimeout: 5 * time.Minute,
	}
}

// PolicyHolder hot-reloads policy from stockledger.yml without restarts.
type PolicyHolder struct {
	current atomic.Value // holds PolicyConfig
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("stockledger")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/stockledger/config")
	v.AddConfigPath("/etc/stockledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STOCKLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPolicyConfig()
		v.SetDefault("policy.snapshotInterval", defaults.SnapshotInterval)
		v.SetDefault("policy.maxReplayEvents", defaults.MaxReplayEvents)
		v.SetDefault("policy.mutationRetries", defaults.MutationRetries)
		v.SetDefault("policy.snapshotBatchOrgs", defaults.SnapshotBatchOrgs)
		v.SetDefault("policy.snapshotRunTimeout", defaults.SnapshotRunTimeout)
	}

	var cfg PolicyConfig
	if err := v.UnmarshalKey("policy", &cfg); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := validatePolicyConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PolicyConfig
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[policy-config] reload failed: %v", err)
			return
		}
		updated = updated.withDefaults()
		if err := validatePolicyConfig(updated); err != nil {
			log.Printf("[policy-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPolicyHolder returns a holder pinned to cfg, for tests and tools.
func NewStaticPolicyHolder(cfg PolicyConfig) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(cfg.withDefaults())
	return holder
}

func (h *PolicyHolder) Get() PolicyConfig {
	return h.current.Load().(PolicyConfig)
}

// Set replaces the active policy. Intended for tests and tooling; the
// runtime path updates through the config watcher.
func (h *PolicyHolder) Set(cfg PolicyConfig) {
	h.current.Store(cfg.withDefaults())
}

func (c PolicyConfig) withDefaults() PolicyConfig {
	defaults := DefaultPolicyConfig()
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = defaults.SnapshotInterval
	}
	if c.MaxReplayEvents <= 0 {
		c.MaxReplayEvents = defaults.MaxReplayEvents
	}
	if c.MutationRetries <= 0 {
		c.MutationRetries = defaults.MutationRetries
	}
	if c.SnapshotBatchOrgs <= 0 {
		c.SnapshotBatchOrgs = defaults.SnapshotBatchOrgs
	}
	if c.SnapshotRunTimeout <= 0 {
		c.SnapshotRunTimeout = defaults.SnapshotRunTimeout
	}
	return c
}

func validatePolicyConfig(cfg PolicyConfig) error {
	if cfg.SnapshotInterval < time.Minute {
		return errors.New("policy.snapshotInterval must be at least one minute")
	}
	if cfg.MaxReplayEvents < 1 {
		return errors.New("policy.maxReplayEvents must be positive")
	}
	return nil
}
