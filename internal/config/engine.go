package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EngineConfig carries the tunable calculation defaults. Rules stored in
// the database take precedence; these only feed quote creation defaults
// and the seeded approval rule.
type EngineConfig struct {
	DefaultTermMonths       int32   `mapstructure:"defaultTermMonths"`
	ApprovalDiscountPercent float64 `mapstructure:"approvalDiscountPercent"`
	LargeQuoteTotal         float64 `mapstructure:"largeQuoteTotal"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultTermMonths:       12,
		ApprovalDiscountPercent: 20,
		LargeQuoteTotal:         100_000,
	}
}

type EngineConfigHolder struct {
	current atomic.Value // holds EngineConfig
}

func NewEngineConfigHolder() (*EngineConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("engine")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/quotient/config")
	v.AddConfigPath("/etc/quotient")
	v.AddConfigPath(".")

	v.SetEnvPrefix("QUOTIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultEngineConfig()
		v.SetDefault("engine.defaultTermMonths", defaults.DefaultTermMonths)
		v.SetDefault("engine.approvalDiscountPercent", defaults.ApprovalDiscountPercent)
		v.SetDefault("engine.largeQuoteTotal", defaults.LargeQuoteTotal)
	}

	var cfg EngineConfig
	if err := v.UnmarshalKey("engine", &cfg); err != nil {
		return nil, err
	}
	if err := validateEngineConfig(cfg); err != nil {
		return nil, err
	}

	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated EngineConfig
		if err := v.UnmarshalKey("engine", &updated); err != nil {
			log.Printf("[engine-config] reload failed: %v", err)
			return
		}
		if err := validateEngineConfig(updated); err != nil {
			log.Printf("[engine-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[engine-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticEngineConfigHolder wraps a fixed config with no file watching.
func NewStaticEngineConfigHolder(cfg EngineConfig) *EngineConfigHolder {
	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *EngineConfigHolder) Get() EngineConfig {
	return h.current.Load().(EngineConfig)
}

func validateEngineConfig(cfg EngineConfig) error {
	if cfg.DefaultTermMonths <= 0 {
		return errors.New("engine.defaultTermMonths must be positive")
	}
	if cfg.ApprovalDiscountPercent < 0 || cfg.ApprovalDiscountPercent > 100 {
		return errors.New("engine.approvalDiscountPercent out of range")
	}
	return nil
}
