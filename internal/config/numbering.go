package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// NumberingConfig controls how human-readable invoice numbers are formatted.
// The template tokens are resolved by internal/invoice/format.
type NumberingConfig struct {
	Template string `mapstructure:"template"`
}

func DefaultNumberingConfig() NumberingConfig {
	return NumberingConfig{
		Template: "СЧ-{YYYY}-{SEQ4}",
	}
}

// NumberingConfigHolder exposes the current numbering config and hot-reloads
// it when the file changes, so operators can adjust numbering without a
// restart. Already-issued numbers are never rewritten.
type NumberingConfigHolder struct {
	current atomic.Value // holds NumberingConfig
}

func NewNumberingConfigHolder() (*NumberingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("numbering")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fakturo/config")
	v.AddConfigPath("/etc/fakturo")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FAKTURO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultNumberingConfig()
		v.SetDefault("numbering.template", defaults.Template)
	}

	var cfg NumberingConfig
	if err := v.UnmarshalKey("numbering", &cfg); err != nil {
		return nil, err
	}
	if err := validateNumberingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &NumberingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated NumberingConfig
		if err := v.UnmarshalKey("numbering", &updated); err != nil {
			log.Printf("[numbering-config] reload failed: %v", err)
			return
		}
		if err := validateNumberingConfig(updated); err != nil {
			log.Printf("[numbering-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[numbering-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *NumberingConfigHolder) Get() NumberingConfig {
	return h.current.Load().(NumberingConfig)
}

func validateNumberingConfig(cfg NumberingConfig) error {
	if strings.TrimSpace(cfg.Template) == "" {
		return errors.New("numbering.template cannot be empty")
	}
	if !strings.Contains(cfg.Template, "{SEQ") {
		return errors.New("numbering.template must contain a {SEQ} token")
	}
	return nil
}
