// Package config loads application settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/bankcat/internal/classification"
	"github.com/Veraticus/bankcat/internal/common"
)

// Config is the typed application configuration.
type Config struct {
	DatabasePath        string
	LogLevel            string
	LogFormat           string
	Rules               []RuleConfig
	SuggestWorkers      int
	VendorMergeDistance int
	AcceptMinConfidence float64
	LearningEnabled     bool
	RequireReview       bool
}

// RuleConfig lists the keyword phrases of one category. Rules are a list
// rather than a map because viper lower-cases map keys and category names
// are matched exactly.
type RuleConfig struct {
	Category string   `mapstructure:"category"`
	Keywords []string `mapstructure:"keywords"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "~/.local/share/bankcat/bankcat.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("suggest.workers", runtime.NumCPU())
	v.SetDefault("review.accept_min_confidence", 0.80)
	v.SetDefault("learning.enabled", true)
	v.SetDefault("learning.vendor_merge_distance", 2)
	v.SetDefault("commit.require_review", false)
	v.SetDefault("sheets.spreadsheet_name", "Bank Ledger")
	v.SetDefault("sheets.timezone", "UTC")
	v.SetDefault("sheets.batch_size", 1000)
	v.SetDefault("sheets.retry_attempts", 3)
	v.SetDefault("sheets.retry_delay", "1s")
	v.SetDefault("sheets.enable_formatting", true)
}

// Load reads the typed configuration. Missing keys take their defaults.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		DatabasePath:        ExpandPath(v.GetString("database.path")),
		LogLevel:            v.GetString("logging.level"),
		LogFormat:           v.GetString("logging.format"),
		SuggestWorkers:      v.GetInt("suggest.workers"),
		AcceptMinConfidence: v.GetFloat64("review.accept_min_confidence"),
		LearningEnabled:     v.GetBool("learning.enabled"),
		VendorMergeDistance: v.GetInt("learning.vendor_merge_distance"),
		RequireReview:       v.GetBool("commit.require_review"),
	}

	if err := v.UnmarshalKey("rules", &cfg.Rules); err != nil {
		return nil, fmt.Errorf("%w: rules: %w", common.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if _, err := common.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: logging.level: %w", common.ErrInvalidConfig, err)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", common.ErrInvalidConfig, c.LogFormat)
	}
	if c.SuggestWorkers < 1 {
		return fmt.Errorf("%w: suggest.workers must be positive", common.ErrInvalidConfig)
	}
	if c.VendorMergeDistance < 0 {
		return fmt.Errorf("%w: learning.vendor_merge_distance cannot be negative", common.ErrInvalidConfig)
	}
	if c.AcceptMinConfidence < 0 || c.AcceptMinConfidence > 1 {
		return fmt.Errorf("%w: review.accept_min_confidence must be within [0, 1]", common.ErrInvalidConfig)
	}
	return nil
}

// RuleTable builds the keyword rule table, falling back to the defaults when
// no rules are configured.
func (c *Config) RuleTable() (*classification.RuleTable, error) {
	if len(c.Rules) == 0 {
		return classification.DefaultRuleTable(), nil
	}
	rules := make(map[string][]string, len(c.Rules))
	for _, r := range c.Rules {
		rules[r.Category] = append(rules[r.Category], r.Keywords...)
	}
	table, err := classification.NewRuleTable(rules)
	if err != nil {
		return nil, fmt.Errorf("%w: rules: %w", common.ErrInvalidConfig, err)
	}
	return table, nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
