// Package config loads gh-lazyqa settings from a YAML file and LAZYQA_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/resolve"
)

// Config holds the configuration for the application.
type Config struct {
	GitHub struct {
		Host  string `mapstructure:"host"`
		Token string `mapstructure:"token"`
		// Repo is the default owner/name when a command gets none.
		Repo    string        `mapstructure:"repo"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"github"`

	Resolver struct {
		Aliases         map[string][]string `mapstructure:"aliases"`
		ExclusiveGroups [][]string          `mapstructure:"exclusive_groups"`
		Keywords        []string            `mapstructure:"keywords"`
	} `mapstructure:"resolver"`

	Dispatch struct {
		DefaultBranch     string        `mapstructure:"default_branch"`
		EnvironmentLabels []string      `mapstructure:"environment_labels"`
		SettleDelay       time.Duration `mapstructure:"settle_delay"`
		PollInterval      time.Duration `mapstructure:"poll_interval"`
		PollAttempts      int           `mapstructure:"poll_attempts"`
		ClockSkew         time.Duration `mapstructure:"clock_skew"`
		// Inspect reads each workflow file to learn its declared inputs.
		Inspect bool `mapstructure:"inspect"`
		// LocalRoot reads workflow files from a checkout instead of the API.
		LocalRoot string `mapstructure:"local_root"`
	} `mapstructure:"dispatch"`

	Patterns struct {
		Window          time.Duration `mapstructure:"window"`
		MaxRuns         int           `mapstructure:"max_runs"`
		MaxExamples     int           `mapstructure:"max_examples"`
		MaxExampleRunes int           `mapstructure:"max_example_runes"`
		Concurrency     int           `mapstructure:"concurrency"`
	} `mapstructure:"patterns"`

	Database struct {
		// DSN selects the Postgres summary store. Empty keeps summaries in memory.
		DSN     string `mapstructure:"dsn"`
		Migrate bool   `mapstructure:"migrate"`
	} `mapstructure:"database"`

	Server struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		CORSOrigins  []string      `mapstructure:"cors_origins"`
	} `mapstructure:"server"`

	Observability struct {
		LogLevel    string `mapstructure:"log_level"`
		LogEncoding string `mapstructure:"log_encoding"`
		MetricsPath string `mapstructure:"metrics_path"`
	} `mapstructure:"observability"`

	HistoryPath string `mapstructure:"history_path"`
}

// Defaults registers the default value of every key on v.
func Defaults(v *viper.Viper) {
	dc := dispatch.DefaultConfig()

	v.SetDefault("github.host", "github.com")
	v.SetDefault("github.timeout", 30*time.Second)

	v.SetDefault("resolver.keywords", resolve.DefaultKeywords)

	v.SetDefault("dispatch.default_branch", dc.DefaultBranch)
	v.SetDefault("dispatch.environment_labels", dc.EnvironmentLabels)
	v.SetDefault("dispatch.settle_delay", dc.SettleDelay)
	v.SetDefault("dispatch.poll_interval", dc.PollInterval)
	v.SetDefault("dispatch.poll_attempts", dc.PollAttempts)
	v.SetDefault("dispatch.clock_skew", dc.ClockSkew)
	v.SetDefault("dispatch.inspect", true)

	v.SetDefault("patterns.window", 7*24*time.Hour)
	v.SetDefault("patterns.max_runs", 200)
	v.SetDefault("patterns.max_examples", 5)
	v.SetDefault("patterns.max_example_runes", 200)
	v.SetDefault("patterns.concurrency", 4)

	v.SetDefault("database.migrate", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_encoding", "console")
	v.SetDefault("observability.metrics_path", "/metrics")
}

// Load reads configuration. An explicit file must exist; otherwise
// gh-lazyqa.yaml is searched in the working directory and the user config
// directory, and its absence is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	Defaults(v)

	v.SetEnvPrefix("LAZYQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without defaults are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"github.token", "github.repo", "database.dsn", "dispatch.local_root", "history_path"} {
		_ = v.BindEnv(key)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("gh-lazyqa")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "gh-lazyqa"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = firstEnv("GH_TOKEN", "GITHUB_TOKEN")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the dispatch and mining code cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Dispatch.DefaultBranch) == "" {
		errs = append(errs, errors.New("dispatch.default_branch must not be empty"))
	}
	if c.Dispatch.PollAttempts < 1 {
		errs = append(errs, fmt.Errorf("dispatch.poll_attempts must be at least 1, got %d", c.Dispatch.PollAttempts))
	}
	if c.Dispatch.PollInterval < 0 || c.Dispatch.SettleDelay < 0 || c.Dispatch.ClockSkew < 0 {
		errs = append(errs, errors.New("dispatch durations must not be negative"))
	}
	if c.Patterns.Window <= 0 {
		errs = append(errs, errors.New("patterns.window must be positive"))
	}
	if c.Patterns.MaxExamples < 1 {
		errs = append(errs, fmt.Errorf("patterns.max_examples must be at least 1, got %d", c.Patterns.MaxExamples))
	}
	if c.Patterns.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("patterns.concurrency must be at least 1, got %d", c.Patterns.Concurrency))
	}
	for i, g := range c.Resolver.ExclusiveGroups {
		if len(g) < 2 {
			errs = append(errs, fmt.Errorf("resolver.exclusive_groups[%d] needs at least two labels", i))
		}
	}
	return errors.Join(errs...)
}

// DispatchConfig converts the dispatch section for the coordinator.
func (c *Config) DispatchConfig() dispatch.Config {
	dc := dispatch.DefaultConfig()
	dc.DefaultBranch = c.Dispatch.DefaultBranch
	if len(c.Dispatch.EnvironmentLabels) > 0 {
		dc.EnvironmentLabels = c.Dispatch.EnvironmentLabels
	}
	dc.SettleDelay = c.Dispatch.SettleDelay
	dc.PollInterval = c.Dispatch.PollInterval
	dc.PollAttempts = c.Dispatch.PollAttempts
	dc.ClockSkew = c.Dispatch.ClockSkew
	return dc
}

// ResolverOptions converts the resolver section. Unset tables keep the
// built-in defaults.
func (c *Config) ResolverOptions() []resolve.Option {
	var opts []resolve.Option
	if len(c.Resolver.Aliases) > 0 {
		opts = append(opts, resolve.WithAliases(c.Resolver.Aliases))
	}
	if len(c.Resolver.ExclusiveGroups) > 0 {
		groups := make([]resolve.ExclusiveGroup, len(c.Resolver.ExclusiveGroups))
		for i, g := range c.Resolver.ExclusiveGroups {
			groups[i] = resolve.ExclusiveGroup(g)
		}
		opts = append(opts, resolve.WithExclusiveGroups(groups...))
	}
	if len(c.Resolver.Keywords) > 0 {
		opts = append(opts, resolve.WithKeywords(c.Resolver.Keywords))
	}
	return opts
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
