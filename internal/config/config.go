package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	configDirEnv     = "PULSEBOARD_CONFIG_DIR"
	databasePathEnv  = "PULSEBOARD_DB_PATH"
	outputDirEnv     = "PULSEBOARD_OUTPUT_DIR"
	listenAddrEnv    = "PULSEBOARD_LISTEN_ADDR"
	logLevelEnv      = "PULSEBOARD_LOG_LEVEL"
	retentionDaysEnv = "PULSEBOARD_STORY_RETENTION_DAYS"
	fredAPIKeyEnv    = "FRED_API_KEY"

	metricsFile = "metrics.yaml"
	feedsFile   = "feeds.yaml"

	defaultDatabasePath  = "pulseboard.db"
	defaultOutputDir     = "docs"
	defaultListenAddr    = ":8080"
	defaultRetentionDays = 7
	defaultFeedLimit     = 10
	defaultDecimals      = 2
)

// Config holds everything the application needs for one run: runtime
// settings from the environment plus the declarative metric and feed
// descriptor lists from YAML.
type Config struct {
	Database  DatabaseConfig
	Output    OutputConfig
	Server    ServerConfig
	Logging   LoggingConfig
	Retention RetentionConfig
	Secrets   SecretsConfig

	Groups  []Group
	Metrics []Metric
	Feeds   []Feed
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string
}

// OutputConfig describes where the rendered dashboard is written.
type OutputConfig struct {
	Dir string
}

// ServerConfig holds the preview server listen address.
type ServerConfig struct {
	Addr string
}

// LoggingConfig carries the slog level string.
type LoggingConfig struct {
	Level string
}

// RetentionConfig bounds how long stories are kept, measured from
// retrieval time.
type RetentionConfig struct {
	StoryMaxAgeDays int
}

// SecretsConfig carries API keys sourced from the environment. A
// missing key disables only the connector that needs it.
type SecretsConfig struct {
	FREDAPIKey string
}

// Group is a display grouping referencing metric IDs; it must not
// reference IDs that are absent from the metric list.
type Group struct {
	Name    string   `yaml:"name"`
	Metrics []string `yaml:"metrics"`
}

// Metric is one metric descriptor. Beyond the common fields, each
// source tag reads only the parameters it needs; connectors validate
// their required fields before any network call.
type Metric struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Source    string `yaml:"source"`
	Frequency string `yaml:"frequency"`
	Unit      string `yaml:"unit"`

	Decimals   *int32   `yaml:"decimals"`
	Multiplier *float64 `yaml:"multiplier"`
	Transform  string   `yaml:"transform"` // "", yoy_percent, qoq_percent

	SeriesID      string `yaml:"series_id"`      // fred, dbnomics, yahoo, coingecko
	Dataflow      string `yaml:"dataflow"`       // ecb, oecd
	SeriesKey     string `yaml:"series_key"`     // ecb, oecd
	Indicator     string `yaml:"indicator"`      // worldbank
	Country       string `yaml:"country"`        // worldbank
	IndicatorCode string `yaml:"indicator_code"` // estat_dashboard
}

// DecimalPlaces resolves the descriptor rounding precision.
func (m Metric) DecimalPlaces() int32 {
	if m.Decimals != nil {
		return *m.Decimals
	}
	return defaultDecimals
}

// Scale resolves the unit-conversion multiplier.
func (m Metric) Scale() float64 {
	if m.Multiplier != nil && *m.Multiplier != 0 {
		return *m.Multiplier
	}
	return 1
}

// Feed is one discussion-feed descriptor.
type Feed struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Source   string `yaml:"source"`
	Endpoint string `yaml:"endpoint"` // hn_firebase: topstories, beststories, ...
	Query    string `yaml:"query"`    // hn_algolia
	Tags     string `yaml:"tags"`     // hn_algolia
	Limit    int    `yaml:"limit"`
}

// MaxItems resolves the per-feed item cap.
func (f Feed) MaxItems() int {
	if f.Limit > 0 {
		return f.Limit
	}
	return defaultFeedLimit
}

type metricsDocument struct {
	Groups  []Group  `yaml:"groups"`
	Metrics []Metric `yaml:"metrics"`
}

type feedsDocument struct {
	Feeds []Feed `yaml:"feeds"`
}

// Load reads the descriptor files from dir (or PULSEBOARD_CONFIG_DIR
// when dir is empty) and applies environment overrides for runtime
// settings. Descriptor validation errors fail the load.
func Load(dir string) (Config, error) {
	if dir == "" {
		dir = os.Getenv(configDirEnv)
	}
	if dir == "" {
		dir = "config"
	}

	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	raw, err := os.ReadFile(filepath.Join(dir, metricsFile))
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", metricsFile, err)
	}
	var metricsDoc metricsDocument
	if err := yaml.Unmarshal(raw, &metricsDoc); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", metricsFile, err)
	}
	cfg.Groups = metricsDoc.Groups
	cfg.Metrics = metricsDoc.Metrics

	raw, err = os.ReadFile(filepath.Join(dir, feedsFile))
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", feedsFile, err)
	}
	var feedsDoc feedsDocument
	if err := yaml.Unmarshal(raw, &feedsDoc); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", feedsFile, err)
	}
	cfg.Feeds = feedsDoc.Feeds

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(outputDirEnv); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(retentionDaysEnv); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			c.Retention.StoryMaxAgeDays = days
		}
	}
	if v := os.Getenv(fredAPIKeyEnv); v != "" {
		c.Secrets.FREDAPIKey = v
	}
}

func (c *Config) validate() error {
	metricIDs := make(map[string]struct{}, len(c.Metrics))
	for _, m := range c.Metrics {
		if m.ID == "" {
			return fmt.Errorf("metric with empty id (name %q)", m.Name)
		}
		if m.Source == "" {
			return fmt.Errorf("metric %s: source is required", m.ID)
		}
		if _, ok := metricIDs[m.ID]; ok {
			return fmt.Errorf("duplicate metric id %s", m.ID)
		}
		metricIDs[m.ID] = struct{}{}
	}

	for _, g := range c.Groups {
		for _, id := range g.Metrics {
			if _, ok := metricIDs[id]; !ok {
				return fmt.Errorf("group %q references unknown metric %s", g.Name, id)
			}
		}
	}

	feedIDs := make(map[string]struct{}, len(c.Feeds))
	for _, f := range c.Feeds {
		if f.ID == "" {
			return fmt.Errorf("feed with empty id (name %q)", f.Name)
		}
		if f.Source == "" {
			return fmt.Errorf("feed %s: source is required", f.ID)
		}
		if _, ok := feedIDs[f.ID]; ok {
			return fmt.Errorf("duplicate feed id %s", f.ID)
		}
		feedIDs[f.ID] = struct{}{}
	}

	return nil
}

func defaultConfig() Config {
	return Config{
		Database:  DatabaseConfig{Path: defaultDatabasePath},
		Output:    OutputConfig{Dir: defaultOutputDir},
		Server:    ServerConfig{Addr: defaultListenAddr},
		Logging:   LoggingConfig{Level: "info"},
		Retention: RetentionConfig{StoryMaxAgeDays: defaultRetentionDays},
	}
}
