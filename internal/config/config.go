package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"server"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Logging   LoggingConfig   `mapstructure:"log"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Recommend RecommendConfig `mapstructure:"recommend"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	AllowedOriginsCSV string        `mapstructure:"allowed_origins"`
	// RateLimit is requests per minute per client IP. Zero disables limiting.
	RateLimit int `mapstructure:"rate_limit"`
}

// AllowedOrigins splits AllowedOriginsCSV.
func (h HTTPConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(h.AllowedOriginsCSV, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

// Addr is the listen address.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// GraphConfig describes connectivity to the Neo4j mirror. An empty URI
// disables it.
type GraphConfig struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// Enabled reports whether a Neo4j URI is configured.
func (g GraphConfig) Enabled() bool {
	return g.URI != ""
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"` // text|json
	IncludeCaller bool   `mapstructure:"include_caller"`
}

// DatasetConfig locates the per-film review files.
type DatasetConfig struct {
	Dir      string `mapstructure:"dir"`
	MinScore int    `mapstructure:"min_score"`
	Workers  int    `mapstructure:"workers"`
	// Source is where graphs are rebuilt from: csv or neo4j.
	Source string `mapstructure:"source"`
}

// SnapshotConfig selects graph persistence.
type SnapshotConfig struct {
	Backend string `mapstructure:"backend"` // file|badger|none
	Path    string `mapstructure:"path"`
}

// RecommendConfig tunes the scorer.
type RecommendConfig struct {
	Workers  int `mapstructure:"workers"`
	MaxPaths int `mapstructure:"max_paths"`
	PageSize int `mapstructure:"page_size"`
}

const (
	SnapshotFile   = "file"
	SnapshotBadger = "badger"
	SnapshotNone   = "none"

	SourceCSV   = "csv"
	SourceNeo4j = "neo4j"
)

var defaults = map[string]any{
	"server.host":             "0.0.0.0",
	"server.port":             8080,
	"server.read_timeout":     10 * time.Second,
	"server.write_timeout":    30 * time.Second,
	"server.idle_timeout":     60 * time.Second,
	"server.shutdown_timeout": 10 * time.Second,
	"server.metrics_enabled":  false,
	"server.allowed_origins":  "",
	"server.rate_limit":       0,

	"graph.uri":             "",
	"graph.database":        "",
	"graph.username":        "",
	"graph.password":        "",
	"graph.max_connections": 10,

	"log.level":          "info",
	"log.format":         "text",
	"log.include_caller": false,

	"dataset.dir":       "data/reviews",
	"dataset.min_score": 6,
	"dataset.workers":   4,
	"dataset.source":    SourceCSV,

	"snapshot.backend": SnapshotFile,
	"snapshot.path":    "data/graph.snapshot",

	"recommend.workers":   4,
	"recommend.max_paths": 0,
	"recommend.page_size": 5,
}

// Load reads configuration from an optional YAML file and the environment.
// A .env file in the working directory is loaded first when present.
// Environment variables use the upper-cased key with dots replaced by
// underscores, e.g. SERVER_PORT or DATASET_MIN_SCORE.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Snapshot.Backend = strings.ToLower(strings.TrimSpace(cfg.Snapshot.Backend))
	cfg.Dataset.Source = strings.ToLower(strings.TrimSpace(cfg.Dataset.Source))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the application cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.HTTP.Port))
	}
	if c.Dataset.MinScore < 1 || c.Dataset.MinScore > 10 {
		errs = append(errs, fmt.Errorf("dataset min score %d must be between 1 and 10", c.Dataset.MinScore))
	}
	switch c.Snapshot.Backend {
	case SnapshotFile, SnapshotBadger, SnapshotNone:
	default:
		errs = append(errs, fmt.Errorf("unknown snapshot backend %q", c.Snapshot.Backend))
	}
	switch c.Dataset.Source {
	case SourceCSV:
	case SourceNeo4j:
		if !c.Graph.Enabled() {
			errs = append(errs, errors.New("dataset source neo4j requires GRAPH_URI"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dataset source %q", c.Dataset.Source))
	}
	if c.Recommend.MaxPaths < 0 {
		errs = append(errs, fmt.Errorf("recommend max paths %d is negative", c.Recommend.MaxPaths))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit %d is negative", c.HTTP.RateLimit))
	}
	return errors.Join(errs...)
}
