// Package config loads searchsync settings from an optional YAML file and the
// environment.
//
// Precedence is defaults, then the file, then environment variables. The file
// may reference the environment with ${VAR}, which is expanded before parsing.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/dshills/searchsync/internal/augment"
	"github.com/dshills/searchsync/internal/bulk"
	"github.com/dshills/searchsync/internal/embedder"
	"github.com/dshills/searchsync/internal/geo"
	"github.com/dshills/searchsync/internal/source"
	"github.com/dshills/searchsync/pkg/types"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Sink      SinkConfig      `yaml:"sink"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Sync      SyncConfig      `yaml:"sync"`
	Zones     ZonesConfig     `yaml:"zones"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// SourceConfig locates the relational catalog. When DSN is empty and the
// driver is mysql, the DSN is built from the discrete fields.
type SourceConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// SinkConfig locates the search engine.
type SinkConfig struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EmbeddingConfig selects the embedding backend and how batches are fed to it.
type EmbeddingConfig struct {
	Provider     string        `yaml:"provider"`
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	Dimension    int           `yaml:"dimension"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheSize    int           `yaml:"cache_size"`
	SubBatchSize int           `yaml:"sub_batch_size"`
	Interval     time.Duration `yaml:"interval"`
	Normalize    bool          `yaml:"normalize"`
}

// SyncConfig holds run defaults and the named jobs.
type SyncConfig struct {
	BatchSize int                  `yaml:"batch_size"`
	Strategy  string               `yaml:"strategy"`
	Jobs      map[string]JobConfig `yaml:"jobs"`
}

// JobConfig describes one module group and its target index.
type JobConfig struct {
	Kind             string  `yaml:"kind"` // items when empty
	Index            string  `yaml:"index"`
	ModuleIDs        []int64 `yaml:"module_ids"`
	Mode             string  `yaml:"mode"` // full when empty
	Embed            bool    `yaml:"embed"`
	ResolveZones     bool    `yaml:"resolve_zones"`
	ActiveStoresOnly bool    `yaml:"active_stores_only"`
	IncludeInactive  bool    `yaml:"include_inactive"`
}

// ZonesConfig controls zone polygon loading.
type ZonesConfig struct {
	Query           string        `yaml:"query"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// LedgerConfig locates the run ledger. An empty path disables it.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig configures run events. An empty URL disables them.
type NotifyConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Driver:   source.DriverMySQL,
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Database: "migrated_db",
		},
		Sink: SinkConfig{
			URL:     "http://localhost:9201",
			Timeout: bulk.DefaultTimeout,
		},
		Embedding: EmbeddingConfig{
			Provider:     embedder.ProviderService,
			URL:          embedder.DefaultServiceURL,
			Dimension:    embedder.ServiceDimension,
			Timeout:      embedder.DefaultTimeout,
			CacheSize:    10000,
			SubBatchSize: augment.DefaultSubBatchSize,
			Interval:     augment.DefaultInterval,
			Normalize:    true,
		},
		Sync: SyncConfig{
			BatchSize: source.DefaultBatchSize,
			Strategy:  string(source.StrategyKeyset),
			Jobs: map[string]JobConfig{
				"food": {
					Index:     "food_items",
					ModuleIDs: []int64{4, 6, 11, 15},
					Mode:      string(types.WriteFull),
				},
				"ecom": {
					Index:     "ecom_items",
					ModuleIDs: []int64{2, 5, 7, 9, 12, 13, 16, 17},
					Mode:      string(types.WriteFull),
				},
				"food_stores":     catalogJob(source.KindStores, "food_stores", 4),
				"food_categories": catalogJob(source.KindCategories, "food_categories", 4),
				"ecom_stores":     catalogJob(source.KindStores, "ecom_stores", 5),
				"ecom_categories": catalogJob(source.KindCategories, "ecom_categories", 5),
			},
		},
		Zones: ZonesConfig{
			Query:           geo.DefaultZoneQuery,
			RefreshInterval: geo.DefaultRefreshInterval,
		},
		Ledger: LedgerConfig{Path: "searchsync.db"},
		Notify: NotifyConfig{Subject: "searchsync.sync"},
	}
}

// Load reads path over the defaults, applies the environment and validates
// the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v)
		}
		*dst = n
		return nil
	}

	str("SEARCHSYNC_SOURCE_DRIVER", &c.Source.Driver)
	str("SEARCHSYNC_SOURCE_DSN", &c.Source.DSN)
	str("MYSQL_HOST", &c.Source.Host)
	str("MYSQL_USER", &c.Source.User)
	str("MYSQL_PASSWORD", &c.Source.Password)
	str("MYSQL_DATABASE", &c.Source.Database)
	if err := num("MYSQL_PORT", &c.Source.Port); err != nil {
		return err
	}

	str("OPENSEARCH_URL", &c.Sink.URL)
	str("OPENSEARCH_USERNAME", &c.Sink.Username)
	str("OPENSEARCH_PASSWORD", &c.Sink.Password)

	str("SEARCHSYNC_EMBEDDING_PROVIDER", &c.Embedding.Provider)
	str("EMBEDDING_SERVICE_URL", &c.Embedding.URL)
	if err := num("SEARCHSYNC_EMBEDDING_DIMENSION", &c.Embedding.Dimension); err != nil {
		return err
	}

	if err := num("SEARCHSYNC_BATCH_SIZE", &c.Sync.BatchSize); err != nil {
		return err
	}
	str("SEARCHSYNC_STRATEGY", &c.Sync.Strategy)

	str("SEARCHSYNC_LEDGER_PATH", &c.Ledger.Path)
	str("NATS_URL", &c.Notify.URL)
	return nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if _, err := source.DialectFor(c.Source.Driver); err != nil {
		add("source.driver: %v", err)
	}
	if c.Source.DSN == "" && c.Source.Driver != source.DriverMySQL {
		add("source.dsn is required for driver %q", c.Source.Driver)
	}
	if c.Sink.URL == "" {
		add("sink.url is required")
	}
	if c.Sync.BatchSize <= 0 {
		add("sync.batch_size must be positive, got %d", c.Sync.BatchSize)
	}
	if _, err := source.ParseStrategy(c.Sync.Strategy); err != nil {
		add("sync.strategy: %v", err)
	}
	if c.Embedding.SubBatchSize <= 0 {
		add("embedding.sub_batch_size must be positive, got %d", c.Embedding.SubBatchSize)
	}
	if c.Embedding.Dimension < 0 {
		add("embedding.dimension must not be negative")
	}
	if c.Embedding.Interval < 0 {
		add("embedding.interval must not be negative")
	}
	if len(c.Sync.Jobs) == 0 {
		add("sync.jobs must define at least one job")
	}
	for _, name := range c.JobNames() {
		job := c.Sync.Jobs[name]
		if job.Index == "" {
			add("sync.jobs.%s.index is required", name)
		}
		if job.Mode != "" {
			if _, err := types.ParseWriteMode(job.Mode); err != nil {
				add("sync.jobs.%s.mode: %v", name, err)
			}
		}
		kind, err := source.ParseKind(job.Kind)
		if err != nil {
			add("sync.jobs.%s.kind: %v", name, err)
			continue
		}
		if kind != source.KindItems {
			if job.Mode == string(types.WritePatch) {
				add("sync.jobs.%s.mode: %s are always written in full", name, kind)
			}
			if job.Embed || job.ResolveZones {
				add("sync.jobs.%s: embed and resolve_zones apply to items only", name)
			}
		}
	}

	return errors.Join(errs...)
}

func catalogJob(kind source.Kind, index string, module int64) JobConfig {
	return JobConfig{
		Kind:      string(kind),
		Index:     index,
		ModuleIDs: []int64{module},
		Mode:      string(types.WriteFull),
	}
}

// JobNames returns the configured job names in sorted order.
func (c *Config) JobNames() []string {
	names := make([]string, 0, len(c.Sync.Jobs))
	for name := range c.Sync.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DBConfig returns the source pool settings, building a MySQL DSN from the
// discrete fields when no DSN is set.
func (s SourceConfig) DBConfig() source.DBConfig {
	dsn := s.DSN
	if dsn == "" && s.Driver == source.DriverMySQL {
		m := mysql.NewConfig()
		m.User = s.User
		m.Passwd = s.Password
		m.Net = "tcp"
		m.Addr = net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
		m.DBName = s.Database
		dsn = m.FormatDSN()
	}
	return source.DBConfig{
		Driver:          s.Driver,
		DSN:             dsn,
		MaxOpenConns:    s.MaxOpenConns,
		MaxIdleConns:    s.MaxIdleConns,
		ConnMaxLifetime: s.ConnMaxLifetime,
	}
}

// BulkConfig returns the search engine client settings.
func (s SinkConfig) BulkConfig() bulk.Config {
	return bulk.Config{URL: s.URL, Username: s.Username, Password: s.Password, Timeout: s.Timeout}
}

// EmbedderConfig returns the embedder factory settings.
func (e EmbeddingConfig) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  e.Provider,
		URL:       e.URL,
		APIKey:    e.APIKey,
		Dimension: e.Dimension,
		Timeout:   e.Timeout,
		CacheSize: e.CacheSize,
	}
}

// AugmentConfig returns the sub-batching settings.
func (e EmbeddingConfig) AugmentConfig() augment.Config {
	return augment.Config{SubBatchSize: e.SubBatchSize, Interval: e.Interval, Normalize: e.Normalize}
}
