package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/searchsync/internal/source"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "searchsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500, cfg.Sync.BatchSize)
	assert.Equal(t, 50, cfg.Embedding.SubBatchSize)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, 100*time.Millisecond, cfg.Embedding.Interval)
	assert.Equal(t, []int64{4, 6, 11, 15}, cfg.Sync.Jobs["food"].ModuleIDs)
	assert.Equal(t, []int64{2, 5, 7, 9, 12, 13, 16, 17}, cfg.Sync.Jobs["ecom"].ModuleIDs)
	assert.Equal(t, []string{
		"ecom", "ecom_categories", "ecom_stores",
		"food", "food_categories", "food_stores",
	}, cfg.JobNames())

	stores := cfg.Sync.Jobs["food_stores"]
	assert.Equal(t, "stores", stores.Kind)
	assert.Equal(t, "food_stores", stores.Index)
	assert.Equal(t, []int64{4}, stores.ModuleIDs)
	assert.Equal(t, []int64{5}, cfg.Sync.Jobs["ecom_categories"].ModuleIDs)
}

func TestLoad_FileOverDefaults(t *testing.T) {
	t.Setenv("TEST_SINK_HOST", "search.internal")
	path := writeConfig(t, `
sink:
  url: http://${TEST_SINK_HOST}:9200
  timeout: 15s
sync:
  batch_size: 200
  strategy: offset
  jobs:
    grocery:
      index: grocery_items
      module_ids: [21, 22]
      mode: patch
      embed: true
embedding:
  interval: 250ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://search.internal:9200", cfg.Sink.URL)
	assert.Equal(t, 15*time.Second, cfg.Sink.Timeout)
	assert.Equal(t, 200, cfg.Sync.BatchSize)
	assert.Equal(t, "offset", cfg.Sync.Strategy)
	assert.Equal(t, 250*time.Millisecond, cfg.Embedding.Interval)
	assert.Equal(t, 50, cfg.Embedding.SubBatchSize, "untouched defaults survive")

	grocery := cfg.Sync.Jobs["grocery"]
	assert.Equal(t, "grocery_items", grocery.Index)
	assert.Equal(t, []int64{21, 22}, grocery.ModuleIDs)
	assert.True(t, grocery.Embed)
	assert.Contains(t, cfg.Sync.Jobs, "food", "default jobs are kept")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "sync: [unclosed"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"MYSQL_HOST":                    "db.internal",
		"MYSQL_PORT":                    "3307",
		"MYSQL_USER":                    "reader",
		"MYSQL_PASSWORD":                "secret",
		"OPENSEARCH_URL":                "http://os:9200",
		"EMBEDDING_SERVICE_URL":         "http://embed:3101",
		"SEARCHSYNC_EMBEDDING_PROVIDER": "local",
		"SEARCHSYNC_BATCH_SIZE":         "1000",
		"SEARCHSYNC_STRATEGY":           "stream",
		"NATS_URL":                      "nats://nats:4222",
	}))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Source.Host)
	assert.Equal(t, 3307, cfg.Source.Port)
	assert.Equal(t, "http://os:9200", cfg.Sink.URL)
	assert.Equal(t, "http://embed:3101", cfg.Embedding.URL)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 1000, cfg.Sync.BatchSize)
	assert.Equal(t, "stream", cfg.Sync.Strategy)
	assert.Equal(t, "nats://nats:4222", cfg.Notify.URL)

	db := cfg.Source.DBConfig()
	assert.Equal(t, source.DriverMySQL, db.Driver)
	assert.Contains(t, db.DSN, "reader:secret@tcp(db.internal:3307)/migrated_db")
}

func TestApplyEnv_BadInteger(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{"MYSQL_PORT": "abc"}))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDBConfig_ExplicitDSN(t *testing.T) {
	s := SourceConfig{Driver: source.DriverPostgres, DSN: "postgres://u@h/db", MaxOpenConns: 4}
	db := s.DBConfig()
	assert.Equal(t, "postgres://u@h/db", db.DSN)
	assert.Equal(t, 4, db.MaxOpenConns)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero batch", func(c *Config) { c.Sync.BatchSize = 0 }, "batch_size"},
		{"bad strategy", func(c *Config) { c.Sync.Strategy = "scroll" }, "strategy"},
		{"bad driver", func(c *Config) { c.Source.Driver = "oracle" }, "driver"},
		{"dsn required", func(c *Config) { c.Source.Driver = source.DriverPostgres }, "dsn"},
		{"no sink", func(c *Config) { c.Sink.URL = "" }, "sink.url"},
		{"zero sub-batch", func(c *Config) { c.Embedding.SubBatchSize = 0 }, "sub_batch_size"},
		{"no jobs", func(c *Config) { c.Sync.Jobs = nil }, "at least one job"},
		{"job without index", func(c *Config) {
			c.Sync.Jobs["food"] = JobConfig{ModuleIDs: []int64{4}}
		}, "sync.jobs.food.index"},
		{"bad mode", func(c *Config) {
			c.Sync.Jobs["food"] = JobConfig{Index: "food_items", Mode: "merge"}
		}, "sync.jobs.food.mode"},
		{"bad kind", func(c *Config) {
			c.Sync.Jobs["food"] = JobConfig{Index: "food_items", Kind: "brands"}
		}, "sync.jobs.food.kind"},
		{"patch stores", func(c *Config) {
			c.Sync.Jobs["food_stores"] = JobConfig{Index: "food_stores", Kind: "stores", Mode: "patch"}
		}, "sync.jobs.food_stores.mode"},
		{"embed categories", func(c *Config) {
			c.Sync.Jobs["food_categories"] = JobConfig{Index: "food_categories", Kind: "categories", Embed: true}
		}, "items only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_EmptyModeIsFull(t *testing.T) {
	cfg := Default()
	cfg.Sync.Jobs["food"] = JobConfig{Index: "food_items"}
	assert.NoError(t, cfg.Validate())
}
