package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
search:
  driver: memory
sync:
  job:
    interval: 1s
    batch_size: 20
    update_types: [POPULARITY_ONLY]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Sync.Job.Interval)
	assert.Equal(t, 20, cfg.Sync.Job.BatchSize)
	assert.Equal(t, []string{"POPULARITY_ONLY"}, cfg.Sync.Job.UpdateTypes)
	assert.Equal(t, 3*time.Second, cfg.Sync.TechBlog.Interval)
	assert.Equal(t, 100, cfg.Sync.CommunityPost.BatchSize)
	assert.Equal(t, 5, cfg.Sync.MaxRetry)
	assert.Equal(t, 10*time.Second, cfg.Counter.FlushInterval)
	assert.Equal(t, "search.index.synced", cfg.Kafka.Topic.IndexSynced)
}

func TestLoadConfig_RejectsTypesenseWithoutHosts(t *testing.T) {
	path := writeConfig(t, `
search:
  driver: typesense
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsShortProcessingLease(t *testing.T) {
	path := writeConfig(t, `
search:
  driver: memory
sync:
  processing_lease: 10s
  job:
    timeout: 30s
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
