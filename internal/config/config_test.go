package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"jobgrid/importer/internal/config"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("DB_HOST", "test-host")
	defer os.Unsetenv("DB_HOST")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "test-host", cfg.DBHost)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.Load()
	assert.NoError(t, err)

	assert.Equal(t, 5, cfg.WorkerConcurrency)
	assert.Equal(t, 3, cfg.QueueMaxAttempts)
	assert.Equal(t, 50, cfg.DeadLetterRetention)
	assert.Equal(t, "0 * * * *", cfg.ImportCronSpec)
	assert.NotEmpty(t, cfg.FeedURLs)
}

func TestLoadConfig_FeedURLList(t *testing.T) {
	os.Setenv("FEED_URLS", "https://a.example/feed,https://b.example/feed")
	defer os.Unsetenv("FEED_URLS")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/feed", "https://b.example/feed"}, cfg.FeedURLs)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	content := []byte("DB_HOST=loaded-from-file")
	err := os.WriteFile(".env", content, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(".env")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "loaded-from-file", cfg.DBHost)
}

func TestValidate(t *testing.T) {
	t.Run("MissingDBName", func(t *testing.T) {
		cfg := &config.Config{DBHost: "h", DBUser: "u", FeedURLs: []string{"x"}, WorkerConcurrency: 1, QueueMaxAttempts: 1}
		err := cfg.Validate()
		assert.ErrorIs(t, err, config.ErrMissingRequired)
	})

	t.Run("MissingFeeds", func(t *testing.T) {
		cfg := &config.Config{DBHost: "h", DBUser: "u", DBName: "d", WorkerConcurrency: 1, QueueMaxAttempts: 1}
		err := cfg.Validate()
		assert.ErrorIs(t, err, config.ErrMissingRequired)
	})

	t.Run("ZeroConcurrency", func(t *testing.T) {
		cfg := &config.Config{DBHost: "h", DBUser: "u", DBName: "d", FeedURLs: []string{"x"}, QueueMaxAttempts: 1}
		err := cfg.Validate()
		assert.ErrorContains(t, err, "WORKER_CONCURRENCY")
	})

	t.Run("AttemptsAboveUint16", func(t *testing.T) {
		cfg := &config.Config{DBHost: "h", DBUser: "u", DBName: "d", FeedURLs: []string{"x"},
			WorkerConcurrency: 1, QueueMaxAttempts: 70000, WorkerRatePerSecond: 10}
		err := cfg.Validate()
		assert.ErrorContains(t, err, "QUEUE_MAX_ATTEMPTS")
	})

	t.Run("ZeroRate", func(t *testing.T) {
		cfg := &config.Config{DBHost: "h", DBUser: "u", DBName: "d", FeedURLs: []string{"x"},
			WorkerConcurrency: 1, QueueMaxAttempts: 1}
		err := cfg.Validate()
		assert.ErrorContains(t, err, "WORKER_RATE_PER_SECOND")
	})

	t.Run("Valid", func(t *testing.T) {
		cfg := &config.Config{DBHost: "h", DBUser: "u", DBName: "d", FeedURLs: []string{"x"},
			WorkerConcurrency: 5, QueueMaxAttempts: 3, WorkerRatePerSecond: 10}
		assert.NoError(t, cfg.Validate())
	})
}
