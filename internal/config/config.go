package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"jobgrid"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"jobgrid"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	// Feed ingestion
	FeedURLs           []string      `envconfig:"FEED_URLS" default:"https://jobicy.com/?feed=job_feed,https://www.higheredjobs.com/rss/articleFeed.cfm"`
	FeedFetchTimeout   time.Duration `envconfig:"FEED_FETCH_TIMEOUT" default:"30s"`
	FeedPacingInterval time.Duration `envconfig:"FEED_PACING_INTERVAL" default:"1s"`

	// Reconciler / queue tuning
	WorkerConcurrency   int           `envconfig:"WORKER_CONCURRENCY" default:"5"`
	WorkerRatePerSecond float64       `envconfig:"WORKER_RATE_PER_SECOND" default:"10"`
	QueueMaxAttempts    int           `envconfig:"QUEUE_MAX_ATTEMPTS" default:"3"`
	QueueBackoffBase    time.Duration `envconfig:"QUEUE_BACKOFF_BASE" default:"2s"`
	QueueBackoffMax     time.Duration `envconfig:"QUEUE_BACKOFF_MAX" default:"2m"`
	DeadLetterRetention int           `envconfig:"DEAD_LETTER_RETENTION" default:"50"`

	// Scheduler
	EnableScheduler bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	ImportCronSpec  string `envconfig:"IMPORT_CRON_SPEC" default:"0 * * * *"`

	// Server
	ServerPort    int    `envconfig:"SERVER_PORT" default:"8080"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may also be set in the shell, so .env is optional
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if len(c.FeedURLs) == 0 {
		return fmt.Errorf("%w: FEED_URLS", ErrMissingRequired)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.WorkerConcurrency)
	}
	if c.QueueMaxAttempts < 1 {
		return fmt.Errorf("QUEUE_MAX_ATTEMPTS must be at least 1, got %d", c.QueueMaxAttempts)
	}
	// go-nsq carries attempts as uint16.
	if c.QueueMaxAttempts > math.MaxUint16 {
		return fmt.Errorf("QUEUE_MAX_ATTEMPTS must be at most %d, got %d", math.MaxUint16, c.QueueMaxAttempts)
	}
	// A non-positive rate would block every handler on the limiter.
	if c.WorkerRatePerSecond <= 0 {
		return fmt.Errorf("WORKER_RATE_PER_SECOND must be positive, got %v", c.WorkerRatePerSecond)
	}
	return nil
}
