package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database     *dbConfig
	Service      *svcConfig
	Allocation   *allocationConfig
	Rebalance    *rebalanceConfig
	Jobs         *jobsConfig
	Embedding    *embeddingConfig
	Notification *notificationConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"reviews"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string `envconfig:"REVIEW_ENGINE_ADDRESS" default:":3443"`
	MetricsAddress  string `envconfig:"REVIEW_ENGINE_METRICS_ADDRESS" default:":8080"`
	LogLevel        string `envconfig:"REVIEW_ENGINE_LOG_LEVEL" default:"info"`
	MigrationFolder string `envconfig:"REVIEW_ENGINE_MIGRATIONS_FOLDER" default:""`
}

type allocationConfig struct {
	// InitialQueueSize is the prefix of the ranked candidates used as the first queue.
	InitialQueueSize int   `envconfig:"ALLOCATION_INITIAL_QUEUE_SIZE" default:"3"`
	ReputationDelta  int64 `envconfig:"ALLOCATION_REPUTATION_DELTA" default:"1"`
	MaxWorkers       int   `envconfig:"ALLOCATION_MAX_WORKERS" default:"8"`
	MinWorkers       int   `envconfig:"ALLOCATION_MIN_WORKERS" default:"2"`
}

type rebalanceConfig struct {
	Enabled            bool          `envconfig:"REBALANCE_ENABLED" default:"false"`
	Interval           time.Duration `envconfig:"REBALANCE_INTERVAL" default:"15m"`
	StallThreshold     time.Duration `envconfig:"REBALANCE_STALL_THRESHOLD" default:"4h"`
	BatchSize          int           `envconfig:"REBALANCE_BATCH_SIZE" default:"50"`
	RetainStalledTurns bool          `envconfig:"REBALANCE_RETAIN_STALLED_TURNS" default:"true"`
}

type jobsConfig struct {
	MaxLogLines int           `envconfig:"JOBS_MAX_LOG_LINES" default:"200"`
	Retention   time.Duration `envconfig:"JOBS_RETENTION" default:"24h"`
	MaxRetained int           `envconfig:"JOBS_MAX_RETAINED" default:"100"`
	NodeID      int64         `envconfig:"JOBS_NODE_ID" default:"1"`
}

type embeddingConfig struct {
	Enabled bool   `envconfig:"EMBEDDING_ENABLED" default:"false"`
	APIKey  string `envconfig:"EMBEDDING_API_KEY" default:""`
	BaseURL string `envconfig:"EMBEDDING_BASE_URL" default:""`
	Model   string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
}

type notificationConfig struct {
	Writer   string `envconfig:"NOTIFICATION_WRITER" default:"stdout"`
	RedisURL string `envconfig:"NOTIFICATION_REDIS_URL" default:"redis://localhost:6379/0"`
	Stream   string `envconfig:"NOTIFICATION_STREAM" default:"review-engine:notifications"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a fresh configuration populated from defaults and the
// environment, bypassing the process-wide singleton.
func NewDefault() *Config {
	cfg := new(Config)
	_ = envconfig.Process("", cfg)
	return cfg
}
