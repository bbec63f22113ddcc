package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Discovery    DiscoveryConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AIRWAVE_APP_ENV" required:"true"`
	Port         string `envconfig:"AIRWAVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AIRWAVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AIRWAVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AIRWAVE_SERVICE_KIND" default:"cms"`
}

type DBConfig struct {
	DSN    string `envconfig:"AIRWAVE_DB_DSN"`
	Driver string `envconfig:"AIRWAVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AIRWAVE_DB_HOST"`
	LegacyPort     int    `envconfig:"AIRWAVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AIRWAVE_DB_USER"`
	LegacyPassword string `envconfig:"AIRWAVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"AIRWAVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"AIRWAVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AIRWAVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AIRWAVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AIRWAVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AIRWAVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AIRWAVE_REDIS_URL"`
	Address      string        `envconfig:"AIRWAVE_REDIS_ADDR"`
	Password     string        `envconfig:"AIRWAVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"AIRWAVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AIRWAVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AIRWAVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AIRWAVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AIRWAVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AIRWAVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type KafkaConfig struct {
	Brokers         []string      `envconfig:"AIRWAVE_KAFKA_BROKERS" required:"true"`
	ClientID        string        `envconfig:"AIRWAVE_KAFKA_CLIENT_ID" default:"airwave-cms"`
	ConsumerGroupID string        `envconfig:"AIRWAVE_KAFKA_CONSUMER_GROUP_ID" default:"airwave-discovery"`
	DialTimeout     time.Duration `envconfig:"AIRWAVE_KAFKA_DIAL_TIMEOUT" default:"3s"`
	RequestTimeout  time.Duration `envconfig:"AIRWAVE_KAFKA_REQUEST_TIMEOUT" default:"30s"`
	ProducerRetries int           `envconfig:"AIRWAVE_KAFKA_PRODUCER_RETRIES" default:"5"`
}

type OutboxConfig struct {
	SweepInterval time.Duration `envconfig:"AIRWAVE_OUTBOX_SWEEP_INTERVAL" default:"30s"`
	SweepBatch    int           `envconfig:"AIRWAVE_OUTBOX_SWEEP_BATCH" default:"10"`
	MaxRetries    int           `envconfig:"AIRWAVE_OUTBOX_MAX_RETRIES" default:"3"`
	// PendingGrace is how long a pending row may sit before the sweep treats
	// it as orphaned by a producer crash and replays it.
	PendingGrace time.Duration `envconfig:"AIRWAVE_OUTBOX_PENDING_GRACE" default:"5m"`
	// RetentionAge bounds how long acknowledged rows are kept before the
	// sweeper purges them.
	RetentionAge time.Duration `envconfig:"AIRWAVE_OUTBOX_RETENTION_AGE" default:"168h"`
}

type DiscoveryConfig struct {
	SearchCacheTTL time.Duration `envconfig:"AIRWAVE_DISCOVERY_SEARCH_CACHE_TTL" default:"5m"`
	BrowseCacheTTL time.Duration `envconfig:"AIRWAVE_DISCOVERY_BROWSE_CACHE_TTL" default:"10m"`
	SearchLanguage string        `envconfig:"AIRWAVE_DISCOVERY_SEARCH_LANGUAGE" default:"arabic"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AIRWAVE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
