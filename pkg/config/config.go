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
	JWT          JWTConfig
	CORS         CORSConfig
	RateLimit    OrderRateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Commission   CommissionConfig
	Orders       OrdersConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SCENTDRIVE_APP_ENV" required:"true"`
	Port         string `envconfig:"SCENTDRIVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SCENTDRIVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SCENTDRIVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SCENTDRIVE_SERVICE_KIND" default:"api"`

	// MetricsAddr is where worker binaries expose /metrics; empty disables it.
	MetricsAddr string `envconfig:"SCENTDRIVE_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"SCENTDRIVE_DB_DSN"`
	Driver string `envconfig:"SCENTDRIVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SCENTDRIVE_DB_HOST"`
	LegacyPort     int    `envconfig:"SCENTDRIVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SCENTDRIVE_DB_USER"`
	LegacyPassword string `envconfig:"SCENTDRIVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SCENTDRIVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SCENTDRIVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SCENTDRIVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SCENTDRIVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SCENTDRIVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SCENTDRIVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"SCENTDRIVE_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SCENTDRIVE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SCENTDRIVE_REDIS_ADDR"`
	Password     string        `envconfig:"SCENTDRIVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SCENTDRIVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SCENTDRIVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SCENTDRIVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SCENTDRIVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SCENTDRIVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SCENTDRIVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the shared secret used to verify tokens minted by the
// hosted auth provider. This service never issues sessions itself.
type JWTConfig struct {
	Secret string `envconfig:"SCENTDRIVE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SCENTDRIVE_JWT_ISSUER" required:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SCENTDRIVE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MaxAgeSeconds  int      `envconfig:"SCENTDRIVE_CORS_MAX_AGE" default:"300"`
}

type OrderRateLimitConfig struct {
	OrderWindow     time.Duration `envconfig:"SCENTDRIVE_RATE_LIMIT_ORDER_WINDOW" default:"10m"`
	OrderPhoneLimit int           `envconfig:"SCENTDRIVE_RATE_LIMIT_ORDER_PHONE_LIMIT" default:"5"`
	OrderIPLimit    int           `envconfig:"SCENTDRIVE_RATE_LIMIT_ORDER_IP_LIMIT" default:"30"`
	RegisterWindow  time.Duration `envconfig:"SCENTDRIVE_RATE_LIMIT_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit int           `envconfig:"SCENTDRIVE_RATE_LIMIT_REGISTER_IP_LIMIT" default:"10"`
	TrackingWindow  time.Duration `envconfig:"SCENTDRIVE_RATE_LIMIT_TRACKING_WINDOW" default:"1m"`
	TrackingIPLimit int           `envconfig:"SCENTDRIVE_RATE_LIMIT_TRACKING_IP_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate    bool `envconfig:"SCENTDRIVE_AUTO_MIGRATE" default:"false"`
	AutoAssignment bool `envconfig:"SCENTDRIVE_AUTO_ASSIGNMENT" default:"true"`
}

// CommissionConfig selects which referral schedule is authoritative.
type CommissionConfig struct {
	ReferralSchedule string `envconfig:"SCENTDRIVE_COMMISSION_REFERRAL_SCHEDULE" default:"tiered"`
}

type OrdersConfig struct {
	UnitPrice   string `envconfig:"SCENTDRIVE_ORDER_UNIT_PRICE" default:"499.00"`
	MaxQuantity int    `envconfig:"SCENTDRIVE_ORDER_MAX_QUANTITY" default:"50"`
}

func (c CommissionConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.ReferralSchedule)) {
	case ScheduleTiered, ScheduleThreshold:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvCommissionSchedule, ScheduleTiered, ScheduleThreshold, c.ReferralSchedule)
	}
}

// Schedule returns the normalized schedule name.
func (c CommissionConfig) Schedule() string {
	s := strings.ToLower(strings.TrimSpace(c.ReferralSchedule))
	if s == "" {
		return ScheduleTiered
	}
	return s
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SCENTDRIVE_EVENTING_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SCENTDRIVE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SCENTDRIVE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SCENTDRIVE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic     string `envconfig:"SCENTDRIVE_PUBSUB_ORDERS_TOPIC" default:"sd-order-events"`
	VolunteersTopic string `envconfig:"SCENTDRIVE_PUBSUB_VOLUNTEERS_TOPIC" default:"sd-volunteer-events"`
	DeliveryTopic   string `envconfig:"SCENTDRIVE_PUBSUB_DELIVERY_TOPIC" default:"sd-delivery-events"`
	// AnalyticsSubscription receives a copy of every campaign topic for the
	// analytics worker.
	AnalyticsSubscription string `envconfig:"SCENTDRIVE_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"sd-analytics-sub"`
}

type BigQueryConfig struct {
	Dataset             string `envconfig:"SCENTDRIVE_BIGQUERY_DATASET" default:"scentdrive"`
	CampaignEventsTable string `envconfig:"SCENTDRIVE_BIGQUERY_CAMPAIGN_EVENTS_TABLE" default:"campaign_events"`
	BatchSize           int    `envconfig:"SCENTDRIVE_BIGQUERY_BATCH_SIZE" default:"1"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"SCENTDRIVE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"SCENTDRIVE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"SCENTDRIVE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"SCENTDRIVE_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"SCENTDRIVE_CRON_INTERVAL" default:"1h"`
	LockTTL               time.Duration `envconfig:"SCENTDRIVE_CRON_LOCK_TTL" default:"10m"`
	SweepMaxOrderAge      time.Duration `envconfig:"SCENTDRIVE_CRON_SWEEP_MAX_ORDER_AGE" default:"168h"`
	SweepBatchSize        int           `envconfig:"SCENTDRIVE_CRON_SWEEP_BATCH_SIZE" default:"200"`
	PaymentWindow         time.Duration `envconfig:"SCENTDRIVE_CRON_PAYMENT_WINDOW" default:"48h"`
	NotificationRetention time.Duration `envconfig:"SCENTDRIVE_CRON_NOTIFICATION_RETENTION" default:"2160h"`
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
