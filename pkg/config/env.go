package config

// EnvPrefix is passed to envconfig; every field carries its full name.
const EnvPrefix = "SCENTDRIVE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	ScheduleTiered    = "tiered"
	ScheduleThreshold = "threshold"
)

const (
	EnvAppEnv   = "SCENTDRIVE_APP_ENV"
	EnvPort     = "SCENTDRIVE_APP_PORT"
	EnvLogLevel = "SCENTDRIVE_LOG_LEVEL"

	EnvDBDSN  = "SCENTDRIVE_DB_DSN"
	EnvDBHost = "SCENTDRIVE_DB_HOST"
	EnvDBPort = "SCENTDRIVE_DB_PORT"
	EnvDBUser = "SCENTDRIVE_DB_USER"
	EnvDBPass = "SCENTDRIVE_DB_PASSWORD"
	EnvDBName = "SCENTDRIVE_DB_NAME"

	EnvRedisURL = "SCENTDRIVE_REDIS_URL"

	EnvJWTSecret = "SCENTDRIVE_JWT_SECRET"
	EnvJWTIssuer = "SCENTDRIVE_JWT_ISSUER"

	EnvCORSOrigins = "SCENTDRIVE_CORS_ALLOWED_ORIGINS"

	EnvCommissionSchedule = "SCENTDRIVE_COMMISSION_REFERRAL_SCHEDULE"

	EnvGCPProjectID = "SCENTDRIVE_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "SCENTDRIVE_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
