package config

const (
	EnvPrefix = "PROPERTYHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                  = "PROPERTYHUB_APP_ENV"
	EnvPort                    = "PROPERTYHUB_APP_PORT"
	EnvDBDSN                   = "PROPERTYHUB_DB_DSN"
	EnvDBHost                  = "PROPERTYHUB_DB_HOST"
	EnvDBUser                  = "PROPERTYHUB_DB_USER"
	EnvDBName                  = "PROPERTYHUB_DB_NAME"
	EnvDBPassword              = "PROPERTYHUB_DB_PASSWORD"
	EnvRedisURL                = "PROPERTYHUB_REDIS_URL"
	EnvJWTSecret               = "PROPERTYHUB_JWT_SECRET"
	EnvJWTIssuer               = "PROPERTYHUB_JWT_ISSUER"
	EnvJWTExpMins              = "PROPERTYHUB_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "PROPERTYHUB_REFRESH_TOKEN_TTL_MINUTES"
	EnvStorageBucket           = "PROPERTYHUB_STORAGE_BUCKET"
	EnvStorageUploadExpiry     = "PROPERTYHUB_STORAGE_UPLOAD_URL_EXPIRY"
	EnvPubSubDomainTopic       = "PROPERTYHUB_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubNotificationSub   = "PROPERTYHUB_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub      = "PROPERTYHUB_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvMeiliURL                = "PROPERTYHUB_MEILI_URL"
	EnvCronReminderLeadTime    = "PROPERTYHUB_CRON_REMINDER_LEAD_TIME"
	EnvGCPProjectID            = "PROPERTYHUB_GCP_PROJECT_ID"
	EnvBigQueryDataset         = "PROPERTYHUB_BIGQUERY_DATASET"
	EnvBigQueryPlatformEvents  = "PROPERTYHUB_BIGQUERY_EVENTS_TABLE"
	EnvOutboxPublishBatchSize  = "PROPERTYHUB_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxPublishPollMillis = "PROPERTYHUB_OUTBOX_PUBLISH_POLL_MS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
