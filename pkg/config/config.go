package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Cookie        CookieConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Storage       StorageConfig
	Search        SearchConfig
	PDF           PDFConfig
	Outbox        OutboxConfig
	Cron          CronConfig
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
	Env          string `envconfig:"PROPERTYHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"PROPERTYHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PROPERTYHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PROPERTYHUB_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"PROPERTYHUB_PUBLIC_URL" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"PROPERTYHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PROPERTYHUB_DB_DSN"`
	Driver string `envconfig:"PROPERTYHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PROPERTYHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"PROPERTYHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PROPERTYHUB_DB_USER"`
	LegacyPassword string `envconfig:"PROPERTYHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"PROPERTYHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"PROPERTYHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PROPERTYHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PROPERTYHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PROPERTYHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PROPERTYHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PROPERTYHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PROPERTYHUB_REDIS_ADDR"`
	Password     string        `envconfig:"PROPERTYHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROPERTYHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROPERTYHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PROPERTYHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PROPERTYHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROPERTYHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROPERTYHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PROPERTYHUB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PROPERTYHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PROPERTYHUB_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"PROPERTYHUB_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTTL returns the access token lifetime.
func (j JWTConfig) AccessTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// CookieConfig controls the session cookies issued alongside bearer tokens.
type CookieConfig struct {
	Domain string `envconfig:"PROPERTYHUB_COOKIE_DOMAIN"`
	Secure bool   `envconfig:"PROPERTYHUB_COOKIE_SECURE" default:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PROPERTYHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PROPERTYHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PROPERTYHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PROPERTYHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PROPERTYHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PROPERTYHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PROPERTYHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PROPERTYHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PROPERTYHUB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PROPERTYHUB_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PROPERTYHUB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PROPERTYHUB_AUTO_MIGRATE" default:"false"`
	SearchIndex bool `envconfig:"PROPERTYHUB_FEATURE_SEARCH_INDEX" default:"true"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PROPERTYHUB_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PROPERTYHUB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PROPERTYHUB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PROPERTYHUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic           string `envconfig:"PROPERTYHUB_PUBSUB_DOMAIN_TOPIC" default:"ph-domain-events"`
	NotificationSub       string `envconfig:"PROPERTYHUB_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
	AnalyticsSubscription string `envconfig:"PROPERTYHUB_PUBSUB_ANALYTICS_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Dataset             string `envconfig:"PROPERTYHUB_BIGQUERY_DATASET" default:"propertyhub"`
	PlatformEventsTable string `envconfig:"PROPERTYHUB_BIGQUERY_EVENTS_TABLE" default:"platform_events"`
}

// StorageConfig points at an S3-compatible object store (MinIO in dev).
type StorageConfig struct {
	Endpoint          string        `envconfig:"PROPERTYHUB_STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKey         string        `envconfig:"PROPERTYHUB_STORAGE_ACCESS_KEY"`
	SecretKey         string        `envconfig:"PROPERTYHUB_STORAGE_SECRET_KEY"`
	Bucket            string        `envconfig:"PROPERTYHUB_STORAGE_BUCKET" default:"propertyhub"`
	Region            string        `envconfig:"PROPERTYHUB_STORAGE_REGION" default:"us-east-1"`
	UseSSL            bool          `envconfig:"PROPERTYHUB_STORAGE_USE_SSL" default:"false"`
	UploadURLExpiry   time.Duration `envconfig:"PROPERTYHUB_STORAGE_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"PROPERTYHUB_STORAGE_DOWNLOAD_URL_EXPIRY" default:"1h"`
	MaxUploadMB       int           `envconfig:"PROPERTYHUB_MAX_UPLOAD_MB" default:"25"`
}

type SearchConfig struct {
	URL    string `envconfig:"PROPERTYHUB_MEILI_URL"`
	APIKey string `envconfig:"PROPERTYHUB_MEILI_API_KEY"`
	Index  string `envconfig:"PROPERTYHUB_MEILI_INDEX" default:"propertyhub_properties"`
}

// Enabled reports whether a search engine endpoint is configured.
func (s SearchConfig) Enabled() bool {
	return strings.TrimSpace(s.URL) != ""
}

type PDFConfig struct {
	Timeout     time.Duration `envconfig:"PROPERTYHUB_PDF_TIMEOUT" default:"30s"`
	ChromePath  string        `envconfig:"PROPERTYHUB_PDF_CHROME_PATH"`
	CompanyName string        `envconfig:"PROPERTYHUB_PDF_COMPANY_NAME" default:"PropertyHub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PROPERTYHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PROPERTYHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PROPERTYHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"PROPERTYHUB_CRON_INTERVAL" default:"15m"`
	JobTimeout            time.Duration `envconfig:"PROPERTYHUB_CRON_JOB_TIMEOUT" default:"5m"`
	RunOnce               bool          `envconfig:"PROPERTYHUB_CRON_RUN_ONCE" default:"false"`
	LockName              string        `envconfig:"PROPERTYHUB_CRON_LOCK_NAME" default:"propertyhub-cron"`
	Jobs                  []string      `envconfig:"PROPERTYHUB_CRON_JOBS"`
	ReminderLeadTime      time.Duration `envconfig:"PROPERTYHUB_CRON_REMINDER_LEAD_TIME" default:"24h"`
	AutoApproveOnPeriod   bool          `envconfig:"PROPERTYHUB_CRON_AUTO_APPROVE_COMMISSIONS" default:"true"`
	NotificationRetention time.Duration `envconfig:"PROPERTYHUB_CRON_NOTIFICATION_RETENTION" default:"2160h"`
	OutboxRetention       time.Duration `envconfig:"PROPERTYHUB_CRON_OUTBOX_RETENTION" default:"720h"`
	OutboxDeadAttempts    int           `envconfig:"PROPERTYHUB_CRON_OUTBOX_DEAD_ATTEMPTS" default:"5"`
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
