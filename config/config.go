package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Elastic  ElasticsearchConfig
	Mpesa    MpesaConfig
	Mail     MailConfig
	Storage  StorageConfig
	Workers  WorkerConfig
}

type ServerConfig struct {
	AppEnv        string
	HTTPPort      string
	GRPCPort      string
	FrontendURL   string
	PublicBaseURL string
	CORSOrigins   []string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type DatabaseConfig struct {
	Driver     string // postgres | sqlite
	SQLitePath string
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type AuthConfig struct {
	TokenTTL    time.Duration
	ResetSecret string
	ResetTTL    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
}

type MpesaConfig struct {
	APIURL         string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string
	CallbackToken  string
	Timeout        time.Duration
}

type MailConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	UseSSL        bool
	From          string
	SiteName      string
	Admins        []string
	RetryAttempts int
	RetryDelay    time.Duration
}

type StorageConfig struct {
	BucketURL string
}

type WorkerConfig struct {
	PoolSize int
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:        getEnv("APP_ENV", "dev"),
			HTTPPort:      getEnv("HTTP_PORT", ":8000"),
			GRPCPort:      getEnv("GRPC_PORT", ":8082"),
			FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8000"),
			CORSOrigins:   getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			SQLitePath: getEnv("SQLITE_PATH", "marketplace.db"),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			User:            getEnv("POSTGRES_USER", "marketplace"),
			Password:        getEnv("POSTGRES_PASSWORD", "marketplace"),
			DBName:          getEnv("POSTGRES_DB", "marketplace"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
		},
		Auth: AuthConfig{
			TokenTTL:    getEnvDuration("AUTH_TOKEN_TTL", 10*time.Hour),
			ResetSecret: getEnv("PASSWORD_RESET_SECRET", "change-me-in-production"),
			ResetTTL:    time.Duration(getEnvInt("PASSWORD_RESET_TIMEOUT", 1800)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC_EVENTS", "marketplace.events"),
			GroupID: getEnv("KAFKA_GROUP_NOTIFICATIONS", "notifications"),
		},
		Elastic: ElasticsearchConfig{
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", nil),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
		},
		Mpesa: MpesaConfig{
			APIURL:         getEnv("MPESA_API_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:    getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("MPESA_CONSUMER_SECRET", ""),
			ShortCode:      getEnv("MPESA_SHORTCODE", "174379"),
			PassKey:        getEnv("MPESA_PASSKEY", ""),
			CallbackURL:    getEnv("MPESA_CALLBACK_URL", "http://localhost:8000/api/mpesa/callback/"),
			CallbackToken:  getEnv("MPESA_CALLBACK_TOKEN", ""),
			Timeout:        getEnvDuration("MPESA_TIMEOUT", 10*time.Second),
		},
		Mail: MailConfig{
			Host:          getEnv("EMAIL_HOST", "localhost"),
			Port:          getEnvInt("EMAIL_PORT", 465),
			Username:      getEnv("EMAIL_HOST_USER", ""),
			Password:      getEnv("EMAIL_HOST_PASSWORD", ""),
			UseSSL:        getEnvBool("EMAIL_USE_SSL", true),
			From:          getEnv("DEFAULT_FROM_EMAIL", "no-reply@localhost"),
			SiteName:      getEnv("SITE_NAME", "AgriConnect"),
			Admins:        getEnvSlice("ADMIN_EMAILS", nil),
			RetryAttempts: getEnvInt("EMAIL_MAX_RETRIES", 3),
			RetryDelay:    getEnvDuration("EMAIL_RETRY_DELAY", 5*time.Second),
		},
		Storage: StorageConfig{
			BucketURL: getEnv("STORAGE_BUCKET_URL", "file:///var/lib/marketplace/uploads"),
		},
		Workers: WorkerConfig{
			PoolSize: getEnvInt("WORKER_POOL_SIZE", 32),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return fallback
}
