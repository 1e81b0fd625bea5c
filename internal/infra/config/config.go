package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	PBKDF2    PBKDF2Settings    `mapstructure:"pbkdf2"`
	TwoFactor TwoFactorSettings `mapstructure:"two_factor"`
	Session   SessionSettings   `mapstructure:"session"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the Kafka producer used for outbound events
// (challenge delivery, audit).
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// PBKDF2Settings configures the key-stretching parameters used when encoding
// new passwords. Verification always honors the parameters embedded in the
// stored encoding.
type PBKDF2Settings struct {
	Algorithm  string `mapstructure:"algorithm"`
	Iterations int    `mapstructure:"iterations"`
	SaltLength int    `mapstructure:"salt_length"`
	HashLength int    `mapstructure:"hash_length"`
}

// TwoFactorSettings tunes the emailed one-time code challenge.
type TwoFactorSettings struct {
	CodeLength   int           `mapstructure:"code_length"`
	ChallengeTTL time.Duration `mapstructure:"challenge_ttl"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

// SessionSettings configures the session cookie and identity handling.
type SessionSettings struct {
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecret string        `mapstructure:"cookie_secret"`
	CookieTTL    time.Duration `mapstructure:"cookie_ttl"`
	Secure       bool          `mapstructure:"secure"`
}

// RateLimitSettings configures sliding windows for the login endpoints.
type RateLimitSettings struct {
	WindowDuration     time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts   int           `mapstructure:"login_max_attempts"`
	ConfirmMaxAttempts int           `mapstructure:"confirm_max_attempts"`
	SignupMaxAttempts  int           `mapstructure:"signup_max_attempts"`
}

type TelemetrySettings struct {
	MetricsNamespace string `mapstructure:"metrics_namespace"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("HEALTHCOACH")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"pbkdf2.algorithm",
		"pbkdf2.iterations",
		"pbkdf2.salt_length",
		"pbkdf2.hash_length",
		"two_factor.code_length",
		"two_factor.challenge_ttl",
		"two_factor.max_attempts",
		"session.cookie_name",
		"session.cookie_secret",
		"session.cookie_ttl",
		"session.secure",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.confirm_max_attempts",
		"rate_limit.signup_max_attempts",
		"telemetry.metrics_namespace",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "healthcoach")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "healthcoach")
	v.SetDefault("postgres.password", "healthcoach_password")
	v.SetDefault("postgres.database", "healthcoach")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "healthcoach")

	v.SetDefault("pbkdf2.algorithm", "PBKDF2WithHmacSHA256")
	v.SetDefault("pbkdf2.iterations", 64000)
	v.SetDefault("pbkdf2.salt_length", 24)
	v.SetDefault("pbkdf2.hash_length", 24)

	v.SetDefault("two_factor.code_length", 6)
	v.SetDefault("two_factor.challenge_ttl", "10m")
	v.SetDefault("two_factor.max_attempts", 5)

	v.SetDefault("session.cookie_name", "healthcoach_session")
	v.SetDefault("session.cookie_secret", "")
	v.SetDefault("session.cookie_ttl", "12h")
	v.SetDefault("session.secure", false)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.confirm_max_attempts", 10)
	v.SetDefault("rate_limit.signup_max_attempts", 3)

	v.SetDefault("telemetry.metrics_namespace", "healthcoach")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "HEALTHCOACH_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
