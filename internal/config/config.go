package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	App            App            `yaml:"app"`
	HTTP           HTTP           `yaml:"http"`
	Log            Log            `yaml:"log"`
	Postgres       Postgres       `yaml:"postgres"`
	Redis          Redis          `yaml:"redis"`
	Kafka          Kafka          `yaml:"kafka"`
	Outbox         Outbox         `yaml:"outbox"`
	Auth           Auth           `yaml:"auth"`
	RateLimit      RateLimit      `yaml:"rate_limit"`
	TravelerReport TravelerReport `yaml:"traveler_report"`
	Albergue       Albergue       `yaml:"albergue"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"albergue-api"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

type HTTP struct {
	Port        string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	MetricsPort string `yaml:"metrics_port" env:"METRICS_PORT" env-default:"9093"`
	TrustProxy  bool   `yaml:"trust_proxy" env:"HTTP_TRUST_PROXY" env-default:"false"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// SlogLevel maps the configured level name; unknown names log at info.
func (l Log) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"albergue"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"albergue"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"albergue"`
}

// DSN returns a libpq style connection string understood by both pgx and lib/pq.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.DBName)
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Kafka struct {
	Brokers     []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	Topic       string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"albergue-events"`
	GroupID     string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"traveler-reporter"`
	StartOffset string   `yaml:"start_offset" env:"KAFKA_START_OFFSET" env-default:"earliest"`
}

type Outbox struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"OUTBOX_POLL_INTERVAL" env-default:"2s"`
	BatchSize    int           `yaml:"batch_size" env:"OUTBOX_BATCH_SIZE" env-default:"10"`
	MaxAttempts  int           `yaml:"max_attempts" env:"OUTBOX_MAX_ATTEMPTS" env-default:"10"`
	StaleAfter   time.Duration `yaml:"stale_after" env:"OUTBOX_STALE_AFTER" env-default:"5m"`
}

type Auth struct {
	JWTSecret         string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL          time.Duration `yaml:"token_ttl" env:"JWT_TTL" env-default:"12h"`
	AdminUsername     string        `yaml:"admin_username" env:"ADMIN_USERNAME" env-default:"admin"`
	AdminPasswordHash string        `yaml:"admin_password_hash" env:"ADMIN_PASSWORD_HASH"`
}

const minSecretLen = 32

var weakSecrets = map[string]bool{"change-me": true, "changeme": true, "secret": true}

// Validate checks the signing secret. Admin routes trust any token signed with
// it, so the API refuses to start without a real one.
func (a Auth) Validate() error {
	switch {
	case a.JWTSecret == "":
		return errors.New("auth: JWT_SECRET is required")
	case weakSecrets[strings.ToLower(a.JWTSecret)]:
		return errors.New("auth: JWT_SECRET is a placeholder value")
	case len(a.JWTSecret) < minSecretLen:
		return fmt.Errorf("auth: JWT_SECRET must be at least %d bytes", minSecretLen)
	}
	return nil
}

type RateLimit struct {
	Backend         string        `yaml:"backend" env:"RATE_LIMIT_BACKEND" env-default:"memory"`
	Requests        int           `yaml:"requests" env:"RATE_LIMIT_REQUESTS" env-default:"20"`
	Window          time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"1m"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"RATE_LIMIT_CLEANUP" env-default:"60s"`
}

type TravelerReport struct {
	Endpoint          string        `yaml:"endpoint" env:"TRAVELER_REPORT_ENDPOINT" env-default:"https://hospedajes.ses.mir.es/hospedajes-web/ws/v1/comunicacion"`
	EstablishmentCode string        `yaml:"establishment_code" env:"TRAVELER_REPORT_ESTABLISHMENT" env-default:"0000000000"`
	Username          string        `yaml:"username" env:"TRAVELER_REPORT_USERNAME"`
	Password          string        `yaml:"password" env:"TRAVELER_REPORT_PASSWORD"`
	Attempts          uint          `yaml:"attempts" env:"TRAVELER_REPORT_ATTEMPTS" env-default:"3"`
	BaseDelay         time.Duration `yaml:"base_delay" env:"TRAVELER_REPORT_BASE_DELAY" env-default:"1s"`
	Timeout           time.Duration `yaml:"timeout" env:"TRAVELER_REPORT_TIMEOUT" env-default:"30s"`
}

type Albergue struct {
	Name      string `yaml:"name" env:"ALBERGUE_NAME" env-default:"Albergue del Carrascalejo"`
	MaxNights int    `yaml:"max_nights" env:"ALBERGUE_MAX_NIGHTS" env-default:"14"`
	MaxGuests int    `yaml:"max_guests" env:"ALBERGUE_MAX_GUESTS" env-default:"4"`
}

func New() (*Config, error) {
	return Load("config.yaml")
}

func Load(path string) (*Config, error) {
	// .env is optional, it only seeds the process environment
	_ = godotenv.Load()

	cfg := &Config{}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else {
		// Allow env vars to override config file
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config env override: %w", err)
		}
	}

	return cfg, nil
}
