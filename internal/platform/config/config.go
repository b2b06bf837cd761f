package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Driver names accepted by DB_DRIVER.
const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"
)

// Config captures process level configuration for the registry server.
type Config struct {
	Addr            string
	AdminToken      string
	LogLevel        string
	ShutdownTimeout time.Duration

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig

	VerifyCacheTTL time.Duration
}

// DatabaseConfig is empty (DSN == "") when no database is configured, in which
// case the server runs on the in-memory store.
type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	TxTimeout    time.Duration
}

// RedisConfig configures the verification cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit sink. No brokers means audit events are
// written to the log instead.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv builds a Config from environment variables so main stays lean.
// A .env file in the working directory is loaded first if present; variables
// already set in the environment win.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	p := &parser{}
	cfg := Config{
		Addr:            getEnv("BOTHUB_ADDR", ":5000"),
		AdminToken:      os.Getenv("ADMIN_API_TOKEN"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", DriverPQ),
			DSN:          databaseDSN(),
			MaxOpenConns: p.int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: p.int("DB_MAX_IDLE_CONNS", 5),
			TxTimeout:    p.duration("DB_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "bothub.audit"),
		},
		VerifyCacheTTL: p.duration("VERIFY_CACHE_TTL", 30*time.Second),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.Database.Driver != DriverPQ && cfg.Database.Driver != DriverPGX {
		return Config{}, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPQ, DriverPGX, cfg.Database.Driver)
	}
	return cfg, nil
}

// databaseDSN prefers DATABASE_URL and otherwise assembles a URL from the
// discrete DB_* variables. DB_HOST is the switch: without it there is no database.
func databaseDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, getEnv("DB_PORT", "5432")),
		Path:   "/" + getEnv("DB_NAME", "bothub"),
	}
	if user := os.Getenv("DB_USER"); user != "" {
		if pw, ok := os.LookupEnv("DB_PASSWORD"); ok {
			u.User = url.UserPassword(user, pw)
		} else {
			u.User = url.User(user)
		}
	}
	q := url.Values{}
	q.Set("sslmode", getEnv("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// parser keeps the first malformed variable so FromEnv can report it.
type parser struct {
	err error
}

func (p *parser) int(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
}
