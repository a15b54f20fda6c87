package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Policy   PolicyConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// PolicyConfig carries scheduling policy that the services treat as
// configuration rather than hard-coded truths.
type PolicyConfig struct {
	// DefaultEventDuration is assumed when an event has a start time but
	// no end time.
	DefaultEventDuration time.Duration
	// AllowTouchingEndpoints treats back-to-back events (one ends exactly
	// when the next starts) as non-conflicting.
	AllowTouchingEndpoints bool
}

var AppConfig *Config

func LoadConfig() *Config {
	AppConfig = &Config{
		Server:   GetServerConfig(),
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Policy:   GetPolicyConfig(),
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8081"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5433", // test DB runs on 5433
			User:     "postgres",
			Password: "postgres",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     "6380", // test Redis runs on 6380
			Password: "",
			DB:       1,
		},
		Policy: DefaultPolicy(),
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port: getEnv("SERVER_PORT", "8080"),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetPolicyConfig() PolicyConfig {
	p := DefaultPolicy()

	if v := os.Getenv("DEFAULT_EVENT_DURATION_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		p.DefaultEventDuration = time.Duration(minutes) * time.Minute
	}
	if v := os.Getenv("ALLOW_TOUCHING_ENDPOINTS"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		p.AllowTouchingEndpoints = allow
	}

	return p
}

func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		DefaultEventDuration:   2 * time.Hour,
		AllowTouchingEndpoints: true,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
