// Package config provides configuration for the chat API.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the API configuration.
type Config struct {
	// Server settings
	HTTPAddr string

	// Storage
	DBDriver   string // postgres | sqlite
	DBURL      string
	SQLitePath string
	RedisURL   string // optional; enables cache, relay and background tasks

	// Logging
	LogLevel  string
	LogPretty bool

	// Chat behaviour
	ChatListOrder   string // recent | id
	HubSelfDelivery string // exclude | include
	HubBuffer       int
	DisplayLocation *time.Location

	// Background tasks
	AsynqConcurrency int
	AsynqQueues      string
}

// Load reads an optional .env file and then the environment.
// The returned error only reports a missing or unreadable .env file;
// the config is usable either way.
func Load(files ...string) (*Config, error) {
	envErr := godotenv.Load(files...)
	return FromEnv(), envErr
}

// FromEnv loads configuration from environment variables.
func FromEnv() *Config {
	return &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBURL:            getEnv("DB_URL", ""),
		SQLitePath:       getEnv("SQLITE_PATH", "duochat.db"),
		RedisURL:         getEnv("REDIS_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvBool("LOG_PRETTY", false),
		ChatListOrder:    strings.ToLower(getEnv("CHAT_LIST_ORDER", "recent")),
		HubSelfDelivery:  strings.ToLower(getEnv("HUB_SELF_DELIVERY", "exclude")),
		HubBuffer:        getEnvInt("HUB_BUFFER", 128),
		DisplayLocation:  getEnvLocation("DISPLAY_TZ", time.Local),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),
		AsynqQueues:      getEnv("ASYNQ_QUEUES", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvLocation(key string, defaultVal *time.Location) *time.Location {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if loc, err := time.LoadLocation(val); err == nil {
			return loc
		}
	}
	return defaultVal
}
