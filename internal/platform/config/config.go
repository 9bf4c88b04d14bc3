// Package config centralizes environment-driven configuration so main stays
// lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr         string
	DatabaseURL  string
	Redis        RedisConfig
	KafkaBrokers []string
	KafkaTopic   string
}

// RedisConfig tunes the shared Redis client pool.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables. Empty Redis or
// Kafka settings disable the respective integration rather than failing.
func FromEnv() Server {
	addr := os.Getenv("COMPREG_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var brokers []string
	if raw := os.Getenv("COMPREG_KAFKA_BROKERS"); raw != "" {
		for _, broker := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(broker); trimmed != "" {
				brokers = append(brokers, trimmed)
			}
		}
	}
	topic := os.Getenv("COMPREG_KAFKA_TOPIC")

	return Server{
		Addr:         addr,
		DatabaseURL:  os.Getenv("COMPREG_DATABASE_URL"),
		Redis:        redisFromEnv(),
		KafkaBrokers: brokers,
		KafkaTopic:   topic,
	}
}

func redisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("COMPREG_REDIS_URL"),
		PoolSize:     envInt("COMPREG_REDIS_POOL_SIZE", 10),
		MinIdleConns: envInt("COMPREG_REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  envDuration("COMPREG_REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDuration("COMPREG_REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envDuration("COMPREG_REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			return parsed
		}
	}
	return fallback
}
