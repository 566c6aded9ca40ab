package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreRedis  = "redis"
	StoreBadger = "badger"
)

type AppConfig struct {
	HTTPAddr string

	StoreBackend string
	RedisURL     string
	BadgerDir    string
	DatabaseURL  string

	GameTTLSec    int
	DefaultPolicy string
	MessagesDir   string

	AllowedOrigins []string

	ClientBaseURL string
}

// GameTTL is the lifetime of a live game record.
func (c *AppConfig) GameTTL() time.Duration {
	return time.Duration(c.GameTTLSec) * time.Second
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:      ":8080",
		StoreBackend:  StoreRedis,
		GameTTLSec:    86400,
		DefaultPolicy: "basic",
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("STORE_BACKEND")); v != "" {
		cfg.StoreBackend = strings.ToLower(v)
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.BadgerDir = strings.TrimSpace(os.Getenv("BADGER_DIR"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	cfg.ClientBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("CHESS_CLIENT_BASE_URL")), "/")

	if v := strings.TrimSpace(os.Getenv("GAME_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GameTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_DEFAULT_POLICY")); v != "" {
		cfg.DefaultPolicy = strings.ToLower(v)
	}

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		parts := strings.Split(v, ",")
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	switch cfg.StoreBackend {
	case StoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis store")
		}
	case StoreBadger:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreRedis, StoreBadger, cfg.StoreBackend)
	}

	return cfg, nil
}
