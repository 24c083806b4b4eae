// Package config reads relay and client settings from the environment.
// A .env file in the working directory is loaded first when present.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAddr           = ":8080"
	defaultBaseURL        = "http://localhost:8080"
	defaultWSURL          = "ws://localhost:8080/ws"
	defaultHeartBeat      = 10 * time.Second
	defaultReconnectDelay = 5 * time.Second
	defaultWriteTimeout   = 3 * time.Second
	defaultOutboxSize     = 32
	defaultSnapshotTries  = 3
	defaultLogLevel       = "info"
)

type Relay struct {
	Addr         string
	DatabaseURL  string // empty keeps snapshots in memory
	HeartBeat    time.Duration
	WriteTimeout time.Duration
	OutboxSize   int
	LogLevel     string
	Development  bool
}

type Client struct {
	BaseURL           string
	WSURL             string
	MatchID           string
	Token             string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration // zero keeps the delay fixed
	HeartBeat         time.Duration
	SnapshotRetries   int
	CacheDir          string
	LogLevel          string
	Development       bool
}

// loadDotEnv ignores a missing file and reports anything else.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func LoadRelay() (Relay, error) {
	if err := loadDotEnv(); err != nil {
		return Relay{}, err
	}
	return Relay{
		Addr:         envOrDefault("RELAY_ADDR", defaultAddr),
		DatabaseURL:  envOrDefault("DATABASE_URL", ""),
		HeartBeat:    durationEnvOrDefault("RELAY_HEARTBEAT", defaultHeartBeat),
		WriteTimeout: durationEnvOrDefault("RELAY_WRITE_TIMEOUT", defaultWriteTimeout),
		OutboxSize:   intEnvOrDefault("RELAY_OUTBOX_SIZE", defaultOutboxSize),
		LogLevel:     envOrDefault("LOG_LEVEL", defaultLogLevel),
		Development:  boolEnvOrDefault("DEV", false),
	}, nil
}

func LoadClient() (Client, error) {
	if err := loadDotEnv(); err != nil {
		return Client{}, err
	}
	return Client{
		BaseURL:           envOrDefault("CRICKET_API_URL", defaultBaseURL),
		WSURL:             envOrDefault("CRICKET_WS_URL", defaultWSURL),
		MatchID:           envOrDefault("CRICKET_MATCH_ID", ""),
		Token:             envOrDefault("CRICKET_TOKEN", ""),
		ReconnectDelay:    durationEnvOrDefault("CRICKET_RECONNECT_DELAY", defaultReconnectDelay),
		MaxReconnectDelay: durationEnvOrDefault("CRICKET_RECONNECT_MAX_DELAY", 0),
		HeartBeat:         durationEnvOrDefault("CRICKET_HEARTBEAT", defaultHeartBeat),
		SnapshotRetries:   intEnvOrDefault("CRICKET_SNAPSHOT_RETRIES", defaultSnapshotTries),
		CacheDir:          envOrDefault("CRICKET_CACHE_DIR", ""),
		LogLevel:          envOrDefault("LOG_LEVEL", defaultLogLevel),
		Development:       boolEnvOrDefault("DEV", false),
	}, nil
}
