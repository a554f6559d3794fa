// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
)

type Config struct {
	Addr            string
	LogLevel        string
	LogFormat       string
	Durations       engine.Settings
	DatabaseURL     string
	HistorySize     int
	PatternsFile    string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// Load reads the given .env files (missing files are ignored; with no names,
// ".env" in the working directory) and then the environment. Variables that
// are already set win over .env values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	red, err := envMillis("TRAFFIC_RED_MS", engine.DefaultRedDuration)
	if err != nil {
		return Config{}, err
	}
	yellow, err := envMillis("TRAFFIC_YELLOW_MS", engine.DefaultYellowDuration)
	if err != nil {
		return Config{}, err
	}
	green, err := envMillis("TRAFFIC_GREEN_MS", engine.DefaultGreenDuration)
	if err != nil {
		return Config{}, err
	}
	historySize, err := envInt("TRAFFIC_HISTORY_SIZE", 256)
	if err != nil {
		return Config{}, err
	}
	shutdownTimeout, err := envDuration("TRAFFIC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:            envString("TRAFFIC_ADDR", ":3000"),
		LogLevel:        envString("TRAFFIC_LOG_LEVEL", "info"),
		LogFormat:       envString("TRAFFIC_LOG_FORMAT", "json"),
		Durations:       engine.Settings{Red: red, Yellow: yellow, Green: green},
		DatabaseURL:     envString("TRAFFIC_DATABASE_URL", ""),
		HistorySize:     historySize,
		PatternsFile:    envString("TRAFFIC_PATTERNS_FILE", ""),
		CORSOrigins:     splitList(envString("TRAFFIC_CORS_ORIGINS", "*")),
		ShutdownTimeout: shutdownTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("TRAFFIC_ADDR is required")
	}
	if err := c.Durations.Validate(); err != nil {
		return fmt.Errorf("TRAFFIC_*_MS: %w", err)
	}
	if c.HistorySize < 1 {
		return errors.New("TRAFFIC_HISTORY_SIZE must be >= 1")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("TRAFFIC_SHUTDOWN_TIMEOUT must be positive")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("TRAFFIC_LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
