// Package config loads cmdpilot's runtime configuration from the environment
// and an optional .env file, following the teacher's env-tag convention.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is cmdpilot's runtime configuration.
type Config struct {
	// StateDir is the per-user directory holding rollback transactions and
	// recovery history (§6 on-disk layout).
	StateDir string `env:"CMDPILOT_STATE_DIR"`
	// TrustedCommandsFile lists base executables the user has pre-approved
	// for LOW-or-below-risk invocations (§4.2).
	TrustedCommandsFile string `env:"CMDPILOT_TRUSTED_COMMANDS"`
	// AICredentialEnvVar names the environment variable holding the AI
	// collaborator's API key (§6 "environment variables consumed").
	AICredentialEnvVar string `env:"CMDPILOT_AI_CREDENTIAL_VAR"`
	AIEndpoint         string `env:"CMDPILOT_AI_ENDPOINT"`
	AIDeploymentID     string `env:"CMDPILOT_AI_DEPLOYMENT_ID"`

	DefaultStepTimeout time.Duration `env:"CMDPILOT_STEP_TIMEOUT"`
	DefaultAITimeout   time.Duration `env:"CMDPILOT_AI_TIMEOUT"`
	MaxParallelWidth   int           `env:"CMDPILOT_MAX_PARALLEL"`
	MaxCaptureBytes    int64         `env:"CMDPILOT_MAX_CAPTURE_BYTES"`

	LogLevel string `env:"CMDPILOT_LOG_LEVEL"`
	LogFile  string `env:"CMDPILOT_LOG_FILE"`

	SchemaVersion int `env:"-"`
}

// Default returns cmdpilot's baseline configuration before env/.env overlay.
func Default() Config {
	home, _ := os.UserHomeDir()
	stateDir := filepath.Join(home, ".cmdpilot")
	return Config{
		StateDir:            stateDir,
		TrustedCommandsFile: filepath.Join(stateDir, "trusted-commands"),
		AICredentialEnvVar:  "CMDPILOT_AI_API_KEY",
		DefaultStepTimeout:  2 * time.Minute,
		DefaultAITimeout:    60 * time.Second,
		MaxParallelWidth:    parallelCeiling(),
		MaxCaptureBytes:     1 << 20, // 1 MiB, per spec §4.1
		LogLevel:            "info",
		SchemaVersion:       1,
	}
}

func parallelCeiling() int {
	n := runtime.NumCPU()
	if n > 16 {
		return 16
	}
	if n < 1 {
		return 1
	}
	return n
}

// Load loads configuration: defaults, then an optional .env file, then the
// process environment, in increasing priority.
func Load(envFile string) (Config, error) {
	cfg := Default()

	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return cfg, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	overlayString(&cfg.StateDir, "CMDPILOT_STATE_DIR")
	overlayString(&cfg.TrustedCommandsFile, "CMDPILOT_TRUSTED_COMMANDS")
	overlayString(&cfg.AICredentialEnvVar, "CMDPILOT_AI_CREDENTIAL_VAR")
	overlayString(&cfg.AIEndpoint, "CMDPILOT_AI_ENDPOINT")
	overlayString(&cfg.AIDeploymentID, "CMDPILOT_AI_DEPLOYMENT_ID")
	overlayString(&cfg.LogLevel, "CMDPILOT_LOG_LEVEL")
	overlayString(&cfg.LogFile, "CMDPILOT_LOG_FILE")
	overlayDuration(&cfg.DefaultStepTimeout, "CMDPILOT_STEP_TIMEOUT")
	overlayDuration(&cfg.DefaultAITimeout, "CMDPILOT_AI_TIMEOUT")
	overlayInt(&cfg.MaxParallelWidth, "CMDPILOT_MAX_PARALLEL")
	if cfg.MaxParallelWidth > 16 {
		cfg.MaxParallelWidth = 16
	}
	overlayInt64(&cfg.MaxCaptureBytes, "CMDPILOT_MAX_CAPTURE_BYTES")

	return cfg, nil
}

func overlayString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func overlayDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func overlayInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overlayInt64(dst *int64, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

// AICredential reads the AI collaborator's API key from the configured
// environment variable.
func (c Config) AICredential() string {
	return os.Getenv(c.AICredentialEnvVar)
}
