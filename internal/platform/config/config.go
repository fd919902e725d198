// Package config loads service configuration from environment variables,
// optionally seeded from a local .env file for development.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every tunable the service reads at startup.
type Config struct {
	Server    ServerConfig
	Firestore FirestoreConfig
	PubSub    PubSubConfig
	Checkout  CheckoutConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// FirestoreConfig identifies the backing Firestore database.
type FirestoreConfig struct {
	ProjectID       string
	DatabaseID      string
	CredentialsFile string
}

// PubSubConfig controls the order sync publisher.
type PubSubConfig struct {
	Enabled        bool
	ProjectID      string
	OrderSyncTopic string
}

// CheckoutConfig tunes checkout behaviour.
type CheckoutConfig struct {
	IdempotencyTTL time.Duration

	// SubmitLimit caps order submissions per store and client within
	// SubmitWindow. Zero disables throttling.
	SubmitLimit  int
	SubmitWindow time.Duration
}

// ValidationError reports a misconfigured or missing variable.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Key, e.Reason)
}

// Load reads configuration from the process environment. When a .env file
// exists in the working directory its entries fill in unset variables.
func Load() (*Config, error) {
	env := environFromOS()
	if fileEnv, err := readDotEnv(".env"); err == nil {
		for k, v := range fileEnv {
			if _, ok := env[k]; !ok {
				env[k] = v
			}
		}
	}
	return loadFrom(env)
}

func loadFrom(env map[string]string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            8080,
			Environment:     "development",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 20 * time.Second,
		},
		Firestore: FirestoreConfig{
			DatabaseID: "(default)",
		},
		Checkout: CheckoutConfig{
			IdempotencyTTL: 24 * time.Hour,
			SubmitLimit:    30,
			SubmitWindow:   time.Minute,
		},
	}

	if v, ok := env["PORT"]; ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || port <= 0 || port > 65535 {
			return nil, &ValidationError{Key: "PORT", Reason: "must be a valid TCP port"}
		}
		cfg.Server.Port = port
	}
	if v, ok := env["APP_ENV"]; ok && strings.TrimSpace(v) != "" {
		cfg.Server.Environment = strings.TrimSpace(v)
	}
	if d, err := durationVar(env, "SERVER_READ_TIMEOUT"); err != nil {
		return nil, err
	} else if d > 0 {
		cfg.Server.ReadTimeout = d
	}
	if d, err := durationVar(env, "SERVER_WRITE_TIMEOUT"); err != nil {
		return nil, err
	} else if d > 0 {
		cfg.Server.WriteTimeout = d
	}
	if d, err := durationVar(env, "SERVER_SHUTDOWN_TIMEOUT"); err != nil {
		return nil, err
	} else if d > 0 {
		cfg.Server.ShutdownTimeout = d
	}

	cfg.Firestore.ProjectID = strings.TrimSpace(env["FIRESTORE_PROJECT_ID"])
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = strings.TrimSpace(env["GOOGLE_CLOUD_PROJECT"])
	}
	if cfg.Firestore.ProjectID == "" {
		return nil, &ValidationError{Key: "FIRESTORE_PROJECT_ID", Reason: "is required"}
	}
	if v, ok := env["FIRESTORE_DATABASE_ID"]; ok && strings.TrimSpace(v) != "" {
		cfg.Firestore.DatabaseID = strings.TrimSpace(v)
	}
	cfg.Firestore.CredentialsFile = strings.TrimSpace(env["FIRESTORE_CREDENTIALS_FILE"])

	cfg.PubSub.OrderSyncTopic = strings.TrimSpace(env["PUBSUB_ORDER_SYNC_TOPIC"])
	cfg.PubSub.ProjectID = strings.TrimSpace(env["PUBSUB_PROJECT_ID"])
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}
	cfg.PubSub.Enabled = cfg.PubSub.OrderSyncTopic != ""
	if v, ok := env["PUBSUB_ENABLED"]; ok {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, &ValidationError{Key: "PUBSUB_ENABLED", Reason: "must be a boolean"}
		}
		cfg.PubSub.Enabled = enabled
	}
	if cfg.PubSub.Enabled && cfg.PubSub.OrderSyncTopic == "" {
		return nil, &ValidationError{Key: "PUBSUB_ORDER_SYNC_TOPIC", Reason: "is required when pubsub is enabled"}
	}

	if d, err := durationVar(env, "CHECKOUT_IDEMPOTENCY_TTL"); err != nil {
		return nil, err
	} else if d > 0 {
		cfg.Checkout.IdempotencyTTL = d
	}
	if v, ok := env["CHECKOUT_SUBMIT_LIMIT"]; ok {
		limit, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || limit < 0 {
			return nil, &ValidationError{Key: "CHECKOUT_SUBMIT_LIMIT", Reason: "must be a non-negative integer"}
		}
		cfg.Checkout.SubmitLimit = limit
	}
	if d, err := durationVar(env, "CHECKOUT_SUBMIT_WINDOW"); err != nil {
		return nil, err
	} else if d > 0 {
		cfg.Checkout.SubmitWindow = d
	}

	return cfg, nil
}

func durationVar(env map[string]string, key string) (time.Duration, error) {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return 0, &ValidationError{Key: key, Reason: "must be a positive duration"}
	}
	return d, nil
}

func environFromOS() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.Index(kv, "="); idx > 0 {
			env[kv[:idx]] = kv[idx+1:]
		}
	}
	return env
}

func readDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	env := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		env[key] = value
	}
	return env, scanner.Err()
}
