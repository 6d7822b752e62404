// Package config loads runtime configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable; required variables are enforced by must()
// and a missing value halts startup with a fatal log.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to verify member JWTs
	HoldTTLMin     int    // temporary hold lifetime in minutes
	PaymentWebhook string // payment-intent webhook URL (empty disables)
	CancelWebhook  string // cancellation webhook URL (empty disables)
}

// Load reads configuration from the environment and returns a Config.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		HoldTTLMin:     intOr("HOLD_TTL_MIN", 10),
		PaymentWebhook: os.Getenv("PAYMENT_WEBHOOK_URL"),
		CancelWebhook:  os.Getenv("CANCEL_WEBHOOK_URL"),
	}
}

// must retrieves a required environment variable.  If the variable is
// unset or empty the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr reads an optional integer variable, falling back to def when the
// variable is unset.  A set-but-invalid value is still fatal.
func intOr(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
