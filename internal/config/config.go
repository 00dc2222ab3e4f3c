package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings" // strings normalizes enumerated values
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Database fields are only required when
// the mysql store driver is selected.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	StoreDriver string // token store driver: "mysql" or "memory"
	DBUser      string // database username
	DBPass      string // database password (optional)
	DBHost      string // database host address
	DBPort      string // database port number
	DBName      string // database name
	DBMaxConns  int    // connection pool ceiling for the mysql driver
	JWTSecret   string // secret used to verify externally issued JWTs
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:         must("APP_ENV"),
		Port:        must("APP_PORT"),
		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", "mysql")),
		JWTSecret:   must("JWT_SECRET"),
	}
	if cfg.StoreDriver != "memory" && cfg.StoreDriver != "mysql" {
		log.Fatalf("unknown STORE_DRIVER: %q (want mysql or memory)", cfg.StoreDriver)
	}
	if cfg.StoreDriver == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
		cfg.DBMaxConns = atoi(getenv("DB_MAX_CONNS", "25"))
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
