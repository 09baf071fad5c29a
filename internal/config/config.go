// Package config loads the shopetl run configuration from the environment.
// Every key has a default, so a bare invocation reads
// data/shopping_behavior.csv and uploads to a local Postgres.
package config

import (
	"net"
	"net/url"
	"strconv"
)

// Config holds all run configuration.
type Config struct {
	Paths    PathsConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// PathsConfig locates the input and output files.
type PathsConfig struct {
	// Input is the raw CSV to clean.
	Input string `env:"INPUT_PATH" default:"data/shopping_behavior.csv"`

	// Output is where the cleaned CSV is written. It is overwritten.
	Output string `env:"OUTPUT_PATH" default:"data/shopping_cleaned.csv"`

	// Parquet, when set, also writes the cleaned table as Parquet.
	Parquet string `env:"OUTPUT_PARQUET_PATH"`
}

// Backend kinds accepted in DB_KIND.
const (
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
	KindMSSQL    = "mssql"
	KindDuckDB   = "duckdb"
)

// DatabaseConfig describes the upload target.
type DatabaseConfig struct {
	// Kind selects the storage backend: postgres, sqlite, mssql or duckdb.
	Kind string `env:"DB_KIND" default:"postgres"`

	Host     string `env:"DB_HOST" envAlt:"PGHOST" default:"localhost"`
	Port     int    `env:"DB_PORT" envAlt:"PGPORT" default:"5432"`
	Name     string `env:"DB_NAME" envAlt:"PGDATABASE" default:"postgres"`
	User     string `env:"DB_USER" envAlt:"PGUSER" default:"postgres"`
	Password string `env:"DB_PASSWORD" envAlt:"PGPASSWORD" default:"password"`

	// Table is replaced on every run.
	Table string `env:"DB_TABLE" default:"shopping"`

	// RawDSN overrides the DSN built from the fields above.
	RawDSN string `env:"DB_DSN"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend is none or datadog.
	Backend string `env:"METRICS_BACKEND" default:"none"`

	// Tags are extra comma-separated backend tags.
	Tags []string `env:"METRICS_TAGS"`

	// JobName tags every metric with job:<name>.
	JobName string `env:"JOB_NAME" default:"shopetl"`
}

// DSN returns the connection string for the configured backend.
//
// For sqlite and duckdb Name is the database file path. Credentials are
// URL-escaped for the network backends.
func (d DatabaseConfig) DSN() string {
	if d.RawDSN != "" {
		return d.RawDSN
	}
	host := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	switch d.Kind {
	case KindSQLite, KindDuckDB:
		return d.Name
	case KindMSSQL:
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(d.User, d.Password),
			Host:     host,
			RawQuery: url.Values{"database": {d.Name}}.Encode(),
		}
		return u.String()
	default:
		u := url.URL{
			Scheme: "postgresql",
			User:   url.UserPassword(d.User, d.Password),
			Host:   host,
			Path:   "/" + d.Name,
		}
		return u.String()
	}
}

// Redacted is DSN with the password masked, for logs.
func (d DatabaseConfig) Redacted() string {
	dsn := d.DSN()
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
