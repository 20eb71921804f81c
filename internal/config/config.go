// Package config loads cagecore settings from the environment. Optional
// dotenv files are applied first; real environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "COLONYCORE_"

// Storage selects the persistence backend.
type Storage struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"./cagecore.db"`
	PostgresDSN string `env:"POSTGRES_DSN"`
}

// S3 configures the S3 blob driver.
type S3 struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	Prefix          string `env:"PREFIX"`
	PathStyle       bool   `env:"PATH_STYLE" envDefault:"false"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	SessionToken    string `env:"SESSION_TOKEN"`
}

// Blob selects where cage file attachments live.
type Blob struct {
	Driver           string `env:"DRIVER" envDefault:"fs"`
	FSRoot           string `env:"FS_ROOT" envDefault:"./blobdata"`
	PurgeConcurrency int    `env:"PURGE_CONCURRENCY" envDefault:"4"`
	S3               S3     `envPrefix:"S3_"`
}

// Log configures the logrus adapter.
type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// Lineage bounds graph traversals.
type Lineage struct {
	MaxAncestorHops    int `env:"MAX_ANCESTOR_HOPS" envDefault:"20"`
	MaxDescendantDepth int `env:"MAX_DESCENDANT_DEPTH" envDefault:"10"`
}

// Metrics selects the operation metrics sink. ExpvarName is only read by the
// expvar driver; empty means a generated name.
type Metrics struct {
	Driver     string `env:"DRIVER" envDefault:"prometheus"`
	ExpvarName string `env:"EXPVAR_NAME"`
}

// Trace configures per-operation JSON span output. Output is "none", "stderr"
// or a file path that spans are appended to.
type Trace struct {
	Output string `env:"OUTPUT" envDefault:"none"`
	Retain int    `env:"RETAIN" envDefault:"0"`
}

// Config is the full process configuration.
type Config struct {
	Storage  Storage
	Blob     Blob    `envPrefix:"BLOB_"`
	Log      Log     `envPrefix:"LOG_"`
	Lineage  Lineage `envPrefix:"LINEAGE_"`
	Metrics  Metrics `envPrefix:"METRICS_"`
	Trace    Trace   `envPrefix:"TRACE_"`
	HTTPAddr string  `env:"HTTP_ADDR" envDefault:"localhost:8080"`
}

// LoadEnvFiles applies the dotenv files that exist, in order, without
// overriding variables already set. It returns how many files were loaded.
func LoadEnvFiles(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads the dotenv files (missing ones are skipped) and then parses the
// process environment.
func Load(files ...string) (Config, error) {
	if _, err := LoadEnvFiles(files...); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}
	return parse(env.Options{Prefix: Prefix})
}

// FromEnvironment parses an explicit variable map instead of the process
// environment. Keys carry the COLONYCORE_ prefix.
func FromEnvironment(environ map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Blob.Driver = strings.ToLower(strings.TrimSpace(c.Blob.Driver))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Metrics.Driver = strings.ToLower(strings.TrimSpace(c.Metrics.Driver))
	c.Trace.Output = strings.TrimSpace(c.Trace.Output)
	if c.Trace.Output == "" {
		c.Trace.Output = "none"
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("%sPOSTGRES_DSN required for postgres driver", Prefix))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case "fs", "memory", "none":
	case "s3":
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("%sBLOB_S3_BUCKET required for s3 driver", Prefix))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if c.Blob.PurgeConcurrency < 1 {
		errs = append(errs, fmt.Errorf("blob purge concurrency must be positive, got %d", c.Blob.PurgeConcurrency))
	}
	if c.Lineage.MaxAncestorHops < 1 {
		errs = append(errs, fmt.Errorf("max ancestor hops must be positive, got %d", c.Lineage.MaxAncestorHops))
	}
	if c.Lineage.MaxDescendantDepth < 0 {
		errs = append(errs, fmt.Errorf("max descendant depth must not be negative, got %d", c.Lineage.MaxDescendantDepth))
	}
	switch c.Metrics.Driver {
	case "prometheus", "expvar", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown metrics driver %q", c.Metrics.Driver))
	}
	if c.Trace.Retain < 0 {
		errs = append(errs, fmt.Errorf("trace retain must not be negative, got %d", c.Trace.Retain))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
