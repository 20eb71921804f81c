package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFromEnvironmentDefaults(t *testing.T) {
	cfg, err := FromEnvironment(map[string]string{})
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "./cagecore.db" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != "fs" || cfg.Blob.FSRoot != "./blobdata" || cfg.Blob.PurgeConcurrency != 4 {
		t.Fatalf("unexpected blob defaults %+v", cfg.Blob)
	}
	if cfg.Lineage.MaxAncestorHops != 20 || cfg.Lineage.MaxDescendantDepth != 10 {
		t.Fatalf("unexpected lineage defaults %+v", cfg.Lineage)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" || cfg.HTTPAddr != "localhost:8080" {
		t.Fatalf("unexpected misc defaults %+v %s", cfg.Log, cfg.HTTPAddr)
	}
	if cfg.Metrics.Driver != "prometheus" || cfg.Trace.Output != "none" || cfg.Trace.Retain != 0 {
		t.Fatalf("unexpected observability defaults %+v %+v", cfg.Metrics, cfg.Trace)
	}
	if cfg.Blob.S3.Region != "us-east-1" {
		t.Fatalf("unexpected s3 region default %q", cfg.Blob.S3.Region)
	}
}

func TestFromEnvironmentOverrides(t *testing.T) {
	cfg, err := FromEnvironment(map[string]string{
		"COLONYCORE_STORAGE_DRIVER":            "Postgres",
		"COLONYCORE_POSTGRES_DSN":              "postgres://db/cages",
		"COLONYCORE_BLOB_DRIVER":               "s3",
		"COLONYCORE_BLOB_S3_BUCKET":            "cage-files",
		"COLONYCORE_BLOB_S3_PATH_STYLE":        "true",
		"COLONYCORE_BLOB_S3_ACCESS_KEY_ID":     "AKIA",
		"COLONYCORE_LINEAGE_MAX_ANCESTOR_HOPS": "5",
		"COLONYCORE_LOG_FORMAT":                "JSON",
		"COLONYCORE_METRICS_DRIVER":            " Expvar ",
		"COLONYCORE_METRICS_EXPVAR_NAME":       "cages",
		"COLONYCORE_TRACE_OUTPUT":              "/var/log/cagecore/spans.jsonl",
	})
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN != "postgres://db/cages" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if !cfg.Blob.S3.PathStyle || cfg.Blob.S3.Bucket != "cage-files" || cfg.Blob.S3.AccessKeyID != "AKIA" {
		t.Fatalf("unexpected s3 %+v", cfg.Blob.S3)
	}
	if cfg.Metrics.Driver != "expvar" || cfg.Metrics.ExpvarName != "cages" || cfg.Trace.Output != "/var/log/cagecore/spans.jsonl" {
		t.Fatalf("unexpected observability %+v %+v", cfg.Metrics, cfg.Trace)
	}
	if cfg.Lineage.MaxAncestorHops != 5 || cfg.Log.Format != "json" {
		t.Fatalf("unexpected overrides %+v %+v", cfg.Lineage, cfg.Log)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	_, err := FromEnvironment(map[string]string{
		"COLONYCORE_STORAGE_DRIVER":               "mysql",
		"COLONYCORE_BLOB_DRIVER":                  "s3",
		"COLONYCORE_BLOB_PURGE_CONCURRENCY":       "0",
		"COLONYCORE_LINEAGE_MAX_DESCENDANT_DEPTH": "-1",
		"COLONYCORE_METRICS_DRIVER":               "statsd",
		"COLONYCORE_TRACE_RETAIN":                 "-2",
	})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{"storage driver", "BLOB_S3_BUCKET", "concurrency", "descendant depth", "metrics driver", "trace retain"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestFromEnvironmentRejectsMalformedNumbers(t *testing.T) {
	if _, err := FromEnvironment(map[string]string{"COLONYCORE_LINEAGE_MAX_ANCESTOR_HOPS": "many"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadAppliesDotenvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	content := "COLONYCORE_STORAGE_DRIVER=memory\nCOLONYCORE_BLOB_DRIVER=memory\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("COLONYCORE_BLOB_DRIVER", "fs")
	t.Setenv("COLONYCORE_STORAGE_DRIVER", "")
	_ = os.Unsetenv("COLONYCORE_STORAGE_DRIVER")

	cfg, err := Load(filepath.Join(dir, "missing.env"), file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected dotenv storage driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Blob.Driver != "fs" {
		t.Fatalf("expected process env to win, got %q", cfg.Blob.Driver)
	}
	if n, err := LoadEnvFiles(filepath.Join(dir, "nope")); err != nil || n != 0 {
		t.Fatalf("expected no files loaded, got %d %v", n, err)
	}
}
