package config

import (
	"os"
	"testing"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "BROKER_URL", "UPLOAD_DIR", "EXTERNAL_GNFS_PATH",
		"EXTERNAL_GNFS_ARGS", "CORS_ORIGINS", "WORKER_POOL_SIZE",
		"CHECK_INTERVAL", "JOBSTORE_DRIVER", "LEVELDB_PATH",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JobStoreDriver != "memory" {
		t.Fatalf("expected default driver memory, got %q", cfg.JobStoreDriver)
	}
	if cfg.WorkerPoolSize <= 0 {
		t.Fatalf("expected positive default worker pool size, got %d", cfg.WorkerPoolSize)
	}
}

func TestLoadRejectsBadWorkerPoolSize(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("WORKER_POOL_SIZE", "not-a-number")
	defer os.Unsetenv("WORKER_POOL_SIZE")
	if _, err := Load(""); err == nil {
		t.Fatal("expected malformed WORKER_POOL_SIZE to be rejected")
	}
}

func TestLoadRejectsUnknownJobStoreDriver(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("JOBSTORE_DRIVER", "mongodb")
	defer os.Unsetenv("JOBSTORE_DRIVER")
	if _, err := Load(""); err == nil {
		t.Fatal("expected unknown JOBSTORE_DRIVER to be rejected")
	}
}

func TestLoadParsesCORSOrigins(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	defer os.Unsetenv("CORS_ORIGINS")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected 2 CORS origins, got %v", cfg.CORSOrigins)
	}
}
