// Package config loads typed configuration from the environment, optionally
// seeded from a .env file via godotenv, mirroring the teacher's main.go
// startup sequence. Malformed values are rejected at load time rather than
// silently defaulted away.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the engine's ambient configuration surface. Most of these name
// the out-of-scope collaborators (DB, broker, CSV upload dir); the engine
// itself only consumes CheckInterval, WorkerPoolSize, and ExternalGNFSPath.
type Config struct {
	DatabaseURL      string
	BrokerURL        string
	CORSOrigins      []string
	UploadDir        string
	ExternalGNFSPath string // "" = external solver stage disabled
	ExternalGNFSArgs []string
	CheckInterval    time.Duration
	WorkerPoolSize   int
	JobStoreDriver   string // "memory" | "leveldb"
	LevelDBPath      string
}

// Load reads configuration from the process environment, first loading
// envPath (if it exists) into the environment via godotenv, matching the
// teacher's `_ = godotenv.Load(".env")` pattern — but unlike the teacher,
// a malformed value is a hard error here rather than continuing silently.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("config: failed to load %s: %w", envPath, err)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		BrokerURL:        os.Getenv("BROKER_URL"),
		UploadDir:        getenvDefault("UPLOAD_DIR", "./uploads"),
		ExternalGNFSPath: os.Getenv("EXTERNAL_GNFS_PATH"),
		JobStoreDriver:   getenvDefault("JOBSTORE_DRIVER", "memory"),
		LevelDBPath:      getenvDefault("LEVELDB_PATH", "./subprimedivide.db"),
		WorkerPoolSize:   runtime.NumCPU(),
		CheckInterval:    1 * time.Second,
	}

	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if o := strings.TrimSpace(origin); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if raw := os.Getenv("EXTERNAL_GNFS_ARGS"); raw != "" {
		cfg.ExternalGNFSArgs = strings.Fields(raw)
	}

	if raw := os.Getenv("WORKER_POOL_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: WORKER_POOL_SIZE must be a positive integer, got %q", raw)
		}
		cfg.WorkerPoolSize = n
	}

	if raw := os.Getenv("CHECK_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("config: CHECK_INTERVAL must be a Go duration (e.g. \"500ms\"), got %q: %w", raw, err)
		}
		cfg.CheckInterval = d
	}

	switch cfg.JobStoreDriver {
	case "memory", "leveldb":
	default:
		return nil, fmt.Errorf("config: JOBSTORE_DRIVER must be \"memory\" or \"leveldb\", got %q", cfg.JobStoreDriver)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
