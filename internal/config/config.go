// Package config centralizes the engine's environment-variable surface.
// It mirrors the teacher's convention of small env lookup helpers with
// defaults, generalized into one place instead of one per tool file.
package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load best-effort loads a .env file from the working directory, same as
// the teacher's server entrypoint does via godotenv. Missing files are not
// an error.
func Load() {
	_ = godotenv.Load()
}

// Config is the resolved set of tunables for one engine process.
type Config struct {
	WorkspacePath            string
	DatabasePath             string
	MarketDataDBPath         string
	MaxParallel              int
	DependencyWaitTimeoutMS  int64
	TaskTimeoutMS            int64
	MaxSubtasks              int
	LLMProvider              string
	LogLevel                 string
}

// FromEnv resolves a Config from the process environment, applying the
// same defaults named in the engine's external-interfaces contract.
func FromEnv() Config {
	workspace := EnvString("WORKSPACE_PATH", ".")
	return Config{
		WorkspacePath:           workspace,
		DatabasePath:            EnvString("DATABASE_PATH", workspace+"/orchestrator_results.db"),
		MarketDataDBPath:        EnvString("MARKET_DATA_DB_PATH", workspace+"/market_data.db"),
		MaxParallel:             EnvInt("MAX_PARALLEL", defaultMaxParallel()),
		DependencyWaitTimeoutMS: EnvInt64("DEPENDENCY_WAIT_TIMEOUT_MS", 5*60*1000),
		TaskTimeoutMS:           EnvInt64("TASK_TIMEOUT_MS", 2*60*1000),
		MaxSubtasks:             EnvInt("MAX_SUBTASKS", 5),
		LLMProvider:             strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER"))),
		LogLevel:                EnvString("LOG_LEVEL", "info"),
	}
}

func defaultMaxParallel() int {
	// the number of CPU cores, with a floor of 2.
	if n := runtime.NumCPU(); n > 2 {
		return n
	}
	return 2
}

// EnvString reads a string env var, falling back to def when unset/blank.
func EnvString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// EnvInt reads an integer env var, falling back to def on absence or parse error.
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// EnvInt64 is EnvInt for int64-valued tunables (millisecond durations etc).
func EnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// EnvDuration reads a millisecond-valued env var as a time.Duration.
func EnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

// EnvBool reads a boolean env var ("1"/"true" are truthy).
func EnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}
