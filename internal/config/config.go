package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CASTELLAN_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CASTELLAN_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// RedisURL returns the connection URL for the short-term buffer.
func RedisURL() string {
	u := os.Getenv("REDIS_URL")
	if u == "" {
		return "redis://localhost:6379/0"
	}
	return u
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock. Defaults to "openai".
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// DecayFloor is the retention threshold below which an episode becomes
// a pruning candidate. Defaults to 0.05.
func DecayFloor() float64 {
	f, err := strconv.ParseFloat(os.Getenv("DECAY_FLOOR"), 64)
	if err != nil || f <= 0 || f >= 1 {
		return 0.05
	}
	return f
}

// ImportanceOverrideFloor is the importance at or above which an episode
// is never pruned regardless of retention. Defaults to 0.7.
func ImportanceOverrideFloor() float64 {
	f, err := strconv.ParseFloat(os.Getenv("IMPORTANCE_OVERRIDE_FLOOR"), 64)
	if err != nil || f <= 0 || f > 1 {
		return 0.7
	}
	return f
}

// MinDwellTime is how long a short-term entry must sit in the buffer
// before it is eligible for consolidation. Defaults to 5 minutes.
func MinDwellTime() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("MIN_DWELL_SECONDS"))
	if err != nil || secs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(secs) * time.Second
}

// PatternMinSupport is the default minimum support for workflow pattern
// mining. Defaults to 0.3.
func PatternMinSupport() float64 {
	f, err := strconv.ParseFloat(os.Getenv("PATTERN_MIN_SUPPORT"), 64)
	if err != nil || f <= 0 || f > 1 {
		return 0.3
	}
	return f
}

// ParallelActionWindow is the time window within which two workflow
// actions are treated as unordered during pattern matching.
// Defaults to 30 seconds.
func ParallelActionWindow() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("PARALLEL_WINDOW_SECONDS"))
	if err != nil || secs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// MaintenanceInterval is the period between background maintenance
// cycles (consolidate, extract, prune). Defaults to 30 minutes.
func MaintenanceInterval() time.Duration {
	mins, err := strconv.Atoi(os.Getenv("MAINTENANCE_INTERVAL_MINUTES"))
	if err != nil || mins <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(mins) * time.Minute
}

// SimilarityBlendWeight is the weight given to semantic similarity vs.
// current retention when ranking recall results. Defaults to 0.7.
func SimilarityBlendWeight() float64 {
	f, err := strconv.ParseFloat(os.Getenv("SIMILARITY_BLEND_WEIGHT"), 64)
	if err != nil || f < 0 || f > 1 {
		return 0.7
	}
	return f
}

// RateLimitRPS returns requests per second limit. Defaults to 100.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting. Defaults to 20.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error). Defaults to "info".
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
