package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	RedisURL    string
	DatabaseURL string

	StoreTimeout      time.Duration
	RoundDuration     int // seconds
	CountdownDuration int // seconds
	TickInterval      time.Duration
	SessionIdleTTL    time.Duration

	LeaderboardCacheTTL time.Duration
	UserCacheTTL        time.Duration

	SubmitRatePerMin int
	SubmitBurst      int
}

// Load reads the environment, after merging in a .env file from the working
// directory when one exists. Variables already set win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[Config] ignoring .env: %v\n", err)
	}

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		RedisURL:    os.Getenv("REDIS_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		StoreTimeout:      getEnvDuration("STORE_TIMEOUT", 3*time.Second),
		RoundDuration:     getEnvInt("ROUND_DURATION", 30),
		CountdownDuration: getEnvInt("COUNTDOWN_DURATION", 3),
		TickInterval:      getEnvDuration("TICK_INTERVAL", time.Second),
		SessionIdleTTL:    getEnvDuration("SESSION_IDLE_TTL", time.Hour),

		LeaderboardCacheTTL: getEnvDuration("LEADERBOARD_CACHE_TTL", 5*time.Minute),
		UserCacheTTL:        getEnvDuration("USER_CACHE_TTL", time.Minute),

		SubmitRatePerMin: getEnvInt("SUBMIT_RATE_PER_MIN", 30),
		SubmitBurst:      getEnvInt("SUBMIT_BURST", 5),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("750ms", "2m"). "0" is valid and
// disables whatever the setting controls.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return fallback
}
