package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                 string
	Store                string // "memory" or "crdb"
	CRDBDSN              string
	MongoURI             string
	RedisAddr            string
	RabbitURL            string
	HoldTTL              time.Duration
	SweepInterval        time.Duration
	SweepBatchSize       int
	IdempotencyRetention time.Duration
	OTLPEndpoint         string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:                 getEnv("ADDR", ":8080"),
		Store:                getEnv("STORE", "memory"),
		CRDBDSN:              os.Getenv("CRDB_DSN"),
		MongoURI:             os.Getenv("MONGO_URI"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RabbitURL:            os.Getenv("RABBIT_URL"),
		HoldTTL:              getDuration("HOLD_TTL", 5*time.Minute),
		SweepInterval:        getDuration("SWEEP_INTERVAL", 5*time.Second),
		SweepBatchSize:       100,
		IdempotencyRetention: getDuration("IDEMPOTENCY_RETENTION", 24*time.Hour),
		OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, _ := time.ParseDuration(os.Getenv(key))
	if d == 0 {
		return fallback
	}
	return d
}
