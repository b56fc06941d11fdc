package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process level configuration. main reads it once; nothing
// else touches the environment.
type Server struct {
	Addr            string
	DatabaseURL     string
	RedisURL        string
	KafkaBrokers    []string
	KafkaTopic      string
	JWTSigningKey   string
	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() Server {
	addr := os.Getenv("RTSCORE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("RTSCORE_KAFKA_TOPIC")
	if topic == "" {
		topic = "rtscore.events"
	}

	var brokers []string
	if raw := os.Getenv("RTSCORE_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	jwtSigningKey := os.Getenv("RTSCORE_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development fallback; deployments must override.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("RTSCORE_DATABASE_URL"),
		RedisURL:        os.Getenv("RTSCORE_REDIS_URL"),
		KafkaBrokers:    brokers,
		KafkaTopic:      topic,
		JWTSigningKey:   jwtSigningKey,
		ShutdownTimeout: 10 * time.Second,
	}
}
