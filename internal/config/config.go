package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting for the MediLink services. It is loaded
// once in main and passed down; packages never read the environment directly.
type Config struct {
	// HTTP server
	Port string

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// Authentication
	JWTSecret string

	// Remote realtime voice endpoint
	RealtimeURL   string
	RealtimeToken string // optional, anonymous connection when empty

	// Audio
	SampleRate int
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "medilink"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RealtimeURL:   getEnv("REALTIME_WS_URL", "wss://frida-realtime.rosassebastian.com/realtime"),
		RealtimeToken: os.Getenv("REALTIME_TOKEN"),
		SampleRate:    24000,
	}

	if v := os.Getenv("AUDIO_SAMPLE_RATE"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid AUDIO_SAMPLE_RATE %q", v)
		}
		cfg.SampleRate = rate
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// LoadAssistant is the variant for the terminal assistant, which needs no
// database or signing secret.
func LoadAssistant() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		RealtimeURL:   getEnv("REALTIME_WS_URL", "wss://frida-realtime.rosassebastian.com/realtime"),
		RealtimeToken: os.Getenv("REALTIME_TOKEN"),
		SampleRate:    24000,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
