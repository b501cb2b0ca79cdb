package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every configuration parameter of the application.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NATSURL string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	Settlement SettlementConfig
}

// SettlementConfig carries the money constants. It is an explicit struct
// injected into the escrow and payout services at construction so the
// payout math stays testable with fixed inputs.
type SettlementConfig struct {
	PlatformFeePercent decimal.Decimal
	TDSRate            decimal.Decimal
	TDSThreshold       decimal.Decimal
	MinTeamsToStart    int
	LeaderboardTTL     time.Duration
}

// DefaultSettlement returns the production defaults: 10% platform fee,
// 30% TDS above a 10,000 threshold, minimum 2 teams to go live, 5 minute
// leaderboard cache TTL.
func DefaultSettlement() SettlementConfig {
	return SettlementConfig{
		PlatformFeePercent: decimal.NewFromInt(10),
		TDSRate:            decimal.NewFromFloat(0.30),
		TDSThreshold:       decimal.NewFromInt(10000),
		MinTeamsToStart:    2,
		LeaderboardTTL:     5 * time.Minute,
	}
}

// Load reads configuration from environment variables, optionally loading
// a .env file first (useful for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	smtpPort, err := intEnv("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}

	settlement := DefaultSettlement()
	if v := os.Getenv("PLATFORM_FEE_PERCENT"); v != "" {
		settlement.PlatformFeePercent, err = decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PLATFORM_FEE_PERCENT: %w", err)
		}
	}
	if v := os.Getenv("TDS_RATE"); v != "" {
		settlement.TDSRate, err = decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TDS_RATE: %w", err)
		}
	}
	if v := os.Getenv("TDS_THRESHOLD"); v != "" {
		settlement.TDSThreshold, err = decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TDS_THRESHOLD: %w", err)
		}
	}
	if settlement.MinTeamsToStart, err = intEnv("MIN_TEAMS_TO_START", settlement.MinTeamsToStart); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:       dbURL,
		JWTSecretKey:      jwtKey,
		ServerPort:        port,
		RedisAddr:         envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		NATSURL:           envOrDefault("NATS_URL", "nats://localhost:4222"),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          smtpPort,
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPass:          os.Getenv("SMTP_PASS"),
		SMTPFrom:          os.Getenv("SMTP_FROM"),
		Settlement:        settlement,
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}
