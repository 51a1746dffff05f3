package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server      ServerConfig
	Redis       RedisConfig
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	Recommender RecommenderConfig
	Session     SessionConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	GeneratePerHour int
	SwapPerMin      int
	AddOnPerHour    int
}

type RecommenderConfig struct {
	APIKey       string
	BaseURL      string
	PollInterval int // milliseconds
	PollMaxWait  int // seconds
}

type SessionConfig struct {
	TTLHours      int
	OrderTTLHours int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("RECOMMENDER_API_KEY")
	readSecret("JWT_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("recommender.api_key", "RECOMMENDER_API_KEY")
	_ = viper.BindEnv("recommender.base_url", "RECOMMENDER_BASE_URL")
	_ = viper.BindEnv("recommender.poll_interval", "RECOMMENDER_POLL_INTERVAL")
	_ = viper.BindEnv("recommender.poll_max_wait", "RECOMMENDER_POLL_MAX_WAIT")
	_ = viper.BindEnv("session.ttl_hours", "SESSION_TTL_HOURS")
	_ = viper.BindEnv("session.order_ttl_hours", "ORDER_TTL_HOURS")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.generate_per_hour", 10)
	viper.SetDefault("ratelimit.swap_per_min", 30)
	viper.SetDefault("ratelimit.addon_per_hour", 20)

	// Recommender defaults
	viper.SetDefault("recommender.base_url", "https://api.dishcovery.app")
	viper.SetDefault("recommender.poll_interval", 1200)
	viper.SetDefault("recommender.poll_max_wait", 180)

	// Session defaults
	viper.SetDefault("session.ttl_hours", 24)
	viper.SetDefault("session.order_ttl_hours", 72)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
			SwapPerMin:      viper.GetInt("ratelimit.swap_per_min"),
			AddOnPerHour:    viper.GetInt("ratelimit.addon_per_hour"),
		},
		Recommender: RecommenderConfig{
			APIKey:       viper.GetString("recommender.api_key"),
			BaseURL:      viper.GetString("recommender.base_url"),
			PollInterval: viper.GetInt("recommender.poll_interval"),
			PollMaxWait:  viper.GetInt("recommender.poll_max_wait"),
		},
		Session: SessionConfig{
			TTLHours:      viper.GetInt("session.ttl_hours"),
			OrderTTLHours: viper.GetInt("session.order_ttl_hours"),
		},
	}

	return cfg, nil
}
