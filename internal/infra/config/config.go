package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Weather WeatherConfig `yaml:"weather"`
	Store   StoreConfig   `yaml:"store"`
	Images  ImagesConfig  `yaml:"images"`
	Auth    AuthConfig    `yaml:"auth"`
	Chat    ChatConfig    `yaml:"chat"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// GeminiConfig contains generative-AI API settings shared by every feature.
type GeminiConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	TTSModel    string        `yaml:"ttsModel"`
	Voice       string        `yaml:"voice"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
}

// WeatherConfig controls the dashboard weather fetch.
type WeatherConfig struct {
	APIKey    string        `yaml:"apiKey"`
	BaseURL   string        `yaml:"baseUrl"`
	Latitude  float64       `yaml:"latitude"`
	Longitude float64       `yaml:"longitude"`
	UVIndex   int           `yaml:"uvIndex"`
	CacheTTL  time.Duration `yaml:"cacheTtl"`
	Redis     RedisConfig   `yaml:"redis"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StoreConfig points at the per-user document store.
type StoreConfig struct {
	MongoURI string `yaml:"mongoUri"`
	Database string `yaml:"database"`
	AppID    string `yaml:"appId"`
}

// ImagesConfig controls crop photo object storage.
type ImagesConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// AuthConfig drives identity behavior.
type AuthConfig struct {
	Secret          string         `yaml:"secret"`
	TokenTTL        time.Duration  `yaml:"tokenTtl"`
	RefreshTokenTTL time.Duration  `yaml:"refreshTokenTtl"`
	Postgres        PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings for the user repository.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ChatConfig controls the assistant persona.
type ChatConfig struct {
	Persona string `yaml:"persona"`
}

// Load reads configuration from .env, a YAML file and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = isTrue(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_BASE_URL"); v != "" {
		cfg.Gemini.BaseURL = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("GEMINI_TTS_MODEL"); v != "" {
		cfg.Gemini.TTSModel = v
	}
	if v := os.Getenv("GEMINI_VOICE"); v != "" {
		cfg.Gemini.Voice = v
	}
	if v := os.Getenv("GEMINI_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Gemini.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("GEMINI_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Gemini.BaseBackoff = parsed
		}
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("OPENWEATHER_BASE_URL"); v != "" {
		cfg.Weather.BaseURL = v
	}
	if v := os.Getenv("WEATHER_LATITUDE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Weather.Latitude = parsed
		}
	}
	if v := os.Getenv("WEATHER_LONGITUDE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Weather.Longitude = parsed
		}
	}
	if v := os.Getenv("WEATHER_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Weather.CacheTTL = parsed
		}
	}
	if v := os.Getenv("WEATHER_REDIS_ENABLED"); v != "" {
		cfg.Weather.Redis.Enabled = isTrue(v)
	}
	if v := os.Getenv("WEATHER_REDIS_ADDR"); v != "" {
		cfg.Weather.Redis.Addr = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Store.MongoURI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.Store.Database = v
	}
	if v := os.Getenv("APP_ID"); v != "" {
		cfg.Store.AppID = v
	}
	if v := os.Getenv("IMAGES_ENDPOINT"); v != "" {
		cfg.Images.Endpoint = v
	}
	if v := os.Getenv("IMAGES_ACCESS_KEY"); v != "" {
		cfg.Images.AccessKey = v
	}
	if v := os.Getenv("IMAGES_SECRET_KEY"); v != "" {
		cfg.Images.SecretKey = v
	}
	if v := os.Getenv("IMAGES_BUCKET"); v != "" {
		cfg.Images.Bucket = v
	}
	if v := os.Getenv("IMAGES_REGION"); v != "" {
		cfg.Images.Region = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("AUTH_TOKEN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = parsed
		}
	}
	if v := os.Getenv("AUTH_REFRESH_TOKEN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Auth.RefreshTokenTTL = parsed
		}
	}
	if v := os.Getenv("AUTH_POSTGRES_DSN"); v != "" {
		cfg.Auth.Postgres.DSN = v
	}
	if v := os.Getenv("AUTH_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Auth.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("AUTH_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Auth.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("CHAT_PERSONA"); v != "" {
		cfg.Chat.Persona = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		Gemini: GeminiConfig{
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta/models",
			Model:       "gemini-2.5-flash-preview-09-2025",
			TTSModel:    "gemini-2.5-flash-preview-tts",
			Voice:       "Aoede",
			MaxAttempts: 3,
			BaseBackoff: time.Second,
		},
		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5/weather",
			// Kathmandu
			Latitude:  27.7172,
			Longitude: 85.3240,
			UVIndex:   6,
			CacheTTL:  10 * time.Minute,
		},
		Store: StoreConfig{
			Database: "agrihealth",
			AppID:    "agrihealth",
		},
		Images: ImagesConfig{
			Bucket: "agrihealth-scans",
		},
		Auth: AuthConfig{
			TokenTTL:        24 * time.Hour,
			RefreshTokenTTL: 30 * 24 * time.Hour,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Chat: ChatConfig{
			Persona: "You are Agri-Bot, an expert agricultural AI assistant helping farmers in Nepal. Provide helpful, concise, and expert answers suitable for a farmer.",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Gemini.BaseURL) == "" {
		return errors.New("gemini.baseUrl cannot be empty")
	}
	if strings.TrimSpace(c.Gemini.Model) == "" {
		return errors.New("gemini.model cannot be empty")
	}
	if strings.TrimSpace(c.Gemini.TTSModel) == "" {
		return errors.New("gemini.ttsModel cannot be empty")
	}
	if c.Gemini.MaxAttempts <= 0 {
		return errors.New("gemini.maxAttempts must be positive")
	}
	if c.Gemini.BaseBackoff <= 0 {
		return errors.New("gemini.baseBackoff must be positive")
	}
	if strings.TrimSpace(c.Weather.BaseURL) == "" {
		return errors.New("weather.baseUrl cannot be empty")
	}
	if c.Weather.CacheTTL < 0 {
		return errors.New("weather.cacheTtl cannot be negative")
	}
	if c.Weather.Redis.Enabled && strings.TrimSpace(c.Weather.Redis.Addr) == "" {
		return errors.New("weather.redis.addr cannot be empty when the cache is enabled")
	}
	if strings.TrimSpace(c.Store.AppID) == "" {
		return errors.New("store.appId cannot be empty")
	}
	if strings.TrimSpace(c.Store.MongoURI) != "" && strings.TrimSpace(c.Store.Database) == "" {
		return errors.New("store.database cannot be empty when mongoUri is set")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.tokenTtl must be positive")
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("auth.refreshTokenTtl must be positive")
	}
	if strings.TrimSpace(c.Chat.Persona) == "" {
		return errors.New("chat.persona cannot be empty")
	}
	return nil
}

func isTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if clean := strings.TrimSpace(p); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
