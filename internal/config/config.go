// README: Config loader with env defaults for HTTP, storage, model provider and upstream services.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	GeocoderGSI    = "gsi"
	GeocoderGoogle = "google"
)

// ErrMissingKey is returned when a required credential is absent.
var ErrMissingKey = errors.New("missing required key")

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		// DSN enables the interaction log when set.
		DSN string
	}
	Redis struct {
		// Addr switches sessions to Redis when set.
		Addr string
	}
	Session struct {
		TTL time.Duration
	}
	LLM struct {
		Provider  string
		Model     string
		OpenAIKey string
		GeminiKey string
	}
	Maps struct {
		APIKey string
	}
	Geocoder struct {
		Backend  string
		Endpoint string
	}
	Weather struct {
		Days     int
		Endpoint string
	}
	LogLevel slog.Level
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("TABIPLAN_HTTP_ADDR", ":8080")
	cfg.DB.DSN = os.Getenv("TABIPLAN_DB_DSN")
	cfg.Redis.Addr = os.Getenv("TABIPLAN_REDIS_ADDR")
	cfg.Session.TTL = envOrDefaultDuration("TABIPLAN_SESSION_TTL", 24*time.Hour)

	cfg.LLM.Provider = strings.ToLower(envOrDefault("TABIPLAN_LLM_PROVIDER", ProviderOpenAI))
	cfg.LLM.Model = os.Getenv("TABIPLAN_LLM_MODEL")
	cfg.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.LLM.GeminiKey = os.Getenv("GEMINI_API_KEY")

	cfg.Maps.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Geocoder.Backend = strings.ToLower(envOrDefault("TABIPLAN_GEOCODER", GeocoderGSI))
	cfg.Geocoder.Endpoint = os.Getenv("TABIPLAN_GEOCODER_URL")
	cfg.Weather.Days = envOrDefaultInt("TABIPLAN_WEATHER_DAYS", 7)
	cfg.Weather.Endpoint = os.Getenv("TABIPLAN_WEATHER_URL")
	cfg.LogLevel = envOrDefaultLevel("TABIPLAN_LOG_LEVEL", slog.LevelInfo)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingKey)
		}
	case ProviderGemini:
		if c.LLM.GeminiKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingKey)
		}
	default:
		return fmt.Errorf("unknown TABIPLAN_LLM_PROVIDER %q", c.LLM.Provider)
	}

	switch c.Geocoder.Backend {
	case GeocoderGSI:
	case GeocoderGoogle:
		if c.Maps.APIKey == "" {
			return fmt.Errorf("%w: GOOGLE_MAPS_API_KEY (required by TABIPLAN_GEOCODER=google)", ErrMissingKey)
		}
	default:
		return fmt.Errorf("unknown TABIPLAN_GEOCODER %q", c.Geocoder.Backend)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func envOrDefaultLevel(key string, def slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return def
}
