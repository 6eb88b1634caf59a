package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host     string
	Port     int
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type GoogleAPIConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Overridable endpoints so tests can point at stub servers.
	AuthURL         string
	TokenURL        string
	CalendarListURL string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIBase       string
	SuccessURL    string
	CancelURL     string
	PortalReturn  string
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AppConfig struct {
	// Browser-facing base URL used for OAuth callback redirect outcomes.
	PublicBaseURL string
}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	GoogleAPI GoogleAPIConfig
	Stripe    StripeConfig
	App       AppConfig
}

var (
	instance *Config
	initErr  error
	once     sync.Once
)

// Load reads configuration from the environment (and .env in development).
// A failed first Load stays failed: later calls report the same error.
func Load() (*Config, error) {
	once.Do(func() {
		_ = godotenv.Load()

		v := viper.New()
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		v.SetDefault("SERVER_HOST", "0.0.0.0")
		v.SetDefault("SERVER_PORT", 7070)
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("DB_HOST", "localhost")
		v.SetDefault("DB_PORT", 5432)
		v.SetDefault("DB_USER", "postgres")
		v.SetDefault("DB_NAME", "practiceflow")
		v.SetDefault("REDIS_ADDR", "localhost:6379")
		v.SetDefault("REDIS_DB", 0)
		v.SetDefault("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/auth")
		v.SetDefault("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token")
		v.SetDefault("GOOGLE_CALENDAR_LIST_URL", "https://www.googleapis.com/calendar/v3/users/me/calendarList")
		v.SetDefault("STRIPE_API_BASE", "https://api.stripe.com")
		v.SetDefault("JWT_ACCESS_TTL", "1h")
		v.SetDefault("JWT_REFRESH_TTL", "720h")
		v.SetDefault("APP_PUBLIC_BASE_URL", "http://localhost:3000")

		cfg := &Config{
			Server: ServerConfig{
				Host:     v.GetString("SERVER_HOST"),
				Port:     v.GetInt("SERVER_PORT"),
				LogLevel: v.GetString("LOG_LEVEL"),
			},
			Database: DatabaseConfig{
				Host:     v.GetString("DB_HOST"),
				Port:     v.GetInt("DB_PORT"),
				User:     v.GetString("DB_USER"),
				Password: v.GetString("DB_PASSWORD"),
				DBName:   v.GetString("DB_NAME"),
			},
			Redis: RedisConfig{
				Addr:     v.GetString("REDIS_ADDR"),
				Password: v.GetString("REDIS_PASSWORD"),
				DB:       v.GetInt("REDIS_DB"),
			},
			JWT: JWTConfig{
				Secret:     v.GetString("JWT_SECRET"),
				AccessTTL:  v.GetDuration("JWT_ACCESS_TTL"),
				RefreshTTL: v.GetDuration("JWT_REFRESH_TTL"),
			},
			GoogleAPI: GoogleAPIConfig{
				ClientID:        v.GetString("GOOGLE_CLIENT_ID"),
				ClientSecret:    v.GetString("GOOGLE_CLIENT_SECRET"),
				RedirectURI:     v.GetString("GOOGLE_REDIRECT_URI"),
				AuthURL:         v.GetString("GOOGLE_AUTH_URL"),
				TokenURL:        v.GetString("GOOGLE_TOKEN_URL"),
				CalendarListURL: v.GetString("GOOGLE_CALENDAR_LIST_URL"),
			},
			Stripe: StripeConfig{
				SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
				WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
				APIBase:       v.GetString("STRIPE_API_BASE"),
				SuccessURL:    v.GetString("STRIPE_SUCCESS_URL"),
				CancelURL:     v.GetString("STRIPE_CANCEL_URL"),
				PortalReturn:  v.GetString("STRIPE_PORTAL_RETURN_URL"),
			},
			App: AppConfig{
				PublicBaseURL: v.GetString("APP_PUBLIC_BASE_URL"),
			},
		}

		if cfg.Server.Port <= 0 {
			initErr = fmt.Errorf("invalid server port: %d", cfg.Server.Port)
			return
		}

		instance = cfg
	})
	if initErr != nil {
		return nil, initErr
	}
	return instance, nil
}

// Get returns the loaded config, panicking if Load was never called.
func Get() *Config {
	if instance == nil {
		panic("config not initialized, call config.Load first")
	}
	return instance
}

// GetSafe returns the loaded config without panicking.
func GetSafe() (*Config, bool) {
	if instance == nil {
		return nil, false
	}
	return instance, true
}

// SetForTest replaces the config singleton. Test helper only.
func SetForTest(cfg *Config) {
	instance = cfg
}
