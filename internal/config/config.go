package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the tracker service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	LiveChannel       string
	LiveKeepAlive     time.Duration
	JWTSecret         string
	DashboardCacheTTL time.Duration
	Timezone          string
	LMSTimeout        time.Duration
	SyncInterval      time.Duration
	SyncOnStartup     bool
	SyncRateLimit     int
	CanvasBaseURL     string
	CanvasToken       string
	ClassroomToken    string
	ClassroomAPIBase  string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Location resolves the configured timezone used for day boundaries.
func (c Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("STUDYFLOW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "StudyFlow API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.url", "file:studyflow.db?_foreign_keys=on")
	v.SetDefault("live.channel", "studyflow")
	v.SetDefault("live.keepalive", "30s")
	v.SetDefault("dashboard.cache_ttl", "1m")
	v.SetDefault("lms.timeout", "15s")
	v.SetDefault("sync.interval", "0s")
	v.SetDefault("sync.on_startup", true)
	v.SetDefault("sync.rate_limit", 6)

	durations := map[string]time.Duration{}
	for _, key := range []string{"live.keepalive", "dashboard.cache_ttl", "lms.timeout", "sync.interval"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed < 0 {
			return Config{}, fmt.Errorf("invalid %s: must not be negative", key)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		LiveChannel:       v.GetString("live.channel"),
		LiveKeepAlive:     durations["live.keepalive"],
		JWTSecret:         v.GetString("jwt.secret"),
		DashboardCacheTTL: durations["dashboard.cache_ttl"],
		Timezone:          v.GetString("app.timezone"),
		LMSTimeout:        durations["lms.timeout"],
		SyncInterval:      durations["sync.interval"],
		SyncOnStartup:     v.GetBool("sync.on_startup"),
		SyncRateLimit:     v.GetInt("sync.rate_limit"),
		CanvasBaseURL:     strings.TrimRight(v.GetString("canvas.base_url"), "/"),
		CanvasToken:       v.GetString("canvas.token"),
		ClassroomToken:    v.GetString("classroom.token"),
		ClassroomAPIBase:  v.GetString("classroom.api_base"),
	}

	if cfg.LMSTimeout == 0 {
		cfg.LMSTimeout = 15 * time.Second
	}

	if _, err := cfg.Location(); err != nil {
		return Config{}, fmt.Errorf("invalid app timezone: %w", err)
	}

	return cfg, nil
}
