package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer      string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience    string        `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL     string        `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey  string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	ClinicTimezone  string        `mapstructure:"CLINIC_TIMEZONE"`
	ClinicClosed    []string      `mapstructure:"CLINIC_CLOSED_DAYS"`
	ReminderEvery   time.Duration `mapstructure:"REMINDER_INTERVAL"`
	ReminderFlagTTL time.Duration `mapstructure:"REMINDER_FLAG_TTL"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	KafkaBrokers    []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaAlertTopic string        `mapstructure:"KAFKA_ALERT_TOPIC"`
	MigrationsDir   string        `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("CLINIC_TIMEZONE", "Local")
	v.SetDefault("CLINIC_CLOSED_DAYS", "Saturday")
	v.SetDefault("REMINDER_INTERVAL", "1m")
	v.SetDefault("REMINDER_FLAG_TTL", "24h")
	v.SetDefault("KAFKA_ALERT_TOPIC", "appointment-alerts")
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY",
		"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"CLINIC_TIMEZONE", "CLINIC_CLOSED_DAYS", "REMINDER_INTERVAL", "REMINDER_FLAG_TTL",
		"REDIS_URL", "KAFKA_BROKERS", "KAFKA_ALERT_TOPIC", "MIGRATIONS_DIR",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	cfg.ClinicClosed = splitList(cfg.ClinicClosed)
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// splitList normalises list values that arrive either already split or as
// one comma-separated string.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves CLINIC_TIMEZONE. "Local" and "" mean the server zone.
func (c *Config) Location() (*time.Location, error) {
	if c.ClinicTimezone == "" || strings.EqualFold(c.ClinicTimezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("CLINIC_TIMEZONE: %w", err)
	}
	return loc, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ClosedWeekdays parses CLINIC_CLOSED_DAYS. Names are case-insensitive and
// may be abbreviated to three letters; "none" keeps the clinic open all week.
func (c *Config) ClosedWeekdays() ([]time.Weekday, error) {
	var out []time.Weekday
	for _, name := range c.ClinicClosed {
		key := strings.ToLower(name)
		if key == "none" {
			continue
		}
		day, ok := weekdays[key]
		if !ok && len(key) == 3 {
			for full, d := range weekdays {
				if strings.HasPrefix(full, key) {
					day, ok = d, true
					break
				}
			}
		}
		if !ok {
			return nil, fmt.Errorf("CLINIC_CLOSED_DAYS: unknown weekday %q", name)
		}
		out = append(out, day)
	}
	return out, nil
}

// Validate checks that the configuration is safe to run. Outside development
// a token issuer and a key source are required.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.AuthIssuer == "" {
			return fmt.Errorf("AUTH_ISSUER must be set when ENV=%q", c.Env)
		}
		if c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
			return fmt.Errorf("one of AUTH_JWKS_URL or AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
		}
	}
	if c.IsProduction() && c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes in production")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.ReminderEvery <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive, got %s", c.ReminderEvery)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.ClosedWeekdays(); err != nil {
		return err
	}
	return nil
}
