package config

import (
	"errors"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config carries every tunable of the service. Values come from an optional
// app.env file overridden by process environment variables.
type Config struct {
	ServiceName string `mapstructure:"SERVICE_NAME"`
	Env         string `mapstructure:"ENV"`
	ServerPort  string `mapstructure:"SERVER_PORT"`

	// Empty DATABASE_URL selects the in-memory repositories, which is only
	// suitable for local development.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	EmailFrom    string `mapstructure:"EMAIL_FROM"`

	// StrictStock makes settlement refuse decrements that would take stock
	// negative; the default honors already-paid orders instead.
	StrictStock bool `mapstructure:"STRICT_STOCK"`
}

// Load reads app.env from path (when present) and the process environment.
// onChange, when non-nil, is invoked with the re-read config after the file
// changes on disk.
func Load(path string, onChange func(Config)) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	} else if onChange != nil {
		v.WatchConfig()
		v.OnConfigChange(func(fsnotify.Event) {
			var cf Config
			if err := v.Unmarshal(&cf); err == nil {
				onChange(cf)
			}
		})
	}

	var cf Config
	if err := v.Unmarshal(&cf); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cf, nil
}

// Defaults double as env-var bindings: AutomaticEnv only resolves keys viper
// already knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "shopkart-api")
	v.SetDefault("ENV", "dev")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("EMAIL_FROM", "")
	v.SetDefault("STRICT_STOCK", false)
}
