package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	JWTUserSecret string `env:"JWT_USER_SECRET"`

	StripeAddress       string `env:"STRIPE_ADDRESS"`
	StripeAPIKey        string `env:"STRIPE_API_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	PayPalAddress       string `env:"PAYPAL_ADDRESS"`
	PayPalClientID      string `env:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret  string `env:"PAYPAL_CLIENT_SECRET"`
	PayPalWebhookSecret string `env:"PAYPAL_WEBHOOK_SECRET"`

	GatewayTimeout    time.Duration `env:"GATEWAY_TIMEOUT"    envDefault:"10s"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"15s"`
}

func LoadConfig() (*Config, error) {
	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	loadFlags(&flagsConfig)

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.JWTUserSecret == "" {
		return nil, errors.New("JWT user secret is not set")
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(flagConfig *Config) {
	flag.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flag.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	flag.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	flag.StringVar(&flagConfig.JWTUserSecret, "j", "", "JWT signing secret")
	flag.StringVar(&flagConfig.StripeAddress, "stripe-address", "", "Card gateway base address")
	flag.StringVar(&flagConfig.PayPalAddress, "paypal-address", "", "Checkout gateway base address")

	flag.Parse()
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	merged := *envConfig
	merged.RunAddress = defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress)
	merged.DatabaseDSN = defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN)
	merged.MigrationsDir = defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir)
	merged.JWTUserSecret = defaultIfBlank(envConfig.JWTUserSecret, flagsConfig.JWTUserSecret)
	merged.StripeAddress = defaultIfBlank(envConfig.StripeAddress, flagsConfig.StripeAddress)
	merged.PayPalAddress = defaultIfBlank(envConfig.PayPalAddress, flagsConfig.PayPalAddress)
	return &merged
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
