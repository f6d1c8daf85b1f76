// Package config loads storefront settings from the environment, an optional
// .env file and an optional config file.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every runtime setting.
type Config struct {
	AppPort       string
	PublicBaseURL string
	WebRoot       string

	DBDriver    string
	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionCookie  string
	SessionTimeout time.Duration
	JWTSecret      string

	RabbitMQURL string

	PayHere PayHereConfig

	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal

	Storage StorageConfig
}

// PayHereConfig describes the hosted payment gateway.
type PayHereConfig struct {
	MerchantID     string
	MerchantSecret string
	CheckoutURL    string
	Currency       string
}

// StorageConfig selects where product images are written.
type StorageConfig struct {
	Driver    string
	LocalRoot string
	URL       string

	S3Bucket   string
	S3Region   string
	S3Key      string
	S3Secret   string
	S3Endpoint string
	S3URL      string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("WEB_ROOT", "")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "storefront.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_COOKIE", "sid")
	v.SetDefault("SESSION_TIMEOUT", "30m")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("PAYHERE_MERCHANT_ID", "1232299")
	v.SetDefault("PAYHERE_MERCHANT_SECRET", "")
	v.SetDefault("PAYHERE_CHECKOUT_URL", "https://sandbox.payhere.lk/pay/checkout")
	v.SetDefault("PAYHERE_CURRENCY", "LKR")
	v.SetDefault("CHECKOUT_SHIPPING_FEE", "5.99")
	v.SetDefault("CHECKOUT_TAX_RATE", "0.10")
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("STORAGE_LOCAL_ROOT", "uploads")
	v.SetDefault("STORAGE_URL", "/uploads")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_KEY", "")
	v.SetDefault("S3_SECRET", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_URL", "")
}

// Load reads .env (when present), then configFile (when non-empty), then the environment.
// Environment variables win over file values.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not load .env file: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	timeout, err := time.ParseDuration(v.GetString("SESSION_TIMEOUT"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("invalid SESSION_TIMEOUT %q", v.GetString("SESSION_TIMEOUT"))
	}
	shipping, err := decimal.NewFromString(v.GetString("CHECKOUT_SHIPPING_FEE"))
	if err != nil || shipping.IsNegative() {
		return nil, fmt.Errorf("invalid CHECKOUT_SHIPPING_FEE %q", v.GetString("CHECKOUT_SHIPPING_FEE"))
	}
	taxRate, err := decimal.NewFromString(v.GetString("CHECKOUT_TAX_RATE"))
	if err != nil || taxRate.IsNegative() {
		return nil, fmt.Errorf("invalid CHECKOUT_TAX_RATE %q", v.GetString("CHECKOUT_TAX_RATE"))
	}

	cfg := &Config{
		AppPort:        v.GetString("APP_PORT"),
		PublicBaseURL:  v.GetString("PUBLIC_BASE_URL"),
		WebRoot:        v.GetString("WEB_ROOT"),
		DBDriver:       v.GetString("DB_DRIVER"),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		SessionCookie:  v.GetString("SESSION_COOKIE"),
		SessionTimeout: timeout,
		JWTSecret:      v.GetString("JWT_SECRET"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		PayHere: PayHereConfig{
			MerchantID:     v.GetString("PAYHERE_MERCHANT_ID"),
			MerchantSecret: v.GetString("PAYHERE_MERCHANT_SECRET"),
			CheckoutURL:    v.GetString("PAYHERE_CHECKOUT_URL"),
			Currency:       v.GetString("PAYHERE_CURRENCY"),
		},
		ShippingFee: shipping,
		TaxRate:     taxRate,
		Storage: StorageConfig{
			Driver:     v.GetString("STORAGE_DRIVER"),
			LocalRoot:  v.GetString("STORAGE_LOCAL_ROOT"),
			URL:        v.GetString("STORAGE_URL"),
			S3Bucket:   v.GetString("S3_BUCKET"),
			S3Region:   v.GetString("S3_REGION"),
			S3Key:      v.GetString("S3_KEY"),
			S3Secret:   v.GetString("S3_SECRET"),
			S3Endpoint: v.GetString("S3_ENDPOINT"),
			S3URL:      v.GetString("S3_URL"),
		},
	}
	if cfg.JWTSecret == "change-me" {
		log.Println("WARNING: JWT_SECRET is not set; using the insecure default")
	}
	return cfg, nil
}
