package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the runtime configuration shared by the API and the worker.
type Config struct {
	ServiceName      string        `validate:"required"`
	Env              string        `validate:"required"`
	HTTPAddr         string        `validate:"required"`
	RunLocal         bool
	CustomersTable   string        `validate:"required"`
	ProductsTable    string        `validate:"required"`
	OrdersTable      string        `validate:"required"`
	IdempotencyTable string        `validate:"required"`
	QueueURL         string        `validate:"omitempty,url"`
	IdempotencyTTL   time.Duration `validate:"gt=0"`
	MetricsNamespace string        `validate:"required"`
}

// Load reads configuration from the environment. When RUN_LOCAL is true a
// .env file in the working directory is loaded first, without overriding
// variables that are already set.
func Load() (Config, error) {
	runLocal, _ := strconv.ParseBool(os.Getenv("RUN_LOCAL"))
	if runLocal {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	ttl, err := time.ParseDuration(getenvDefault("IDEMPOTENCY_TTL", "48h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse IDEMPOTENCY_TTL: %w", err)
	}

	cfg := Config{
		ServiceName:      getenvDefault("SERVICE_NAME", "checkout-orders"),
		Env:              getenvDefault("ENV", "dev"),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		RunLocal:         runLocal,
		CustomersTable:   os.Getenv("CUSTOMERS_TABLE"),
		ProductsTable:    os.Getenv("PRODUCTS_TABLE"),
		OrdersTable:      os.Getenv("ORDERS_TABLE"),
		IdempotencyTable: os.Getenv("IDEMPOTENCY_TABLE"),
		QueueURL:         os.Getenv("ORDERS_QUEUE_URL"),
		IdempotencyTTL:   ttl,
		MetricsNamespace: getenvDefault("METRICS_NAMESPACE", "CheckoutOrders"),
	}

	if err := validatorv10.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
