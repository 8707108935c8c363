package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port             string `envconfig:"PORT" default:"8080"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	AWSRegion        string `envconfig:"AWS_REGION" default:"ap-south-1"`
	DynamoDBEndpoint string `envconfig:"DYNAMODB_ENDPOINT" default:""`

	OrderTableName   string `envconfig:"ORDER_TABLE_NAME" default:"orders"`
	PaymentTableName string `envconfig:"PAYMENT_TABLE_NAME" default:"payments"`
	CatalogTableName string `envconfig:"CATALOG_TABLE_NAME" default:"catalog"`

	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	GatewayBaseURL       string        `envconfig:"GATEWAY_BASE_URL" default:"https://api.gateway.test"`
	GatewayKeyID         string        `envconfig:"GATEWAY_KEY_ID" default:""`
	GatewayKeySecret     string        `envconfig:"GATEWAY_KEY_SECRET" default:""`
	GatewayWebhookSecret string        `envconfig:"GATEWAY_WEBHOOK_SECRET" default:""`
	GatewayTimeout       time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`

	Currency                    string        `envconfig:"CURRENCY" default:"INR"`
	DefaultCommissionPercentage float64       `envconfig:"DEFAULT_COMMISSION_PERCENTAGE" default:"10"`
	ReportCacheTTL              time.Duration `envconfig:"REPORT_CACHE_TTL" default:"60s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
