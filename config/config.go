package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Routing  RoutingConfig  `yaml:"routing"`
	EcoChain EcoChainConfig `yaml:"ecochain"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	StatusUpdatedTopicName string `yaml:"status_updated_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Внешний road-routing сервис (OSRM-совместимый) и геокодер.
// Alternate base URL — запасной эндпоинт на случай отказа основного.
type RoutingConfig struct {
	BaseURL            string `yaml:"base_url"`
	AlternateBaseURL   string `yaml:"alternate_base_url"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	GeocodeBaseURL     string `yaml:"geocode_base_url"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`

	Mode string `yaml:"mode"` // "osrm" | "fake"
}

type EcoChainConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`
	PlanTTLSeconds     int    `yaml:"plan_ttl_seconds"`

	CurrentStatusTTLSeconds int `yaml:"current_status_ttl_seconds"`

	WorkerHTTPAddr            string `yaml:"worker_http_addr"`
	WorkerPollIntervalSeconds int    `yaml:"worker_poll_interval_seconds"`
	WorkerBatchSize           int    `yaml:"worker_batch_size"`
	WorkerConcurrency         int    `yaml:"worker_concurrency"`
	WorkerLeaseSeconds        int    `yaml:"worker_lease_seconds"`

	// Advancement thresholds (optional). If not set, defaults are the
	// marketplace demo values: express 90/180 minutes, carrier 8/48 hours.
	ExpressInTransitAfterSeconds int `yaml:"express_in_transit_after_seconds"`
	ExpressDeliveredAfterSeconds int `yaml:"express_delivered_after_seconds"`
	CarrierInTransitAfterSeconds int `yaml:"carrier_in_transit_after_seconds"`
	CarrierDeliveredAfterSeconds int `yaml:"carrier_delivered_after_seconds"`

	FallbackPathPoints int `yaml:"fallback_path_points"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
