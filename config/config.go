package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DatabaseURL  string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL     string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	KafkaBrokers []string      `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaGroupID string        `envconfig:"KAFKA_GROUP_ID" default:"fulfillment-service"`
	ProductTopic string        `envconfig:"PRODUCT_TOPIC" default:"product"`
	OrderTopic   string        `envconfig:"ORDER_TOPIC" default:"order"`
	Port         string        `envconfig:"PORT" default:":8080"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	LockTimeout  time.Duration `envconfig:"LOCK_TIMEOUT" default:"3s"`
	EnableBroker bool          `envconfig:"ENABLE_BROKER" default:"true"`
	EnableCron   bool          `envconfig:"ENABLE_CRON" default:"true"`
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		if os.IsNotExist(err) {
			log.Println("Warning: .env file not found, using environment variables or defaults.")
		} else {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
