package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/messaging"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/utils"
)

type Config struct {
	Env      string             `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTP               `yaml:"http"`
	Postgres PG                 `yaml:"postgres"`
	Redis    Redis              `yaml:"redis"`
	RabbitMQ messaging.Settings `yaml:"rabbitmq"`
	Services Services           `yaml:"services"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type PG struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Services struct {
	StockURL string `yaml:"stock_url" env:"STOCK_SERVICE_URL" env-default:"http://localhost:5001"`
}

func MustLoad() *Config {
	configPath := utils.EnvOrDefault("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exists: %v\n", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
