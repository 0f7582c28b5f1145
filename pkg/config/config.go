package config

import (
	"log"
	"os"
	"time"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/utils"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string  `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTP    `yaml:"http"`
	Postgres PG      `yaml:"postgres"`
	Redis    Redis   `yaml:"redis"`
	Kafka    Kafka   `yaml:"kafka"`
	JWT      JWT     `yaml:"jwt"`
	Catalog  Catalog `yaml:"catalog"`
	Limiter  Limiter `yaml:"limiter"`
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

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
}

type JWT struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL" env-default:"1h"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL" env-default:"720h"`
}

type Catalog struct {
	URL      string        `yaml:"url" env:"CATALOG_URL" env-default:"http://localhost:5002"`
	Timeout  time.Duration `yaml:"timeout" env:"CATALOG_TIMEOUT" env-default:"5s"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CATALOG_CACHE_TTL" env-default:"10m"`
}

type Limiter struct {
	Max        int           `yaml:"max" env-default:"20"`
	Expiration time.Duration `yaml:"expiration" env-default:"5s"`
}

func MustLoad() *Config {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exists: %v\n", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
