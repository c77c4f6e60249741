package config

import (
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	Mongo    MongoConfig
	Audit    AuditDBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	JWT      JWTConfig

	// BcryptCost is the work factor used when hashing passwords.
	BcryptCost int
}

type MongoConfig struct {
	URI      string
	Database string
}

// AuditDBConfig points at the Postgres instance holding the audit log.
type AuditDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host          string
	Port          string
	RedisPassword string
	RedisDB       string
}

type RabbitMQConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
}

func Load() *Config {
	return &Config{
		AppName: os.Getenv("APP_NAME"),
		AppEnv:  os.Getenv("APP_ENV"),
		AppPort: os.Getenv("APP_PORT"),

		Mongo: MongoConfig{
			URI:      os.Getenv("MONGO_URI"),
			Database: os.Getenv("MONGO_DATABASE"),
		},

		Audit: AuditDBConfig{
			Host:     os.Getenv("AUDIT_DB_HOST"),
			Port:     os.Getenv("AUDIT_DB_PORT"),
			User:     os.Getenv("AUDIT_DB_USER"),
			Password: os.Getenv("AUDIT_DB_PASSWORD"),
			Name:     os.Getenv("AUDIT_DB_NAME"),
			SSLMode:  os.Getenv("AUDIT_DB_SSLMODE"),
		},

		Redis: RedisConfig{
			Host:          os.Getenv("REDIS_HOST"),
			Port:          os.Getenv("REDIS_PORT"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       os.Getenv("REDIS_DB"),
		},

		RabbitMQ: RabbitMQConfig{
			URL: os.Getenv("RABBITMQ_URL"),
		},

		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},

		BcryptCost: intEnv("BCRYPT_COST", bcrypt.DefaultCost),
	}
}

func intEnv(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}
