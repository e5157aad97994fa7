package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Dispatch DispatchConfig `json:"dispatch"`
	Redis    RedisConfig    `json:"redis"`
	Postgres PostgresConfig `json:"postgres"`
	Usage    UsageConfig    `json:"usage"`
	Auth     AuthConfig     `json:"auth"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type DispatchConfig struct {
	// BaseDomain is the apex under which tenant slugs resolve,
	// e.g. "workers.example.com" routes "my-app.workers.example.com".
	BaseDomain               string `json:"base_domain"`
	DefaultRequestsPerMinute int    `json:"default_requests_per_minute"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type UsageConfig struct {
	QueueURL   string `json:"queue_url"`
	Region     string `json:"region"`
	BufferSize int    `json:"buffer_size"`
}

type AuthConfig struct {
	JWTSecret         string `json:"jwt_secret"`
	JWTExpiryHours    int    `json:"jwt_expiry_hours"`
	AdminEmail        string `json:"admin_email"`
	AdminPasswordHash string `json:"admin_password_hash"`
}

func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()

	return &config, nil
}

// Secrets and deployment-specific endpoints come from the environment so the
// config file can be committed.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("BASE_DOMAIN"); v != "" {
		c.Dispatch.BaseDomain = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("USAGE_QUEUE_URL"); v != "" {
		c.Usage.QueueURL = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Usage.Region = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_PASSWORD_HASH"); v != "" {
		c.Auth.AdminPasswordHash = v
	}
	if v := os.Getenv("DEFAULT_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Dispatch.DefaultRequestsPerMinute = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Redis.Port == "" {
		c.Redis.Port = "6379"
	}
	if c.Dispatch.DefaultRequestsPerMinute == 0 {
		c.Dispatch.DefaultRequestsPerMinute = 1000
	}
	if c.Usage.BufferSize == 0 {
		c.Usage.BufferSize = 1024
	}
	if c.Auth.JWTExpiryHours == 0 {
		c.Auth.JWTExpiryHours = 24
	}
}
