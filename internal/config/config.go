package config

import (
	"fmt"
	"os"
	"time"

	"campus-eats/internal/connections/rabbitmq"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API      APIConfig      `yaml:"api"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
}

// APIConfig points the console at the platform's REST endpoints.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (a APIConfig) Timeout() time.Duration { return time.Duration(a.TimeoutSeconds) * time.Second }

type RabbitMQConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	User                  string `yaml:"user"`
	Password              string `yaml:"password"`
	VHost                 string `yaml:"vhost"`
	Exchange              string `yaml:"exchange"`
	ReconnectDelaySeconds int    `yaml:"reconnect_delay_seconds"`
}

func (r RabbitMQConfig) ReconnectDelay() time.Duration {
	return time.Duration(r.ReconnectDelaySeconds) * time.Second
}

func (r RabbitMQConfig) Connection() rabbitmq.Config {
	return rabbitmq.Config{
		Host:     r.Host,
		Port:     r.Port,
		User:     r.User,
		Password: r.Password,
		VHost:    r.VHost,
	}
}

// DatabaseConfig is used by the backend simulator only.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type EngineConfig struct {
	ConfirmWindowSeconds int `yaml:"confirm_window_seconds"`
}

func (e EngineConfig) ConfirmWindow() time.Duration {
	return time.Duration(e.ConfirmWindowSeconds) * time.Second
}

// Load reads the YAML config, applying defaults before unmarshal.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{
		API:      APIConfig{BaseURL: "http://localhost:3000", TimeoutSeconds: 10},
		RabbitMQ: RabbitMQConfig{Port: 5672, VHost: "/", Exchange: "order_events", ReconnectDelaySeconds: 3},
		Database: DatabaseConfig{Port: 5432},
		Engine:   EngineConfig{ConfirmWindowSeconds: 30},
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ValidateConsole checks the fields the vendor console requires.
func (c *Config) ValidateConsole() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.RabbitMQ.Host == "" || c.RabbitMQ.User == "" {
		return fmt.Errorf("rabbitmq config incomplete")
	}
	return nil
}

// ValidateSim checks the fields the backend simulator requires.
func (c *Config) ValidateSim() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Database == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.RabbitMQ.Host == "" || c.RabbitMQ.User == "" {
		return fmt.Errorf("rabbitmq config incomplete")
	}
	return nil
}
