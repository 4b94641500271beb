package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
rabbitmq:
  host: localhost
  user: guest
  password: guest
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout())
	assert.Equal(t, 5672, cfg.RabbitMQ.Port)
	assert.Equal(t, "/", cfg.RabbitMQ.VHost)
	assert.Equal(t, "order_events", cfg.RabbitMQ.Exchange)
	assert.Equal(t, 3*time.Second, cfg.RabbitMQ.ReconnectDelay())
	assert.Equal(t, 30*time.Second, cfg.Engine.ConfirmWindow())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: http://orders.campus.test
  timeout_seconds: 5
rabbitmq:
  host: mq.campus.test
  port: 5671
  user: vendor
  password: secret
  vhost: /orders
  reconnect_delay_seconds: 7
database:
  host: db.campus.test
  user: sim
  password: secret
  database: campus_eats
engine:
  confirm_window_seconds: 12
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://orders.campus.test", cfg.API.BaseURL)
	assert.Equal(t, 7*time.Second, cfg.RabbitMQ.ReconnectDelay())
	assert.Equal(t, 12*time.Second, cfg.Engine.ConfirmWindow())
	assert.Equal(t, "/orders", cfg.RabbitMQ.Connection().VHost)

	assert.NoError(t, cfg.ValidateConsole())
	assert.NoError(t, cfg.ValidateSim())
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: http://localhost:3000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Error(t, cfg.ValidateConsole())
	assert.Error(t, cfg.ValidateSim())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "rabbitmq: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}
