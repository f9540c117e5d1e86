package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
http:
  address: ":8000"
database:
  host: db
  port: 5432
  user: rail
  password: from-file
  name: railbooking
kafka:
  brokers: ["kafka:9092"]
  orders_topic: orders
auth:
  secret: "0123456789abcdef0123456789abcdef"
  issuer: railbooking
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTP.Address)
	assert.Equal(t, ":9090", cfg.GRPC.Address)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 30*time.Second, cfg.Database.ConnectTimeout())
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL())
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "media", cfg.Media.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "railbooking", cfg.Auth.Issuer)
	assert.Equal(t, []string{"railbooking-api"}, cfg.Auth.Audience)
	assert.Equal(t, "host=db port=5432 user=rail password=from-file dbname=railbooking sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "postgres://rail:from-file@db:5432/railbooking?sslmode=disable", cfg.Database.URL())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "from-env")
	t.Setenv("DATABASE_DRIVER", DriverMemory)

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "missing secret", body: "http:\n  address: \":8000\"\n"},
		{name: "short secret", body: "auth:\n  secret: short\n"},
		{name: "unknown driver", body: "database:\n  driver: sqlite\nauth:\n  secret: \"0123456789abcdef0123456789abcdef\"\n"},
		{name: "broken yaml", body: "http: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}
