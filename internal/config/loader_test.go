package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "molscore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  mode: debug
scoring:
  radius: 2
  pseudo_count: 0.5
redis:
  addr: redis.internal:6379
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 2, cfg.Scoring.Radius)
	assert.Equal(t, 0.5, cfg.Scoring.PseudoCount)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)

	// Unset fields pick up defaults.
	assert.Equal(t, float64(2e6), cfg.Scoring.EstimatedKeyspace)
	assert.Equal(t, float64(1), cfg.Scoring.Alpha)
	assert.Equal(t, 15*time.Minute, cfg.Redis.DefaultTTL)
	assert.Equal(t, "molscore:", cfg.Redis.KeyPrefix)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad_mode", "server:\n  mode: turbo\n"},
		{"bad_port", "server:\n  port: 70000\n"},
		{"negative_pseudo_count", "scoring:\n  pseudo_count: -1\n"},
		{"radius_out_of_range", "scoring:\n  radius: 9\n"},
		{"alpha_out_of_range", "scoring:\n  alpha: 1.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MOLSCORE_SERVER_PORT", "7070")
	t.Setenv("MOLSCORE_SCORING_RADIUS", "3")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Scoring.Radius)
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Scoring.Radius)
	assert.Equal(t, 0.1, cfg.Scoring.PseudoCount)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	dsn := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p",
		DBName: "molscore", SSLMode: "disable",
	}.DSN()
	assert.Equal(t, "postgres://u:p@db:5432/molscore?sslmode=disable", dsn)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 8081\n")

	stop := make(chan struct{})
	defer close(stop)

	changed := make(chan *Config, 1)
	go func() {
		_ = Watch(path, stop, func(c *Config) {
			select {
			case changed <- c:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before rewriting.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8082\n"), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, 8082, cfg.Server.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}
