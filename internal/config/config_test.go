package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskBot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 20*time.Minute, cfg.Scheduler.PollInterval)
	assert.Equal(t, 26, cfg.Tasks.DefaultReminderHours)
	assert.Equal(t, "SE", cfg.Tasks.CaptainRole)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
repository:
  type: sqlite
scheduler:
  poll_interval: 30s
  active_from: "08:30"
gateway:
  retry_max_interval: 2s
tasks:
  captain_role: Captain
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddr())
	assert.Equal(t, config.RepositorySQLite, cfg.Repository.Type)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.PollInterval)
	assert.Equal(t, "08:30", cfg.Scheduler.ActiveFrom)
	// не указанное в файле остаётся по умолчанию
	assert.Equal(t, "21:00", cfg.Scheduler.ActiveTo)
	assert.Equal(t, "Captain", cfg.Tasks.CaptainRole)
	assert.Equal(t, 3, cfg.Gateway.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Gateway.RetryMaxInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Gateway.RetryInitialInterval)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_BrokenYAML(t *testing.T) {
	_, err := config.Load(writeConfig(t, "server: [port"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TASKBOT_GATEWAY_TOKEN", "secret")
	t.Setenv("TASKBOT_REPOSITORY_TYPE", "postgres")
	t.Setenv("TASKBOT_DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("TASKBOT_SERVER_PORT", "7000")

	cfg, err := config.Load(writeConfig(t, "repository:\n  type: sqlite\n"))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Gateway.Token)
	assert.Equal(t, config.RepositoryPostgres, cfg.Repository.Type)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.Database.URL)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *config.Config) {}},
		{name: "unknown repository", mutate: func(c *config.Config) { c.Repository.Type = "mongo" }, wantErr: true},
		{
			name: "postgres without url",
			mutate: func(c *config.Config) {
				c.Repository.Type = config.RepositoryPostgres
				c.Gateway.Token = "t"
			},
			wantErr: true,
		},
		{name: "sqlite without token", mutate: func(c *config.Config) { c.Repository.Type = config.RepositorySQLite }, wantErr: true},
		{
			name: "sqlite with token",
			mutate: func(c *config.Config) {
				c.Repository.Type = config.RepositorySQLite
				c.Gateway.Token = "t"
			},
		},
		{name: "bad active hours", mutate: func(c *config.Config) { c.Scheduler.ActiveFrom = "9am" }, wantErr: true},
		{name: "inverted window", mutate: func(c *config.Config) { c.Scheduler.ActiveFrom = "22:00" }, wantErr: true},
		{name: "unknown zone", mutate: func(c *config.Config) { c.Scheduler.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "zero poll interval", mutate: func(c *config.Config) { c.Scheduler.PollInterval = 0 }, wantErr: true},
		{name: "zero reminder hours", mutate: func(c *config.Config) { c.Tasks.DefaultReminderHours = 0 }, wantErr: true},
		{name: "reminder hours over a year", mutate: func(c *config.Config) { c.Tasks.DefaultReminderHours = 3_000_000 }, wantErr: true},
		{name: "reminder hours exactly a year", mutate: func(c *config.Config) { c.Tasks.DefaultReminderHours = 8760 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchedulerHours(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.Timezone = "UTC"

	hours, err := cfg.Scheduler.Hours()
	require.NoError(t, err)

	assert.Equal(t, 9*time.Hour, hours.From)
	assert.Equal(t, 21*time.Hour, hours.To)
	assert.True(t, hours.Contains(time.Date(2026, 1, 1, 21, 0, 0, 0, time.UTC)))
	assert.False(t, hours.Contains(time.Date(2026, 1, 1, 21, 0, 1, 0, time.UTC)))
}
