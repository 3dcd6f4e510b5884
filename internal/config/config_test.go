package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIAddr, cfg.APIAddr)
	assert.Equal(t, DefaultStateDir, cfg.StateDir)
	assert.Equal(t, filepath.Join(DefaultStateDir, DefaultDBFileName), cfg.DBDSN)
	assert.Equal(t, "file:"+filepath.Join(DefaultStateDir, DefaultWhatsAppDBFileName)+"?_foreign_keys=on", cfg.WhatsAppDBDSN)
	assert.Equal(t, 1500*time.Millisecond, cfg.ComposingDelay)
	assert.Equal(t, ChannelNone, cfg.Channel)
	assert.Equal(t, 256, cfg.PersistQueueSize)
	assert.Equal(t, 24*time.Hour, cfg.IdleTTL)
	assert.Equal(t, DefaultSweepSchedule, cfg.SweepSchedule)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TALENTSCOUT_API_ADDR", ":9090")
	t.Setenv("TALENTSCOUT_STATE_DIR", "/tmp/ts")
	t.Setenv("TALENTSCOUT_COMPOSING_DELAY", "0s")
	t.Setenv("TALENTSCOUT_REDIS_DB", "2")
	t.Setenv("TALENTSCOUT_CHANNEL", "WhatsApp")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.APIAddr)
	assert.Equal(t, "/tmp/ts/talentscout.db", cfg.DBDSN)
	assert.Equal(t, time.Duration(0), cfg.ComposingDelay)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, ChannelWhatsApp, cfg.Channel)
}

func TestLoadHonoursDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app@localhost/talentscout")
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "postgres://app@localhost/talentscout", cfg.DBDSN)

	t.Setenv("TALENTSCOUT_DB_DSN", "memory://")
	cfg, err = Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "memory://", cfg.DBDSN, "explicit db_dsn wins")
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := filepath.Join(t.TempDir(), "talentscout.yaml")
	content := "api_addr: \":7070\"\ncomposing_delay: 250ms\nquestion_bank: /etc/talentscout/bank.yaml\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.APIAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.ComposingDelay)
	assert.Equal(t, "/etc/talentscout/bank.yaml", cfg.QuestionBank)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		APIAddr:          ":8080",
		StateDir:         "/tmp",
		Channel:          ChannelNone,
		PersistQueueSize: 1,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative delay", func(c *Config) { c.ComposingDelay = -time.Second }, "composing_delay"},
		{"zero queue", func(c *Config) { c.PersistQueueSize = 0 }, "persist_queue_size"},
		{"unknown channel", func(c *Config) { c.Channel = "sms" }, "channel"},
		{"twilio without credentials", func(c *Config) { c.Channel = ChannelTwilio }, "twilio_account_sid"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"empty addr", func(c *Config) { c.APIAddr = "" }, "api_addr"},
		{"negative idle ttl", func(c *Config) { c.IdleTTL = -time.Minute }, "conversation_idle_ttl"},
		{"ttl without schedule", func(c *Config) { c.IdleTTL = time.Hour }, "sweep_schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
