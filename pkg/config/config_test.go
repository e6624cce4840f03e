package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEnvConfig(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("ADMIN_USER_IDS", "1,2")
	t.Setenv("TELEGRAM_CHAT_IDS", "-100,42")
	t.Setenv("AUTOSAVE_INTERVAL", "90s")
	t.Setenv("REPO_DB_HOST", "db")
	t.Setenv("REPO_DB_MAX_OPEN_CONNS", "7")

	var cfg Config
	require.NoError(t, ReadEnvConfig(&cfg))

	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, []string{"1", "2"}, cfg.AdminUserIDs)
	assert.Equal(t, []int64{-100, 42}, cfg.TelegramChatIDs)
	assert.Equal(t, 90*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, "db", cfg.Repo.Host)
	assert.Equal(t, 7, cfg.Repo.MaxOpenConns)
	assert.Equal(t, "disable", cfg.Repo.SSLMode)
	assert.Equal(t, "debug", cfg.LogLevel)
}
