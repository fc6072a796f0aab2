package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("bot token is required by default", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "")
		t.Setenv("INSECURE_SKIP_VERIFY", "false")

		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("skip verify lifts the requirement", func(t *testing.T) {
		t.Setenv("INSECURE_SKIP_VERIFY", "true")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		require.True(t, cfg.InsecureSkipVerify)
		require.Equal(t, 8080, cfg.Port)
		require.Equal(t, "miniapp.db", cfg.DatabaseFile)
		require.Equal(t, 7*24*time.Hour, cfg.InviteTTL)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "123456:token")
		t.Setenv("PORT", "9090")
		t.Setenv("INVITE_TTL", "30m")
		t.Setenv("SEED_ADMIN_TG_ID", "42")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		require.Equal(t, "123456:token", cfg.BotToken)
		require.Equal(t, 9090, cfg.Port)
		require.Equal(t, 30*time.Minute, cfg.InviteTTL)
		require.Equal(t, int64(42), cfg.SeedAdminTgID)
	})
}
