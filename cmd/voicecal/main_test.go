package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/voicecal/server/auth"
)

func TestTokenCommand(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"token", "--mode", "dev", "--data", dir, "--secret", "cli-secret", "--user", "9"})

	require.NoError(t, cmd.Execute())

	userID, err := auth.NewTokenManager("cli-secret").ParseAccessToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, int32(9), userID)
	assert.Contains(t, errOut.String(), "expires at")
}

func TestLoadProfileFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VOICECAL_DATA", dir)
	t.Setenv("VOICECAL_TIMEZONE", "UTC")
	t.Setenv("VOICECAL_RATE_LIMIT_BURST", "9")

	v := viper.New()
	bindConfig(&cobra.Command{Use: "test"}, v)
	prof, err := loadProfile(v)
	require.NoError(t, err)
	assert.Equal(t, dir, prof.Data)
	assert.Equal(t, "UTC", prof.Timezone)
	assert.Equal(t, 9, prof.RateLimitBurst)
	assert.Equal(t, "voicecal-dev", prof.Secret)
	assert.True(t, strings.HasSuffix(prof.DSN, "voicecal_dev.db"))
}
