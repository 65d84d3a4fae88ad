package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/FP2003/discord-birthday-bot/internal/config"
)

// TestConstants_Integrity ensures critical constants are not empty or malformed.
// This prevents accidental deletion of keys required for runtime or feed logic.
func TestConstants_Integrity(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"AppName", config.AppName},
		{"AppID", config.AppID},
		{"KeyringService", config.KeyringService},
		{"Version", config.Version},
		{"UserAgent", config.UserAgent},
		{"ICalVersion", config.ICalVersion},
		{"ICalProdid", config.ICalProdid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.value, "Critical constant %s should not be empty", tt.name)
		})
	}
}

// TestDefaults_Sanity checks that default values make sense logically.
func TestDefaults_Sanity(t *testing.T) {
	assert.Equal(t, 2000, config.DefaultLeapYear, "Default leap year must be 2000 for consistency")
	assert.Equal(t, 10, config.DefaultUpcomingMax)
	assert.Equal(t, 1900, config.MinBirthYear)
	assert.Contains(t, config.SupportedLanguages, config.DefaultLanguage)

	_, err := time.LoadLocation(config.DefaultTimezone)
	assert.NoError(t, err, "Default timezone must be loadable")
}

// TestUserAgent_Format ensures the UA string follows the standard format.
func TestUserAgent_Format(t *testing.T) {
	assert.True(t, strings.HasPrefix(config.UserAgent, "Birthday-Bot/"), "UserAgent must start with AppName/")
}

// TestCommandNames_DiscordRules checks the published command names against Discord's
// constraints (lowercase, 1-32 chars, no spaces).
func TestCommandNames_DiscordRules(t *testing.T) {
	names := []string{
		config.CmdSetBirthday,
		config.CmdBirthday,
		config.CmdBirthdays,
		config.CmdRemoveBirthday,
		config.CmdBirthdayChan,
		config.OptMonth,
		config.OptDay,
		config.OptYear,
		config.OptUser,
		config.OptChannel,
	}
	for _, n := range names {
		assert.Equal(t, strings.ToLower(n), n)
		assert.NotContains(t, n, " ")
		assert.LessOrEqual(t, len(n), 32)
	}
}

// TestTimeoutsAndLimits ensures that operational constraints are reasonable.
func TestTimeoutsAndLimits(t *testing.T) {
	t.Parallel()

	assert.Greater(t, config.ShutdownTimeout, 0*time.Second, "ShutdownTimeout must be positive")
	assert.Greater(t, config.LookupTimeout, 0*time.Second, "LookupTimeout must be positive")
	assert.LessOrEqual(t, config.LookupTimeout, time.Minute, "Member lookups must not stall the announcement pass")
}
