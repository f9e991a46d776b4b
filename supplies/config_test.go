package supplies

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
tier_priority = ["vip", "default"]

[log]
level = "debug"

[db]
host = "localhost"
port = 5432
user = "postgres"
password = "postgres"
database = "supplies_test"

[clock]
timezone = "America/Lima"
weekly_reset_day = "FRIDAY"
weekly_reset_hour = 18
weekly_reset_minute = 30

[bank]
use_cheque_item = true

[refresh]
interval = "2s"

[daily.rewards.monday]
display_name = "Monday Rations"
description = ["Bread to start the week"]
money = 100.0
items = ["BREAD:8", "APPLE:4"]

[daily.rewards.friday]
display_name = "Payday"
money = 300.0

[[bonus_tiers]]
min_streak = 5
multiplier = 0.20
extra_items = 2

[[milestones]]
streak = 7
money = 500.0
items = ["DIAMOND:2"]
message = "One full week!"

[tiers.default]
display_name = "Citizen"
weekly_amount = 500.0
pack_cooldown = "24h"

[tiers.default.packs.basic]
display_name = "Basic Rations"
items = ["BREAD:16", "not a valid spec:"]

[tiers.vip]
display_name = "VIP"
entitlements = ["supplies.tier.vip"]
weekly_amount = 4000.0
pack_cooldown = "6h"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "supplies_test", cfg.DB.Database)
	assert.Equal(t, "America/Lima", cfg.Clock.Timezone)
	assert.Equal(t, "FRIDAY", cfg.Clock.ResetDay)
	assert.Equal(t, 18, cfg.Clock.ResetHour)
	assert.Equal(t, 30, cfg.Clock.ResetMinute)
	assert.True(t, cfg.Bank.UseChequeItem)
	assert.Equal(t, 2*time.Second, cfg.Refresh.Interval.Std())
	assert.Equal(t, []string{"vip", "default"}, cfg.TierOrder)

	// Unset server addr gets the default.
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadConfig_BadDuration(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
[refresh]
interval = "soon"
`))
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestBuildCatalog(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	cat, err := BuildCatalog(cfg)
	require.NoError(t, err)

	monday := cat.DailyReward(time.Monday)
	require.NotNil(t, monday)
	assert.Equal(t, "Monday Rations", monday.DisplayName)
	assert.Equal(t, 100.0, monday.Money)
	require.Len(t, monday.Items, 2)
	assert.Equal(t, "BREAD", monday.Items[0].Material)
	assert.Equal(t, 8, monday.Items[0].Amount)

	assert.Nil(t, cat.DailyReward(time.Tuesday))
	require.NotNil(t, cat.DailyReward(time.Friday))

	// Configured bonus tiers replace the defaults.
	assert.Equal(t, 0.20, cat.BonusMultiplier(5))
	assert.Equal(t, 0.0, cat.BonusMultiplier(4))

	milestone := cat.Milestone(7)
	require.NotNil(t, milestone)
	assert.Equal(t, 500.0, milestone.Money)
	assert.Equal(t, "One full week!", milestone.Message)

	def := cat.Tier("default")
	require.NotNil(t, def)
	assert.Equal(t, 24*time.Hour, def.PackCooldown)
	basic, ok := def.Pack("basic")
	require.True(t, ok)
	// The malformed item spec is skipped, not fatal.
	require.Len(t, basic.Items, 1)
	assert.Equal(t, "BREAD", basic.Items[0].Material)

	vip := cat.Tier("vip")
	require.NotNil(t, vip)
	assert.Equal(t, 4000.0, vip.WeeklyAmount)
	assert.Equal(t, 6*time.Hour, vip.PackCooldown)
}

func TestBuildCatalog_UnknownWeekday(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
[daily.rewards.someday]
money = 100.0
`))
	require.NoError(t, err)

	_, err = BuildCatalog(cfg)
	assert.Error(t, err)
}
