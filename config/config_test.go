package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kellertobias/calsync/internal/domain"
)

const sampleConfig = `
timezone: Europe/Berlin
database_path: ./test.db
accounts:
  work:
    url: https://caldav.example.com
    username: u
  personal:
    url: https://caldav.icloud.com
    username: v
syncs:
  - id: work-to-personal
    source_account: work
    source_calendar: /calendars/u/work/
    target_account: personal
    target_calendar: /calendars/v/blockers/
    mode: blocker
    blocker_title: "Busy"
    filters:
      - {kind: exclude_title, pattern: "Lunch"}
      - {kind: min_duration, pattern: "15"}
    windows:
      - {weekday: 1, start: "08:00", end: "18:00"}
telegram:
  chat_id: 42
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("CALSYNC_PASSWORD_WORK", "s3cret")
	t.Setenv("CALSYNC_TELEGRAM_TOKEN", "bot-token")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
	assert.Equal(t, "s3cret", cfg.Accounts["work"].Password)
	assert.Empty(t, cfg.Accounts["personal"].Password)
	assert.Equal(t, "bot-token", cfg.Telegram.Token)

	require.Len(t, cfg.Syncs, 1)
	sync := cfg.Syncs[0]
	assert.Equal(t, domain.ModeBlocker, sync.SyncMode)
	assert.Equal(t, 30, sync.HorizonDays, "horizon default applied")
	assert.Equal(t, 15, sync.IntervalMinutes, "interval default applied")

	require.Len(t, sync.Rules, 2)
	assert.Equal(t, domain.RuleExcludeTitle, sync.Rules[0].Kind)

	require.Len(t, sync.TimeWindows, 1)
	assert.Equal(t, time.Monday, sync.TimeWindows[0].Weekday)
	assert.Equal(t, 8*60, sync.TimeWindows[0].StartMinute)
	assert.Equal(t, 18*60, sync.TimeWindows[0].EndMinute)
}

func TestLoadRejectsUnknownFilterKind(t *testing.T) {
	bad := `
accounts:
  a: {url: https://x, username: u}
syncs:
  - id: s
    source_account: a
    source_calendar: /c/
    target_account: a
    target_calendar: /d/
    filters:
      - {kind: frobnicate, pattern: x}
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown filter kind")
}

func TestLoadRejectsInvalidRegexPattern(t *testing.T) {
	bad := `
accounts:
  a: {url: https://x, username: u}
syncs:
  - id: s
    source_account: a
    source_calendar: /c/
    target_account: a
    target_calendar: /d/
    filters:
      - {kind: exclude_title, pattern: "(unclosed", regex: true}
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid regex")
}

func TestLoadRejectsUnknownAccount(t *testing.T) {
	bad := `
accounts:
  a: {url: https://x, username: u}
syncs:
  - id: s
    source_account: nope
    source_calendar: /c/
    target_account: a
    target_calendar: /d/
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source account")
}

func TestLoadRejectsSyncIDWithDelimiter(t *testing.T) {
	bad := `
accounts:
  a: {url: https://x, username: u}
syncs:
  - id: "has|pipe"
    source_account: a
    source_calendar: /c/
    target_account: a
    target_calendar: /d/
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
}

func TestLoadRejectsBadWindow(t *testing.T) {
	bad := `
accounts:
  a: {url: https://x, username: u}
syncs:
  - id: s
    source_account: a
    source_calendar: /c/
    target_account: a
    target_calendar: /d/
    windows:
      - {weekday: 1, start: "18:00", end: "08:00"}
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not after start")
}

func TestLoadRejectsDuplicateSyncIDs(t *testing.T) {
	bad := `
accounts:
  a: {url: https://x, username: u}
syncs:
  - id: s
    source_account: a
    source_calendar: /c/
    target_account: a
    target_calendar: /d/
  - id: s
    source_account: a
    source_calendar: /e/
    target_account: a
    target_calendar: /f/
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}
