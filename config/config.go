package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kellertobias/calsync/internal/domain"
)

const (
	defaultHorizonDays     = 30
	defaultIntervalMinutes = 15
)

// Account is one CalDAV account. Passwords never live in the config file;
// they come from CALSYNC_PASSWORD_<NAME>.
type Account struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
}

// RuleConfig is the file form of one filter rule.
type RuleConfig struct {
	Kind          string `yaml:"kind"`
	Pattern       string `yaml:"pattern"`
	CaseSensitive bool   `yaml:"case_sensitive"`
	Regex         bool   `yaml:"regex"`
}

// WindowConfig is the file form of one time window.
type WindowConfig struct {
	Weekday int    `yaml:"weekday"` // 0 = Sunday … 6 = Saturday
	Start   string `yaml:"start"`   // "HH:MM", inclusive
	End     string `yaml:"end"`     // "HH:MM", exclusive
}

// Sync is one configured source-to-target synchronization.
type Sync struct {
	ID              string         `yaml:"id"`
	SourceAccount   string         `yaml:"source_account"`
	SourceCalendar  string         `yaml:"source_calendar"`
	TargetAccount   string         `yaml:"target_account"`
	TargetCalendar  string         `yaml:"target_calendar"`
	Mode            string         `yaml:"mode"`
	BlockerTitle    string         `yaml:"blocker_title"`
	HorizonDays     int            `yaml:"horizon_days"`
	IntervalMinutes int            `yaml:"interval_minutes"`
	Filters         []RuleConfig   `yaml:"filters"`
	Windows         []WindowConfig `yaml:"windows"`

	// Compiled at load time.
	SyncMode    domain.SyncMode     `yaml:"-"`
	Rules       []domain.FilterRule `yaml:"-"`
	TimeWindows []domain.TimeWindow `yaml:"-"`
}

// Telegram holds the notification settings. The token comes from
// CALSYNC_TELEGRAM_TOKEN.
type Telegram struct {
	ChatID int64  `yaml:"chat_id"`
	Token  string `yaml:"-"`
}

type Config struct {
	Timezone     string              `yaml:"timezone"`
	DatabasePath string              `yaml:"database_path"`
	LogLevel     string              `yaml:"log_level"`
	Accounts     map[string]*Account `yaml:"accounts"`
	Syncs        []*Sync             `yaml:"syncs"`
	Telegram     *Telegram           `yaml:"telegram"`

	Location *time.Location `yaml:"-"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "./data/calsync.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	tzName := cfg.Timezone
	if tzName == "" {
		tzName = "UTC"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tzName, err)
	}
	cfg.Location = loc

	if len(cfg.Syncs) == 0 {
		return nil, fmt.Errorf("no syncs configured")
	}

	for name, acc := range cfg.Accounts {
		if acc == nil || acc.URL == "" {
			return nil, fmt.Errorf("account %q: url is required", name)
		}
		acc.Password = os.Getenv("CALSYNC_PASSWORD_" + envName(name))
	}

	seen := make(map[string]bool)
	for _, sync := range cfg.Syncs {
		if err := cfg.compileSync(sync); err != nil {
			return nil, err
		}
		if seen[sync.ID] {
			return nil, fmt.Errorf("sync %q: duplicate id", sync.ID)
		}
		seen[sync.ID] = true
	}

	if cfg.Telegram != nil {
		cfg.Telegram.Token = os.Getenv("CALSYNC_TELEGRAM_TOKEN")
	}

	return cfg, nil
}

func (c *Config) compileSync(sync *Sync) error {
	if sync.ID == "" {
		return fmt.Errorf("sync without id")
	}
	// The id doubles as marker owner tag and occurrence-key scope.
	if strings.ContainsAny(sync.ID, " |\t") {
		return fmt.Errorf("sync %q: id must not contain spaces or '|'", sync.ID)
	}

	if _, ok := c.Accounts[sync.SourceAccount]; !ok {
		return fmt.Errorf("sync %q: unknown source account %q", sync.ID, sync.SourceAccount)
	}
	if _, ok := c.Accounts[sync.TargetAccount]; !ok {
		return fmt.Errorf("sync %q: unknown target account %q", sync.ID, sync.TargetAccount)
	}
	if sync.SourceCalendar == "" || sync.TargetCalendar == "" {
		return fmt.Errorf("sync %q: source_calendar and target_calendar are required", sync.ID)
	}

	switch sync.Mode {
	case "", string(domain.ModeFull):
		sync.SyncMode = domain.ModeFull
	case string(domain.ModeBlocker):
		sync.SyncMode = domain.ModeBlocker
	default:
		return fmt.Errorf("sync %q: unknown mode %q", sync.ID, sync.Mode)
	}

	if sync.HorizonDays <= 0 {
		sync.HorizonDays = defaultHorizonDays
	}
	if sync.IntervalMinutes <= 0 {
		sync.IntervalMinutes = defaultIntervalMinutes
	}

	sync.Rules = sync.Rules[:0]
	for _, rc := range sync.Filters {
		kind := domain.RuleKind(rc.Kind)
		if !domain.KnownRuleKind(kind) {
			return fmt.Errorf("sync %q: unknown filter kind %q", sync.ID, rc.Kind)
		}
		if rc.Regex {
			if _, err := regexp.Compile(rc.Pattern); err != nil {
				return fmt.Errorf("sync %q: filter %q: invalid regex: %w", sync.ID, rc.Kind, err)
			}
		}
		sync.Rules = append(sync.Rules, domain.FilterRule{
			Kind:          kind,
			Pattern:       rc.Pattern,
			CaseSensitive: rc.CaseSensitive,
			Regex:         rc.Regex,
		})
	}

	sync.TimeWindows = sync.TimeWindows[:0]
	for _, wc := range sync.Windows {
		if wc.Weekday < 0 || wc.Weekday > 6 {
			return fmt.Errorf("sync %q: weekday %d out of range", sync.ID, wc.Weekday)
		}
		start, err := domain.ParseClock(wc.Start)
		if err != nil {
			return fmt.Errorf("sync %q: window start: %w", sync.ID, err)
		}
		end, err := domain.ParseClock(wc.End)
		if err != nil {
			return fmt.Errorf("sync %q: window end: %w", sync.ID, err)
		}
		if end <= start {
			return fmt.Errorf("sync %q: window end %q not after start %q", sync.ID, wc.End, wc.Start)
		}
		sync.TimeWindows = append(sync.TimeWindows, domain.TimeWindow{
			Weekday:     time.Weekday(wc.Weekday),
			StartMinute: start,
			EndMinute:   end,
		})
	}

	return nil
}

// FindSync returns the sync with the given id.
func (c *Config) FindSync(id string) (*Sync, bool) {
	for _, s := range c.Syncs {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

func envName(account string) string {
	name := strings.ToUpper(account)
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
}
