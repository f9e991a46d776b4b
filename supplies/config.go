package supplies

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/nullithstudios/bestsupplies/supplies/catalog"
	"github.com/nullithstudios/bestsupplies/supplies/clock"
	"github.com/nullithstudios/bestsupplies/supplies/database"
)

// Config is the full TOML configuration. Catalog content (daily rewards,
// milestones, bonus tiers, account tiers) lives here too; a reload is a
// restart.
type Config struct {
	Log     LogConfig         `toml:"log"`
	DB      database.DBConfig `toml:"db"`
	Clock   clock.Config      `toml:"clock"`
	Bank    BankConfig        `toml:"bank"`
	Refresh RefreshConfig     `toml:"refresh"`
	Server  ServerConfig      `toml:"server"`

	Daily      DailyConfig           `toml:"daily"`
	BonusTiers []BonusTierConfig     `toml:"bonus_tiers"`
	Milestones []MilestoneConfig     `toml:"milestones"`
	TierOrder  []string              `toml:"tier_priority"`
	Tiers      map[string]TierConfig `toml:"tiers"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	AddSource bool   `toml:"add_source"`
}

type BankConfig struct {
	UseChequeItem bool `toml:"use_cheque_item"`
}

type RefreshConfig struct {
	Interval duration `toml:"interval"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type DailyConfig struct {
	Rewards map[string]DailyRewardConfig `toml:"rewards"`
}

type DailyRewardConfig struct {
	DisplayName string   `toml:"display_name"`
	Description []string `toml:"description"`
	Money       float64  `toml:"money"`
	Items       []string `toml:"items"`
}

type BonusTierConfig struct {
	MinStreak  int     `toml:"min_streak"`
	Multiplier float64 `toml:"multiplier"`
	ExtraItems int     `toml:"extra_items"`
}

type MilestoneConfig struct {
	Streak  int      `toml:"streak"`
	Money   float64  `toml:"money"`
	Items   []string `toml:"items"`
	Message string   `toml:"message"`
}

type TierConfig struct {
	DisplayName  string                `toml:"display_name"`
	Entitlements []string              `toml:"entitlements"`
	WeeklyAmount float64               `toml:"weekly_amount"`
	PackCooldown duration              `toml:"pack_cooldown"`
	Packs        map[string]PackConfig `toml:"packs"`
}

type PackConfig struct {
	DisplayName string   `toml:"display_name"`
	Items       []string `toml:"items"`
}

// duration accepts "24h", "90m" style strings in TOML.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = duration(parsed)
	return nil
}

func (d duration) Std() time.Duration {
	return time.Duration(d)
}

func LoadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Refresh.Interval.Std() <= 0 {
		cfg.Refresh.Interval = duration(time.Second)
	}

	return &cfg, nil
}

// BuildCatalog materializes the reward catalog out of config. Unparseable
// item specs are skipped, matching how ParseItems treats them; an unknown
// weekday key fails loudly since the whole day's reward would vanish.
func BuildCatalog(cfg *Config) (*catalog.Catalog, error) {
	rewards := make([]*catalog.DailyReward, 0, len(cfg.Daily.Rewards))
	for day, rc := range cfg.Daily.Rewards {
		weekday, ok := parseWeekdayKey(day)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q in daily rewards", day)
		}
		rewards = append(rewards, &catalog.DailyReward{
			Weekday:     weekday,
			DisplayName: rc.DisplayName,
			Description: rc.Description,
			Money:       rc.Money,
			Items:       catalog.ParseItems(rc.Items),
		})
	}

	milestones := make([]*catalog.Milestone, 0, len(cfg.Milestones))
	for _, mc := range cfg.Milestones {
		milestones = append(milestones, &catalog.Milestone{
			Streak:  mc.Streak,
			Money:   mc.Money,
			Items:   catalog.ParseItems(mc.Items),
			Message: mc.Message,
		})
	}

	var bonusTiers []catalog.BonusTier
	for _, bc := range cfg.BonusTiers {
		bonusTiers = append(bonusTiers, catalog.BonusTier{
			MinStreak:  bc.MinStreak,
			Multiplier: bc.Multiplier,
			ExtraItems: bc.ExtraItems,
		})
	}

	tiers := make([]*catalog.Tier, 0, len(cfg.Tiers))
	for id, tc := range cfg.Tiers {
		packs := make(map[string]catalog.Pack, len(tc.Packs))
		for packID, pc := range tc.Packs {
			packs[packID] = catalog.Pack{
				ID:          packID,
				DisplayName: pc.DisplayName,
				Items:       catalog.ParseItems(pc.Items),
			}
		}
		tiers = append(tiers, &catalog.Tier{
			ID:           id,
			DisplayName:  tc.DisplayName,
			Entitlements: tc.Entitlements,
			WeeklyAmount: tc.WeeklyAmount,
			PackCooldown: tc.PackCooldown.Std(),
			Packs:        packs,
		})
	}

	return catalog.New(rewards, milestones, bonusTiers, cfg.TierOrder, tiers), nil
}

func parseWeekdayKey(s string) (time.Weekday, bool) {
	switch s {
	case "sunday", "SUNDAY":
		return time.Sunday, true
	case "monday", "MONDAY":
		return time.Monday, true
	case "tuesday", "TUESDAY":
		return time.Tuesday, true
	case "wednesday", "WEDNESDAY":
		return time.Wednesday, true
	case "thursday", "THURSDAY":
		return time.Thursday, true
	case "friday", "FRIDAY":
		return time.Friday, true
	case "saturday", "SATURDAY":
		return time.Saturday, true
	}
	return time.Sunday, false
}
