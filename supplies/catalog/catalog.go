// Package catalog holds the config-driven reward definitions: per-weekday
// daily rewards, streak bonus tiers and milestones, account tiers with their
// weekly stipend amounts, ration packs and cooldown lengths.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Item is one stack of a material, the unit the delivery collaborator moves.
type Item struct {
	Material string `json:"material"`
	Amount   int    `json:"amount"`
}

// ParseItem parses a "MATERIAL:amount" spec. A bare "MATERIAL" means one.
func ParseItem(spec string) (Item, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Item{}, fmt.Errorf("empty item spec")
	}

	material := spec
	amount := 1

	if idx := strings.LastIndex(spec, ":"); idx >= 0 {
		material = spec[:idx]
		n, err := strconv.Atoi(spec[idx+1:])
		if err != nil || n <= 0 {
			return Item{}, fmt.Errorf("invalid amount in item spec %q", spec)
		}
		amount = n
	}

	material = strings.ToUpper(strings.TrimSpace(material))
	if material == "" {
		return Item{}, fmt.Errorf("missing material in item spec %q", spec)
	}

	return Item{Material: material, Amount: amount}, nil
}

// ParseItems parses a list of item specs, skipping invalid entries.
func ParseItems(specs []string) []Item {
	items := make([]Item, 0, len(specs))
	for _, spec := range specs {
		item, err := ParseItem(spec)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

// DailyReward is what one weekday pays out.
type DailyReward struct {
	Weekday     time.Weekday
	DisplayName string
	Description []string
	Money       float64
	Items       []Item
}

func (r *DailyReward) HasMoney() bool { return r.Money > 0 }
func (r *DailyReward) HasItems() bool { return len(r.Items) > 0 }

// Milestone is an additive bonus granted when the streak hits an exact value.
type Milestone struct {
	Streak  int
	Money   float64
	Items   []Item
	Message string
}

func (m *Milestone) HasMoney() bool { return m.Money > 0 }
func (m *Milestone) HasItems() bool { return len(m.Items) > 0 }

// BonusTier maps a minimum streak to a money multiplier and extra item count.
type BonusTier struct {
	MinStreak  int
	Multiplier float64
	ExtraItems int
}

// DefaultBonusTiers mirror the stock streak bonuses: 3+/7+/14+ days pay
// 5%/10%/15% extra money and 1/2/3 extra items.
func DefaultBonusTiers() []BonusTier {
	return []BonusTier{
		{MinStreak: 3, Multiplier: 0.05, ExtraItems: 1},
		{MinStreak: 7, Multiplier: 0.10, ExtraItems: 2},
		{MinStreak: 14, Multiplier: 0.15, ExtraItems: 3},
	}
}

// Pack is one ration pack unlocked by a tier.
type Pack struct {
	ID          string
	DisplayName string
	Items       []Item
}

// Tier classifies an account: weekly stipend amount, ration cooldown length,
// unlocked packs. Entitlements are opaque keys checked against an external
// collaborator; a tier with none is the default tier.
type Tier struct {
	ID           string
	DisplayName  string
	Entitlements []string
	WeeklyAmount float64
	PackCooldown time.Duration
	Packs        map[string]Pack
}

// HasEntitlements reports whether the tier requires any entitlement key.
func (t *Tier) HasEntitlements() bool {
	for _, e := range t.Entitlements {
		if e != "" {
			return true
		}
	}
	return false
}

func (t *Tier) Pack(packID string) (Pack, bool) {
	p, ok := t.Packs[packID]
	return p, ok
}

// Catalog is the full reward/tier configuration resolved at startup.
type Catalog struct {
	dailyRewards map[time.Weekday]*DailyReward
	milestones   map[int]*Milestone
	bonusTiers   []BonusTier
	tierPriority []string
	tiers        map[string]*Tier
}

func New(rewards []*DailyReward, milestones []*Milestone, bonusTiers []BonusTier, priority []string, tiers []*Tier) *Catalog {
	c := &Catalog{
		dailyRewards: make(map[time.Weekday]*DailyReward, len(rewards)),
		milestones:   make(map[int]*Milestone, len(milestones)),
		bonusTiers:   bonusTiers,
		tierPriority: priority,
		tiers:        make(map[string]*Tier, len(tiers)),
	}
	for _, r := range rewards {
		c.dailyRewards[r.Weekday] = r
	}
	for _, m := range milestones {
		c.milestones[m.Streak] = m
	}
	for _, t := range tiers {
		c.tiers[t.ID] = t
	}
	if len(c.bonusTiers) == 0 {
		c.bonusTiers = DefaultBonusTiers()
	}
	return c
}

// DailyReward returns the reward configured for a weekday, or nil.
func (c *Catalog) DailyReward(day time.Weekday) *DailyReward {
	return c.dailyRewards[day]
}

// Milestone returns the milestone for an exact streak value, or nil.
func (c *Catalog) Milestone(streak int) *Milestone {
	return c.milestones[streak]
}

// BonusMultiplier returns the money multiplier for a streak value.
func (c *Catalog) BonusMultiplier(streak int) float64 {
	multiplier := 0.0
	for _, bt := range c.bonusTiers {
		if streak >= bt.MinStreak && bt.Multiplier > multiplier {
			multiplier = bt.Multiplier
		}
	}
	return multiplier
}

// BonusItems returns the extra item count for a streak value.
func (c *Catalog) BonusItems(streak int) int {
	extra := 0
	for _, bt := range c.bonusTiers {
		if streak >= bt.MinStreak && bt.ExtraItems > extra {
			extra = bt.ExtraItems
		}
	}
	return extra
}

// BonusPercent returns the money bonus as a whole percentage, for display.
func (c *Catalog) BonusPercent(streak int) int {
	return int(c.BonusMultiplier(streak) * 100)
}

// Tier returns a tier definition by id, or nil.
func (c *Catalog) Tier(tierID string) *Tier {
	return c.tiers[tierID]
}

// TierPriority returns tier ids highest-priority first.
func (c *Catalog) TierPriority() []string {
	return c.tierPriority
}
