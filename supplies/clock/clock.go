// Package clock resolves "now" in the configured timezone and derives the
// claim period keys everything else is keyed by: the yyyy-mm-dd daily key and
// the weekly period key anchored to the configured reset weekday and time.
package clock

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	dateKeyLayout    = "2006-01-02"
	weekPeriodLayout = "2006-01-02_15-04"

	// Fallbacks when the configured timezone or reset weekday is invalid.
	DefaultTimezone     = "America/Lima"
	DefaultResetWeekday = time.Monday
)

type Config struct {
	Timezone    string `toml:"timezone"`
	ResetDay    string `toml:"weekly_reset_day"`
	ResetHour   int    `toml:"weekly_reset_hour"`
	ResetMinute int    `toml:"weekly_reset_minute"`
}

type Service struct {
	loc         *time.Location
	resetDay    time.Weekday
	resetHour   int
	resetMinute int
	now         func() time.Time
}

// New builds a Service from config. Invalid timezone or reset values fall
// back to America/Lima, Monday 00:00 with a warning; startup never fails on
// a bad clock config.
func New(cfg Config) *Service {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		slog.Warn("Invalid timezone, falling back",
			slog.String("type", "sys"),
			slog.String("timezone", cfg.Timezone),
			slog.String("fallback", DefaultTimezone))
		loc, _ = time.LoadLocation(DefaultTimezone)
	}

	resetDay, ok := parseWeekday(cfg.ResetDay)
	if !ok {
		if cfg.ResetDay != "" {
			slog.Warn("Invalid weekly reset day, falling back",
				slog.String("type", "sys"),
				slog.String("day", cfg.ResetDay))
		}
		resetDay = DefaultResetWeekday
	}

	resetHour := cfg.ResetHour
	if resetHour < 0 || resetHour > 23 {
		resetHour = 0
	}
	resetMinute := cfg.ResetMinute
	if resetMinute < 0 || resetMinute > 59 {
		resetMinute = 0
	}

	return &Service{
		loc:         loc,
		resetDay:    resetDay,
		resetHour:   resetHour,
		resetMinute: resetMinute,
		now:         time.Now,
	}
}

// NewAt is New with a fixed now source, for tests.
func NewAt(cfg Config, now func() time.Time) *Service {
	s := New(cfg)
	s.now = now
	return s
}

func parseWeekday(s string) (time.Weekday, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUNDAY":
		return time.Sunday, true
	case "MONDAY":
		return time.Monday, true
	case "TUESDAY":
		return time.Tuesday, true
	case "WEDNESDAY":
		return time.Wednesday, true
	case "THURSDAY":
		return time.Thursday, true
	case "FRIDAY":
		return time.Friday, true
	case "SATURDAY":
		return time.Saturday, true
	}
	return time.Monday, false
}

// Now returns the current instant in the configured timezone.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// TodayKey returns today's date key (yyyy-mm-dd) in the configured timezone.
func (s *Service) TodayKey() string {
	return s.Now().Format(dateKeyLayout)
}

// DateKey formats an instant as a date key in the configured timezone.
func (s *Service) DateKey(t time.Time) string {
	return t.In(s.loc).Format(dateKeyLayout)
}

func (s *Service) Weekday() time.Weekday {
	return s.Now().Weekday()
}

// LastWeeklyReset returns the most recent reset boundary at or before now.
// When today is the reset weekday but the reset time has not happened yet,
// the boundary is one week back.
func (s *Service) LastWeeklyReset() time.Time {
	now := s.Now()

	daysBack := int(now.Weekday()) - int(s.resetDay)
	if daysBack < 0 {
		daysBack += 7
	}

	resetDate := now.AddDate(0, 0, -daysBack)
	lastReset := time.Date(resetDate.Year(), resetDate.Month(), resetDate.Day(),
		s.resetHour, s.resetMinute, 0, 0, s.loc)

	if lastReset.After(now) {
		lastReset = lastReset.AddDate(0, 0, -7)
	}

	return lastReset
}

// WeekPeriodKey returns the current weekly claim period key. The key is the
// last reset boundary formatted with its time component, so one distinct key
// exists per 7-day span and reconfiguring the reset never reinterprets old
// keys.
func (s *Service) WeekPeriodKey() string {
	return s.LastWeeklyReset().Format(weekPeriodLayout)
}

func (s *Service) NextWeeklyReset() time.Time {
	return s.LastWeeklyReset().AddDate(0, 0, 7)
}

// TimeUntilWeeklyReset returns the remaining time in the current weekly
// period, clamped to zero.
func (s *Service) TimeUntilWeeklyReset() time.Duration {
	return s.TimeUntil(s.NextWeeklyReset())
}

// TimeUntil returns the duration from now until target, clamped to zero.
func (s *Service) TimeUntil(target time.Time) time.Duration {
	d := target.Sub(s.Now())
	if d < 0 {
		return 0
	}
	return d
}

// TimeUntilWeekday returns the duration until the next start-of-day of the
// given weekday. Zero when the target weekday is today.
func (s *Service) TimeUntilWeekday(target time.Weekday) time.Duration {
	now := s.Now()

	daysUntil := int(target) - int(now.Weekday())
	if daysUntil < 0 {
		daysUntil += 7
	} else if daysUntil == 0 {
		return 0
	}

	targetDate := now.AddDate(0, 0, daysUntil)
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(),
		0, 0, 0, 0, s.loc)
	return s.TimeUntil(startOfDay)
}

// StartOfTomorrow returns the next midnight in the configured timezone.
func (s *Service) StartOfTomorrow() time.Time {
	now := s.Now()
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(),
		0, 0, 0, 0, s.loc)
}

// IsToday reports whether a date key is today's.
func (s *Service) IsToday(dateKey string) bool {
	return s.TodayKey() == dateKey
}

// IsPast reports whether a date key is strictly before today. Unparseable
// keys report false.
func (s *Service) IsPast(dateKey string) bool {
	d, err := time.ParseInLocation(dateKeyLayout, dateKey, s.loc)
	if err != nil {
		return false
	}
	today, _ := time.ParseInLocation(dateKeyLayout, s.TodayKey(), s.loc)
	return d.Before(today)
}

// WasYesterday reports whether a date key names yesterday in the configured
// timezone. Empty or unparseable keys report false.
func (s *Service) WasYesterday(dateKey string) bool {
	if dateKey == "" {
		return false
	}
	d, err := time.ParseInLocation(dateKeyLayout, dateKey, s.loc)
	if err != nil {
		return false
	}
	now := s.Now()
	yesterday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, -1)
	return d.Equal(yesterday)
}

// FormatDuration renders a duration as "Xd Xh Xm Xs" for display.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	totalSeconds := int64(d.Seconds())
	days := totalSeconds / (24 * 3600)
	hours := (totalSeconds % (24 * 3600)) / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	var sb strings.Builder
	if days > 0 {
		fmt.Fprintf(&sb, "%dd ", days)
	}
	if hours > 0 || days > 0 {
		fmt.Fprintf(&sb, "%dh ", hours)
	}
	if minutes > 0 || hours > 0 || days > 0 {
		fmt.Fprintf(&sb, "%dm ", minutes)
	}
	fmt.Fprintf(&sb, "%ds", seconds)

	return sb.String()
}

// FormatMillis renders an epoch-millis remainder as a duration string.
func FormatMillis(millis int64) string {
	if millis <= 0 {
		return "0s"
	}
	return FormatDuration(time.Duration(millis) * time.Millisecond)
}
