package notifier

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JokingLove/whale-alert-sync/database"
)

// Matches reports whether tx should reach a subscriber with prefs at now.
// Quiet hours are evaluated in the subscriber's timezone when one is set and
// valid, otherwise in now's location. An empty blockchain or transaction type
// set matches nothing.
func Matches(tx *database.WhaleTransaction, prefs database.Preferences, now time.Time) bool {
	if tx.AmountUsd.LessThan(prefs.MinUsdValue) {
		return false
	}
	if !containsFold(prefs.Blockchains, tx.Blockchain.String()) {
		return false
	}
	if !containsFold(prefs.TransactionTypes, tx.TransactionType.String()) {
		return false
	}
	return !InQuietHours(prefs.QuietHours, now)
}

// InQuietHours reports whether now falls inside the enabled window
// [start, end], both ends inclusive at minute granularity. A window whose
// start is after its end wraps past midnight. Malformed windows never suppress.
func InQuietHours(q database.QuietHours, now time.Time) bool {
	if !q.Enabled {
		return false
	}
	start, end, err := parseWindow(q)
	if err != nil {
		return false
	}
	if q.Timezone != "" {
		if loc, err := time.LoadLocation(q.Timezone); err == nil {
			now = now.In(loc)
		}
	}

	minute := now.Hour()*60 + now.Minute()
	if start <= end {
		return minute >= start && minute <= end
	}
	return minute >= start || minute <= end
}

// ValidateQuietHours reports configuration problems Matches silently ignores.
func ValidateQuietHours(q database.QuietHours) error {
	if !q.Enabled {
		return nil
	}
	if _, _, err := parseWindow(q); err != nil {
		return err
	}
	if q.Timezone != "" {
		if _, err := time.LoadLocation(q.Timezone); err != nil {
			return fmt.Errorf("quiet hours timezone %q: %w", q.Timezone, err)
		}
	}
	return nil
}

func parseWindow(q database.QuietHours) (int, int, error) {
	start, err := parseClock(q.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseClock(q.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseClock converts "HH:MM" to minutes after midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
