package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"agri-market/pkg/common"
)

var (
	locMu          sync.RWMutex
	marketLocation = time.UTC
)

// SetMarketTimeLocation sets the zone used to decide the market's calendar day.
func SetMarketTimeLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("failed to load location %q: %w", name, err)
	}
	locMu.Lock()
	marketLocation = loc
	locMu.Unlock()
	return nil
}

func GetMarketTimeLocation() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return marketLocation
}

func TimeNowMarket() time.Time {
	return time.Now().In(GetMarketTimeLocation())
}

// DateOf drops the clock part of t, keeping its calendar day as a UTC midnight.
// All price dates are carried in this form so they compare equal to DATE
// values read back from PostgreSQL.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TodayMarket is the current market calendar day.
func TodayMarket() time.Time {
	return DateOf(TimeNowMarket())
}

// ParseDate parses a YYYY-MM-DD string into a calendar day.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(common.DATE_LAYOUT, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

func FormatDate(t time.Time) string {
	return t.Format(common.DATE_LAYOUT)
}
