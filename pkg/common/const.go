package common

import "fmt"

const (
	KEY_MARKET_TREND_REPORT = "market:trend_report"
	KEY_MARKET_PRICE_STATS  = "market:price_stats"
)

const (
	DATE_LAYOUT = "2006-01-02"
)

const (
	KEY_LOG_HOOK_SEND_ALERT = "send_alert"
)

// VersionedKey scopes key to one version of the price tables.
func VersionedKey(key string, version int64) string {
	return fmt.Sprintf("%s:%d", key, version)
}
