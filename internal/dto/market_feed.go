package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"agri-market/pkg/utils"

	"github.com/shopspring/decimal"
)

// MarketFeedPayload is the raw body of the daily price feed. Pointer fields
// distinguish a missing key from an empty value.
type MarketFeedPayload struct {
	Date   *string            `json:"date"`
	Prices *[]MarketFeedPrice `json:"prices"`
}

type MarketFeedPrice struct {
	CommodityName string          `json:"commodityname"`
	CommodityUnit string          `json:"commodityunit"`
	MinPrice      json.RawMessage `json:"minprice"`
	MaxPrice      json.RawMessage `json:"maxprice"`
	AvgPrice      json.RawMessage `json:"avgprice"`
}

// MarketSnapshot is a validated feed: one entry per commodity name for a
// single report date.
type MarketSnapshot struct {
	ReportDate time.Time
	Entries    []MarketEntry
}

type MarketEntry struct {
	Name     string
	Unit     string
	MinPrice float64
	MaxPrice float64
	AvgPrice float64
}

// DecodeMarketFeed decodes a raw feed body without validating its content.
func DecodeMarketFeed(body []byte) (*MarketFeedPayload, error) {
	var payload MarketFeedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FeedFormatError{Reason: "body is not a valid price document", Err: err}
	}
	return &payload, nil
}

// ParseMarketFeed decodes and validates a raw feed body.
func ParseMarketFeed(body []byte) (*MarketSnapshot, error) {
	payload, err := DecodeMarketFeed(body)
	if err != nil {
		return nil, err
	}
	return payload.ToSnapshot()
}

// ToSnapshot validates the payload and coerces every price to a number.
// Entries repeating a name replace the earlier one; the result is sorted by
// name.
func (p *MarketFeedPayload) ToSnapshot() (*MarketSnapshot, error) {
	if p.Date == nil || strings.TrimSpace(*p.Date) == "" {
		return nil, &FeedFormatError{Field: "date", Reason: "missing"}
	}
	reportDate, err := utils.ParseDate(*p.Date)
	if err != nil {
		return nil, &FeedFormatError{Field: "date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", *p.Date), Err: err}
	}
	if p.Prices == nil {
		return nil, &FeedFormatError{Field: "prices", Reason: "missing"}
	}
	if len(*p.Prices) == 0 {
		return nil, &FeedFormatError{Field: "prices", Reason: "empty"}
	}

	byName := make(map[string]MarketEntry, len(*p.Prices))
	for i, item := range *p.Prices {
		entry, err := item.toEntry(i)
		if err != nil {
			return nil, err
		}
		byName[entry.Name] = entry
	}

	entries := make([]MarketEntry, 0, len(byName))
	for _, entry := range byName {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return &MarketSnapshot{ReportDate: reportDate, Entries: entries}, nil
}

func (m MarketFeedPrice) toEntry(idx int) (MarketEntry, error) {
	name := strings.TrimSpace(m.CommodityName)
	if name == "" {
		return MarketEntry{}, &FeedFormatError{Field: fmt.Sprintf("prices[%d].commodityname", idx), Reason: "missing"}
	}

	minPrice, err := parsePrice(m.MinPrice, idx, "minprice")
	if err != nil {
		return MarketEntry{}, err
	}
	maxPrice, err := parsePrice(m.MaxPrice, idx, "maxprice")
	if err != nil {
		return MarketEntry{}, err
	}
	avgPrice, err := parsePrice(m.AvgPrice, idx, "avgprice")
	if err != nil {
		return MarketEntry{}, err
	}

	return MarketEntry{
		Name:     name,
		Unit:     strings.TrimSpace(m.CommodityUnit),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		AvgPrice: avgPrice,
	}, nil
}

// parsePrice accepts a JSON number or a string holding a number.
func parsePrice(raw json.RawMessage, idx int, key string) (float64, error) {
	field := fmt.Sprintf("prices[%d].%s", idx, key)
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, &FeedFormatError{Field: field, Reason: "missing"}
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, &FeedFormatError{Field: field, Reason: "malformed string", Err: err}
		}
		text = strings.TrimSpace(text)
	}

	value, err := decimal.NewFromString(text)
	if err != nil {
		return 0, &FeedFormatError{Field: field, Reason: fmt.Sprintf("%q is not numeric", text), Err: err}
	}
	if value.IsNegative() {
		return 0, &FeedFormatError{Field: field, Reason: "negative price"}
	}
	return value.InexactFloat64(), nil
}
