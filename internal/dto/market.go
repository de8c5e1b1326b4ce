package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agri-market/internal/model"
	"agri-market/pkg/utils"

	"github.com/google/uuid"
)

// Date marshals as YYYY-MM-DD.
type Date time.Time

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + utils.FormatDate(time.Time(d)) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	t, err := utils.ParseDate(value)
	if err != nil {
		return err
	}
	*d = Date(t)
	return nil
}

func (d Date) Time() time.Time {
	return time.Time(d)
}

type ReconciliationResult struct {
	RunID              uuid.UUID `json:"run_id"`
	ReportDate         Date      `json:"report_date"`
	CommoditiesSeen    int       `json:"commodities_seen"`
	CommoditiesCreated int       `json:"commodities_created"`
	CommoditiesUpdated int       `json:"commodities_updated"`
	HistoryRowsWritten int       `json:"history_rows_written"`
	MissingCommodities []string  `json:"missing_commodities"`
}

type CommodityTrend struct {
	Name             string   `json:"name"`
	Unit             string   `json:"unit"`
	TodayPrice       float64  `json:"today_price"`
	PreviousPrice    *float64 `json:"previous_price"`
	ChangePercentage float64  `json:"change_percentage"`
	Trend            Trend    `json:"trend"`
}

type TrendReport struct {
	LatestDate   Date             `json:"latest_date"`
	PreviousDate Date             `json:"previous_date"`
	MarketTrend  MarketTrend      `json:"market_trend"`
	UpCount      int              `json:"up_count"`
	DownCount    int              `json:"down_count"`
	Items        []CommodityTrend `json:"items"`
}

type PriceStats struct {
	TotalCommodities   int64            `json:"total_commodities"`
	ActiveCommodities  int64            `json:"active_commodities"`
	MissingCommodities int64            `json:"missing_commodities"`
	HistoryRows        int64            `json:"history_rows"`
	DistinctDates      int64            `json:"distinct_dates"`
	LatestDate         *Date            `json:"latest_date"`
	MarketTrend        *MarketTrend     `json:"market_trend,omitempty"`
	TopGainers         []CommodityTrend `json:"top_gainers"`
	TopLosers          []CommodityTrend `json:"top_losers"`
}

type PriceHistoryItem struct {
	Date          Date    `json:"date"`
	CommodityName string  `json:"commodity_name"`
	Unit          string  `json:"unit"`
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
	AvgPrice      float64 `json:"avg_price"`
}

func NewPriceHistoryItem(h model.DailyPriceHistory) PriceHistoryItem {
	item := PriceHistoryItem{
		Date:     Date(h.Date),
		MinPrice: h.MinPrice,
		MaxPrice: h.MaxPrice,
		AvgPrice: h.AvgPrice,
	}
	if h.Commodity != nil {
		item.CommodityName = h.Commodity.Name
		item.Unit = h.Commodity.Unit
	}
	return item
}

type CommodityPriceItem struct {
	ID              uint     `json:"id"`
	Name            string   `json:"name"`
	Unit            string   `json:"unit"`
	MinPrice        *float64 `json:"min_price"`
	MaxPrice        *float64 `json:"max_price"`
	AvgPrice        *float64 `json:"avg_price"`
	LastKnownPrice  *float64 `json:"last_known_price"`
	IsActive        bool     `json:"is_active"`
	FirstSeenDate   Date     `json:"first_seen_date"`
	LastUpdatedDate Date     `json:"last_updated_date"`
}

func NewCommodityPriceItem(c model.Commodity) CommodityPriceItem {
	return CommodityPriceItem{
		ID:              c.ID,
		Name:            c.Name,
		Unit:            c.Unit,
		MinPrice:        c.MinPrice,
		MaxPrice:        c.MaxPrice,
		AvgPrice:        c.AvgPrice,
		LastKnownPrice:  c.LastKnownPrice,
		IsActive:        c.IsActive(),
		FirstSeenDate:   Date(c.FirstSeenDate),
		LastUpdatedDate: Date(c.LastUpdatedDate),
	}
}

// GetLatestPricesRequest holds the query string of the latest prices list.
type GetLatestPricesRequest struct {
	Pagination
	Query       string `query:"q" validate:"omitempty,max=150"`
	MinPriceGTE string `query:"min_price_gte" validate:"omitempty,numeric"`
	MinPriceLTE string `query:"min_price_lte" validate:"omitempty,numeric"`
	OnlyActive  bool   `query:"only_active"`
	Ordering    string `query:"ordering" validate:"omitempty,oneof=name -name avg_price -avg_price last_known_price -last_known_price last_updated_date -last_updated_date"`
}

// GetPriceHistoryRequest holds the query string of the history list and export.
type GetPriceHistoryRequest struct {
	Pagination
	Query    string `query:"q" validate:"omitempty,max=150"`
	From     string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Ordering string `query:"ordering" validate:"omitempty,oneof=date -date name -name avg_price -avg_price min_price -min_price max_price -max_price"`
}

type GetCommodityHistoryRequest struct {
	Name  string `param:"name" validate:"required,max=150"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=365"`
}

// ToParam converts a validated request into repository filters.
func (r GetLatestPricesRequest) ToParam() (model.GetCommodityParam, error) {
	param := model.GetCommodityParam{
		Search:     strings.TrimSpace(r.Query),
		OnlyActive: r.OnlyActive,
		OrderBy:    "name",
		Limit:      r.PageSize,
		Offset:     r.Offset(),
	}
	if r.Ordering != "" {
		param.OrderBy = strings.TrimPrefix(r.Ordering, "-")
		param.OrderDesc = strings.HasPrefix(r.Ordering, "-")
	}

	var err error
	if param.LastPriceGTE, err = parseOptionalFloat(r.MinPriceGTE); err != nil {
		return param, fmt.Errorf("%w: min_price_gte: %v", ErrInvalidParam, err)
	}
	if param.LastPriceLTE, err = parseOptionalFloat(r.MinPriceLTE); err != nil {
		return param, fmt.Errorf("%w: min_price_lte: %v", ErrInvalidParam, err)
	}
	return param, nil
}

// ToParam converts a validated request into repository filters.
func (r GetPriceHistoryRequest) ToParam() (model.GetPriceHistoryParam, error) {
	param := model.GetPriceHistoryParam{
		Search:    strings.TrimSpace(r.Query),
		OrderBy:   "date",
		OrderDesc: true,
		Limit:     r.PageSize,
		Offset:    r.Offset(),
	}
	if r.Ordering != "" {
		param.OrderBy = strings.TrimPrefix(r.Ordering, "-")
		param.OrderDesc = strings.HasPrefix(r.Ordering, "-")
	}
	if r.From != "" {
		from, err := utils.ParseDate(r.From)
		if err != nil {
			return param, fmt.Errorf("%w: from: %v", ErrInvalidParam, err)
		}
		param.From = &from
	}
	if r.To != "" {
		to, err := utils.ParseDate(r.To)
		if err != nil {
			return param, fmt.Errorf("%w: to: %v", ErrInvalidParam, err)
		}
		param.To = &to
	}
	if param.From != nil && param.To != nil && param.From.After(*param.To) {
		return param, fmt.Errorf("%w: from must not be after to", ErrInvalidParam)
	}
	return param, nil
}

func parseOptionalFloat(value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
