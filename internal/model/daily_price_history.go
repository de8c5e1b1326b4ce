package model

import (
	"database/sql"
	"time"
)

// DailyPriceHistory holds one commodity's prices for one report date.
type DailyPriceHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CommodityID uint      `gorm:"not null;uniqueIndex:idx_daily_price_histories_commodity_date" json:"commodity_id"`
	Date        time.Time `gorm:"type:date;not null;uniqueIndex:idx_daily_price_histories_commodity_date;index" json:"date"`
	MinPrice    float64   `gorm:"not null" json:"min_price"`
	MaxPrice    float64   `gorm:"not null" json:"max_price"`
	AvgPrice    float64   `gorm:"not null" json:"avg_price"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Commodity *Commodity `gorm:"foreignKey:CommodityID;references:ID;constraint:OnDelete:CASCADE" json:"commodity,omitempty"`
}

func (DailyPriceHistory) TableName() string {
	return "daily_price_histories"
}

type GetPriceHistoryParam struct {
	CommodityName string
	Search        string
	From          *time.Time
	To            *time.Time
	OrderBy       string
	OrderDesc     bool
	Limit         int
	Offset        int
}

type PriceHistorySummary struct {
	RowCount      int64
	DistinctDates int64
	LatestDate    sql.NullTime
}
