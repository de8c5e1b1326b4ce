package model

import "time"

// Commodity is the current snapshot of one commodity. MinPrice, MaxPrice and
// AvgPrice are nil when the commodity was missing from the latest ingestion;
// LastKnownPrice is never cleared once set.
type Commodity struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"name"`
	Unit            string    `gorm:"type:varchar(50);not null;default:''" json:"unit"`
	MinPrice        *float64  `json:"min_price"`
	MaxPrice        *float64  `json:"max_price"`
	AvgPrice        *float64  `json:"avg_price"`
	LastKnownPrice  *float64  `json:"last_known_price"`
	FirstSeenDate   time.Time `gorm:"type:date;not null" json:"first_seen_date"`
	LastUpdatedDate time.Time `gorm:"type:date;not null" json:"last_updated_date"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Commodity) TableName() string {
	return "commodities"
}

// IsActive reports whether the commodity was present in the latest ingestion.
func (c Commodity) IsActive() bool {
	return c.AvgPrice != nil
}

type GetCommodityParam struct {
	Search       string
	LastPriceGTE *float64
	LastPriceLTE *float64
	OnlyActive   bool
	OrderBy      string
	OrderDesc    bool
	Limit        int
	Offset       int
}

type CommoditySummary struct {
	Total  int64
	Active int64
}
