package repository

import (
	"context"
	"time"

	"agri-market/internal/model"
	"agri-market/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PriceHistoryRepository interface {
	Upsert(ctx context.Context, history *model.DailyPriceHistory, opts ...utils.DBOption) error
	LatestDates(ctx context.Context, limit int, opts ...utils.DBOption) ([]time.Time, error)
	FindByDate(ctx context.Context, date time.Time, opts ...utils.DBOption) ([]model.DailyPriceHistory, error)
	Find(ctx context.Context, param *model.GetPriceHistoryParam, opts ...utils.DBOption) ([]model.DailyPriceHistory, int64, error)
	Summary(ctx context.Context, opts ...utils.DBOption) (*model.PriceHistorySummary, error)
}

type priceHistoryRepository struct {
	db *gorm.DB
}

func NewPriceHistoryRepository(db *gorm.DB) PriceHistoryRepository {
	return &priceHistoryRepository{db: db}
}

var historyOrderColumns = map[string]clause.Column{
	"date":      {Table: "daily_price_histories", Name: "date"},
	"name":      {Table: "commodities", Name: "name"},
	"min_price": {Table: "daily_price_histories", Name: "min_price"},
	"max_price": {Table: "daily_price_histories", Name: "max_price"},
	"avg_price": {Table: "daily_price_histories", Name: "avg_price"},
}

// Upsert writes the row for (commodity_id, date), overwriting prices when it
// already exists.
func (r *priceHistoryRepository) Upsert(ctx context.Context, history *model.DailyPriceHistory, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "commodity_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"min_price", "max_price", "avg_price", "updated_at"}),
		}).
		Create(history).Error
}

// LatestDates returns up to limit distinct history dates, newest first.
func (r *priceHistoryRepository) LatestDates(ctx context.Context, limit int, opts ...utils.DBOption) ([]time.Time, error) {
	var dates []time.Time
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.DailyPriceHistory{}).
		Distinct("date").
		Order("date DESC").
		Limit(limit).
		Pluck("date", &dates).Error
	if err != nil {
		return nil, err
	}
	for i := range dates {
		dates[i] = utils.DateOf(dates[i])
	}
	return dates, nil
}

func (r *priceHistoryRepository) FindByDate(ctx context.Context, date time.Time, opts ...utils.DBOption) ([]model.DailyPriceHistory, error) {
	var histories []model.DailyPriceHistory
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Preload("Commodity").
		Where("date = ?", date).
		Order("commodity_id").
		Find(&histories).Error
	return histories, err
}

func (r *priceHistoryRepository) Find(ctx context.Context, param *model.GetPriceHistoryParam, opts ...utils.DBOption) ([]model.DailyPriceHistory, int64, error) {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.DailyPriceHistory{}).
		Joins("JOIN commodities ON commodities.id = daily_price_histories.commodity_id")
	if param.CommodityName != "" {
		db = db.Where("commodities.name = ?", param.CommodityName)
	}
	if param.Search != "" {
		db = db.Where("commodities.name ILIKE ?", utils.ContainsPattern(param.Search))
	}
	if param.From != nil {
		db = db.Where("daily_price_histories.date >= ?", *param.From)
	}
	if param.To != nil {
		db = db.Where("daily_price_histories.date <= ?", *param.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := param.OrderBy
	if _, ok := historyOrderColumns[orderBy]; !ok {
		orderBy = "date"
	}
	db = db.Order(clause.OrderByColumn{Column: historyOrderColumns[orderBy], Desc: param.OrderDesc})
	if orderBy != "date" {
		db = db.Order("daily_price_histories.date DESC")
	}
	if orderBy != "name" {
		db = db.Order("commodities.name")
	}
	if param.Limit > 0 {
		db = db.Limit(param.Limit)
	}
	if param.Offset > 0 {
		db = db.Offset(param.Offset)
	}

	var histories []model.DailyPriceHistory
	if err := db.Select("daily_price_histories.*").Preload("Commodity").Find(&histories).Error; err != nil {
		return nil, 0, err
	}
	return histories, total, nil
}

func (r *priceHistoryRepository) Summary(ctx context.Context, opts ...utils.DBOption) (*model.PriceHistorySummary, error) {
	var summary model.PriceHistorySummary
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.DailyPriceHistory{}).
		Select("COUNT(*) AS row_count, COUNT(DISTINCT date) AS distinct_dates, MAX(date) AS latest_date").
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
