package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"agri-market/internal/dto"
	"agri-market/internal/model"
	"agri-market/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommodityRepository interface {
	Upsert(ctx context.Context, commodity *model.Commodity, opts ...utils.DBOption) error
	ListNames(ctx context.Context, opts ...utils.DBOption) ([]string, error)
	ClearPricesExcept(ctx context.Context, seen []string, date time.Time, opts ...utils.DBOption) ([]string, error)
	Find(ctx context.Context, param *model.GetCommodityParam, opts ...utils.DBOption) ([]model.Commodity, int64, error)
	FindByName(ctx context.Context, name string, opts ...utils.DBOption) (*model.Commodity, error)
	Summary(ctx context.Context, opts ...utils.DBOption) (*model.CommoditySummary, error)
	DataVersion(ctx context.Context, opts ...utils.DBOption) (int64, error)
}

type commodityRepository struct {
	db *gorm.DB
}

func NewCommodityRepository(db *gorm.DB) CommodityRepository {
	return &commodityRepository{db: db}
}

var commodityOrderColumns = map[string]string{
	"name":              "name",
	"avg_price":         "avg_price",
	"last_known_price":  "last_known_price",
	"last_updated_date": "last_updated_date",
}

// Upsert inserts the commodity or, when the name exists, overwrites its
// prices, unit and last_updated_date. first_seen_date and created_at keep
// their original values. commodity.ID is set to the stored row's id.
func (r *commodityRepository) Upsert(ctx context.Context, commodity *model.Commodity, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"unit",
				"min_price",
				"max_price",
				"avg_price",
				"last_known_price",
				"last_updated_date",
				"updated_at",
			}),
		}).
		Create(commodity).Error
}

func (r *commodityRepository) ListNames(ctx context.Context, opts ...utils.DBOption) ([]string, error) {
	var names []string
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Commodity{}).
		Order("name").
		Pluck("name", &names).Error
	return names, err
}

// ClearPricesExcept nulls min, max and avg price of every commodity whose name
// is not in seen and returns the affected names. last_known_price is left as is.
func (r *commodityRepository) ClearPricesExcept(ctx context.Context, seen []string, date time.Time, opts ...utils.DBOption) ([]string, error) {
	var cleared []model.Commodity
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&cleared).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "name"}}})
	if len(seen) > 0 {
		db = db.Where("name NOT IN ?", seen)
	} else {
		db = db.Where("1 = 1")
	}

	err := db.Updates(map[string]interface{}{
		"min_price":         nil,
		"max_price":         nil,
		"avg_price":         nil,
		"last_updated_date": date,
		"updated_at":        time.Now(),
	}).Error
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cleared))
	for _, c := range cleared {
		names = append(names, c.Name)
	}
	return names, nil
}

func (r *commodityRepository) Find(ctx context.Context, param *model.GetCommodityParam, opts ...utils.DBOption) ([]model.Commodity, int64, error) {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Model(&model.Commodity{})
	if param.Search != "" {
		like := utils.ContainsPattern(param.Search)
		db = db.Where("name ILIKE ? OR unit ILIKE ?", like, like)
	}
	if param.LastPriceGTE != nil {
		db = db.Where("last_known_price >= ?", *param.LastPriceGTE)
	}
	if param.LastPriceLTE != nil {
		db = db.Where("last_known_price <= ?", *param.LastPriceLTE)
	}
	if param.OnlyActive {
		db = db.Where("avg_price IS NOT NULL")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := commodityOrderColumns[param.OrderBy]
	if !ok {
		column = "name"
	}
	db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: param.OrderDesc})
	if column != "name" {
		db = db.Order("name")
	}
	if param.Limit > 0 {
		db = db.Limit(param.Limit)
	}
	if param.Offset > 0 {
		db = db.Offset(param.Offset)
	}

	var commodities []model.Commodity
	if err := db.Find(&commodities).Error; err != nil {
		return nil, 0, err
	}
	return commodities, total, nil
}

func (r *commodityRepository) FindByName(ctx context.Context, name string, opts ...utils.DBOption) (*model.Commodity, error) {
	var commodity model.Commodity
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("name = ?", name).
		First(&commodity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dto.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &commodity, nil
}

func (r *commodityRepository) Summary(ctx context.Context, opts ...utils.DBOption) (*model.CommoditySummary, error) {
	var summary model.CommoditySummary
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Commodity{}).
		Select("COUNT(*) AS total, COUNT(avg_price) AS active").
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// DataVersion returns the newest updated_at of the table in unix microseconds,
// or 0 when it is empty. A reconciliation rewrites every row, so the value
// changes with each committed run whichever process performed it.
func (r *commodityRepository) DataVersion(ctx context.Context, opts ...utils.DBOption) (int64, error) {
	var latest sql.NullTime
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Commodity{}).
		Select("MAX(updated_at)").
		Scan(&latest).Error
	if err != nil {
		return 0, err
	}
	if !latest.Valid {
		return 0, nil
	}
	return latest.Time.UnixMicro(), nil
}
