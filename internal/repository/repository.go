package repository

import (
	"agri-market/config"
	"agri-market/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	JobRepo          JobRepository
	CommodityRepo    CommodityRepository
	PriceHistoryRepo PriceHistoryRepository
	MarketFeedRepo   MarketFeedRepository
	UnitOfWork       UnitOfWork
}

func NewRepository(cfg *config.Config, db *gorm.DB, log *logger.Logger) *Repository {
	return &Repository{
		JobRepo:          NewJobRepository(db),
		CommodityRepo:    NewCommodityRepository(db),
		PriceHistoryRepo: NewPriceHistoryRepository(db),
		MarketFeedRepo:   NewMarketFeedRepository(cfg, log),
		UnitOfWork:       NewUnitOfWork(db),
	}
}
