package service

import (
	"context"
	"fmt"

	"agri-market/config"
	"agri-market/internal/dto"
	"agri-market/internal/model"
	"agri-market/internal/repository"
	"agri-market/pkg/logger"
)

type MarketQueryService interface {
	ListLatestPrices(ctx context.Context, req dto.GetLatestPricesRequest) (*dto.PageResult[dto.CommodityPriceItem], error)
	ListHistory(ctx context.Context, req dto.GetPriceHistoryRequest) (*dto.PageResult[dto.PriceHistoryItem], error)
	GetCommodityHistory(ctx context.Context, req dto.GetCommodityHistoryRequest) ([]dto.PriceHistoryItem, error)
	ExportHistory(ctx context.Context, req dto.GetPriceHistoryRequest) ([]byte, error)
}

type marketQueryService struct {
	cfg              *config.Config
	log              *logger.Logger
	commodityRepo    repository.CommodityRepository
	priceHistoryRepo repository.PriceHistoryRepository
}

func NewMarketQueryService(
	cfg *config.Config,
	log *logger.Logger,
	commodityRepo repository.CommodityRepository,
	priceHistoryRepo repository.PriceHistoryRepository,
) MarketQueryService {
	return &marketQueryService{
		cfg:              cfg,
		log:              log,
		commodityRepo:    commodityRepo,
		priceHistoryRepo: priceHistoryRepo,
	}
}

func (s *marketQueryService) ListLatestPrices(ctx context.Context, req dto.GetLatestPricesRequest) (*dto.PageResult[dto.CommodityPriceItem], error) {
	req.Normalize(s.cfg.API.DefaultPageSize)
	param, err := req.ToParam()
	if err != nil {
		return nil, err
	}

	commodities, total, err := s.commodityRepo.Find(ctx, &param)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list commodities", logger.ErrorField(err))
		return nil, fmt.Errorf("list commodities: %w", err)
	}

	items := make([]dto.CommodityPriceItem, 0, len(commodities))
	for _, c := range commodities {
		items = append(items, dto.NewCommodityPriceItem(c))
	}
	result := dto.NewPageResult(items, total, req.Pagination)
	return &result, nil
}

func (s *marketQueryService) ListHistory(ctx context.Context, req dto.GetPriceHistoryRequest) (*dto.PageResult[dto.PriceHistoryItem], error) {
	req.Normalize(s.cfg.API.DefaultPageSize)
	param, err := req.ToParam()
	if err != nil {
		return nil, err
	}

	histories, total, err := s.priceHistoryRepo.Find(ctx, &param)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list price history", logger.ErrorField(err))
		return nil, fmt.Errorf("list price history: %w", err)
	}

	result := dto.NewPageResult(toHistoryItems(histories), total, req.Pagination)
	return &result, nil
}

// GetCommodityHistory returns the newest history rows of one commodity.
// dto.ErrNotFound is returned for an unknown name.
func (s *marketQueryService) GetCommodityHistory(ctx context.Context, req dto.GetCommodityHistoryRequest) ([]dto.PriceHistoryItem, error) {
	if _, err := s.commodityRepo.FindByName(ctx, req.Name); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.API.HistoryLimitByDay
	}
	histories, _, err := s.priceHistoryRepo.Find(ctx, &model.GetPriceHistoryParam{
		CommodityName: req.Name,
		OrderBy:       "date",
		OrderDesc:     true,
		Limit:         limit,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load commodity history", logger.ErrorField(err), logger.StringField("name", req.Name))
		return nil, fmt.Errorf("load commodity history: %w", err)
	}
	return toHistoryItems(histories), nil
}

func toHistoryItems(histories []model.DailyPriceHistory) []dto.PriceHistoryItem {
	items := make([]dto.PriceHistoryItem, 0, len(histories))
	for _, h := range histories {
		items = append(items, dto.NewPriceHistoryItem(h))
	}
	return items
}
