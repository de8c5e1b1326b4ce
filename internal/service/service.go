package service

import (
	"agri-market/config"
	"agri-market/internal/repository"
	"agri-market/internal/strategy"
	"agri-market/pkg/cache"
	"agri-market/pkg/logger"
)

type Service struct {
	MarketPriceService    MarketPriceService
	MarketAnalysisService MarketAnalysisService
	MarketQueryService    MarketQueryService
	SchedulerService      SchedulerService
	TaskExecutor          TaskExecutor
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	appCache cache.Cache,
) *Service {
	marketPriceService := NewMarketPriceService(cfg, log, repo.MarketFeedRepo, repo.CommodityRepo, repo.PriceHistoryRepo, repo.UnitOfWork)

	executorStrategies := make(map[strategy.JobType]strategy.JobExecutionStrategy)
	executorStrategies[strategy.JobTypeMarketPriceIngestion] = strategy.NewMarketPriceIngestionStrategy(log, marketPriceService)
	executorStrategies[strategy.JobTypeDataCleanUp] = strategy.NewDataCleanUpStrategy(cfg, log, repo.JobRepo)

	taskExecutor := NewTaskExecutor(cfg, log, repo.JobRepo, executorStrategies)

	return &Service{
		MarketPriceService:    marketPriceService,
		MarketAnalysisService: NewMarketAnalysisService(cfg, log, appCache, repo.CommodityRepo, repo.PriceHistoryRepo),
		MarketQueryService:    NewMarketQueryService(cfg, log, repo.CommodityRepo, repo.PriceHistoryRepo),
		SchedulerService:      NewSchedulerService(cfg, log, repo.JobRepo, taskExecutor),
		TaskExecutor:          taskExecutor,
	}
}
