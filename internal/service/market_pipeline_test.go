package service

import (
	"context"
	"testing"
	"time"

	"agri-market/config"
	"agri-market/internal/dto"
	"agri-market/internal/repository"
	"agri-market/internal/testutil"
	"agri-market/pkg/cache"
	"agri-market/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMarketPipeline_Postgres(t *testing.T) {
	db := testutil.SetupPostgres(t)
	ctx := context.Background()

	cfg := &config.Config{
		Cache:      config.Cache{DefaultExpiration: time.Minute, CleanupInterval: time.Minute},
		API:        config.API{DefaultPageSize: 20, MaxExportRows: 100, HistoryLimitByDay: 30},
		Market:     config.Market{TopMover: 3},
		Scheduler:  config.Scheduler{MaxConcurrency: 1, TimeoutDuration: time.Minute},
		MarketFeed: config.MarketFeed{MaxRequestPerMin: 60},
	}
	log := logger.NewNop()
	repo := repository.NewRepository(cfg, db, log)
	feed := new(MockMarketFeedRepository)
	repo.MarketFeedRepo = feed
	svc := NewService(cfg, log, repo, cache.NewCache(time.Minute, time.Minute))

	feed.On("FetchDailyPrices", mock.Anything).
		Return(feedPayload(t, "2024-01-01", feedItem{"Rice", 50}, feedItem{"Onion", 80}), nil).Once()
	feed.On("FetchDailyPrices", mock.Anything).
		Return(feedPayload(t, "2024-01-02", feedItem{"Rice", 55}, feedItem{"Tomato", 30}), nil).Twice()

	first, err := svc.MarketPriceService.Ingest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.CommoditiesCreated)
	assert.Equal(t, 2, first.HistoryRowsWritten)

	_, err = svc.MarketAnalysisService.AnalyzeTrends(ctx)
	var insufficient *dto.InsufficientHistoryError
	require.ErrorAs(t, err, &insufficient)

	second, err := svc.MarketPriceService.Ingest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.CommoditiesCreated)
	assert.Equal(t, 1, second.CommoditiesUpdated)
	assert.Equal(t, []string{"Onion"}, second.MissingCommodities)

	onion, err := repo.CommodityRepo.FindByName(ctx, "Onion")
	require.NoError(t, err)
	assert.Nil(t, onion.AvgPrice)
	require.NotNil(t, onion.LastKnownPrice)
	assert.Equal(t, 80.0, *onion.LastKnownPrice)

	report, err := svc.MarketAnalysisService.AnalyzeTrends(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", time.Time(report.LatestDate).Format("2006-01-02"))
	assert.Equal(t, "2024-01-01", time.Time(report.PreviousDate).Format("2006-01-02"))
	assert.Equal(t, dto.MarketBullish, report.MarketTrend)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "Rice", report.Items[0].Name)
	assert.Equal(t, dto.TrendUp, report.Items[0].Trend)
	assert.Equal(t, 10.0, report.Items[0].ChangePercentage)
	assert.Equal(t, "Tomato", report.Items[1].Name)
	assert.Nil(t, report.Items[1].PreviousPrice)
	assert.Equal(t, dto.TrendUnknown, report.Items[1].Trend)

	// same feed again changes nothing
	again, err := svc.MarketPriceService.Ingest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.CommoditiesCreated)
	assert.Equal(t, []string{"Onion"}, again.MissingCommodities)

	history, err := svc.MarketQueryService.ListHistory(ctx, dto.GetPriceHistoryRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), history.Total)

	stats, err := svc.MarketAnalysisService.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalCommodities)
	assert.Equal(t, int64(2), stats.ActiveCommodities)
	assert.Equal(t, int64(1), stats.MissingCommodities)
	assert.Equal(t, int64(2), stats.DistinctDates)

	feed.AssertExpectations(t)
}
