package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"agri-market/config"
	"agri-market/internal/dto"
	"agri-market/internal/model"
	"agri-market/internal/repository"
	"agri-market/pkg/cache"
	"agri-market/pkg/common"
	"agri-market/pkg/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// MarketAnalysisService caches its results under the current data version, so
// a committed reconciliation from any process retires them.
type MarketAnalysisService interface {
	// AnalyzeTrends compares the two newest distinct history dates.
	AnalyzeTrends(ctx context.Context) (*dto.TrendReport, error)
	GetStats(ctx context.Context) (*dto.PriceStats, error)
}

type marketAnalysisService struct {
	cfg              *config.Config
	log              *logger.Logger
	cache            cache.Cache
	commodityRepo    repository.CommodityRepository
	priceHistoryRepo repository.PriceHistoryRepository
}

func NewMarketAnalysisService(
	cfg *config.Config,
	log *logger.Logger,
	cache cache.Cache,
	commodityRepo repository.CommodityRepository,
	priceHistoryRepo repository.PriceHistoryRepository,
) MarketAnalysisService {
	return &marketAnalysisService{
		cfg:              cfg,
		log:              log,
		cache:            cache,
		commodityRepo:    commodityRepo,
		priceHistoryRepo: priceHistoryRepo,
	}
}

func (s *marketAnalysisService) cacheKey(ctx context.Context, key string) (string, error) {
	version, err := s.commodityRepo.DataVersion(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load market data version", logger.ErrorField(err))
		return "", fmt.Errorf("load market data version: %w", err)
	}
	return common.VersionedKey(key, version), nil
}

func (s *marketAnalysisService) AnalyzeTrends(ctx context.Context) (*dto.TrendReport, error) {
	key, err := s.cacheKey(ctx, common.KEY_MARKET_TREND_REPORT)
	if err != nil {
		return nil, err
	}
	if report, found := cache.GetFromCache[dto.TrendReport](ctx, s.cache, key); found {
		return &report, nil
	}

	dates, err := s.priceHistoryRepo.LatestDates(ctx, 2)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load history dates", logger.ErrorField(err))
		return nil, fmt.Errorf("load history dates: %w", err)
	}
	if len(dates) < 2 {
		s.log.InfoContext(ctx, "Not enough price history for trend analysis", logger.IntField("distinct_dates", len(dates)))
		return nil, &dto.InsufficientHistoryError{DistinctDates: len(dates)}
	}

	var latest, previous []model.DailyPriceHistory
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.priceHistoryRepo.FindByDate(gctx, dates[0])
		if err != nil {
			return fmt.Errorf("load latest history: %w", err)
		}
		latest = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.priceHistoryRepo.FindByDate(gctx, dates[1])
		if err != nil {
			return fmt.Errorf("load previous history: %w", err)
		}
		previous = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.ErrorContext(ctx, "Failed to load price history", logger.ErrorField(err))
		return nil, err
	}

	report := BuildTrendReport(dates[0], dates[1], latest, previous)
	if err := s.cache.Set(ctx, key, report, s.cfg.Cache.DefaultExpiration); err != nil {
		s.log.WarnContext(ctx, "Failed to cache trend report", logger.ErrorField(err))
	}
	return report, nil
}

// BuildTrendReport classifies every commodity present at latestDate against
// its average price at previousDate. Items are ordered by name.
func BuildTrendReport(latestDate, previousDate time.Time, latest, previous []model.DailyPriceHistory) *dto.TrendReport {
	previousAvg := make(map[uint]float64, len(previous))
	for _, row := range previous {
		previousAvg[row.CommodityID] = row.AvgPrice
	}

	report := &dto.TrendReport{
		LatestDate:   dto.Date(latestDate),
		PreviousDate: dto.Date(previousDate),
		Items:        make([]dto.CommodityTrend, 0, len(latest)),
	}
	for _, row := range latest {
		item := dto.CommodityTrend{
			TodayPrice: row.AvgPrice,
			Trend:      dto.TrendUnknown,
		}
		if row.Commodity != nil {
			item.Name = row.Commodity.Name
			item.Unit = row.Commodity.Unit
		}

		if prev, ok := previousAvg[row.CommodityID]; ok {
			item.PreviousPrice = &prev
			item.ChangePercentage, item.Trend = classifyChange(row.AvgPrice, prev)
		}

		switch item.Trend {
		case dto.TrendUp:
			report.UpCount++
		case dto.TrendDown:
			report.DownCount++
		}
		report.Items = append(report.Items, item)
	}
	sort.SliceStable(report.Items, func(i, j int) bool { return report.Items[i].Name < report.Items[j].Name })

	report.MarketTrend = marketTrend(report.UpCount, report.DownCount)
	return report
}

// classifyChange returns the percentage change rounded to two decimals and its
// direction. A zero previous price has no meaningful change.
func classifyChange(today, previous float64) (float64, dto.Trend) {
	prev := decimal.NewFromFloat(previous)
	if prev.IsZero() {
		return 0, dto.TrendUnknown
	}

	pct := decimal.NewFromFloat(today).Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
	change := pct.InexactFloat64()
	switch pct.Sign() {
	case 1:
		return change, dto.TrendUp
	case -1:
		return change, dto.TrendDown
	default:
		return 0, dto.TrendSame
	}
}

func marketTrend(up, down int) dto.MarketTrend {
	switch {
	case up > down:
		return dto.MarketBullish
	case down > up:
		return dto.MarketBearish
	default:
		return dto.MarketNeutral
	}
}

func (s *marketAnalysisService) GetStats(ctx context.Context) (*dto.PriceStats, error) {
	key, err := s.cacheKey(ctx, common.KEY_MARKET_PRICE_STATS)
	if err != nil {
		return nil, err
	}
	if stats, found := cache.GetFromCache[dto.PriceStats](ctx, s.cache, key); found {
		return &stats, nil
	}

	var (
		commodities *model.CommoditySummary
		history     *model.PriceHistorySummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if commodities, err = s.commodityRepo.Summary(gctx); err != nil {
			return fmt.Errorf("summarize commodities: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if history, err = s.priceHistoryRepo.Summary(gctx); err != nil {
			return fmt.Errorf("summarize price history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.ErrorContext(ctx, "Failed to summarize market data", logger.ErrorField(err))
		return nil, err
	}

	stats := &dto.PriceStats{
		TotalCommodities:   commodities.Total,
		ActiveCommodities:  commodities.Active,
		MissingCommodities: commodities.Total - commodities.Active,
		HistoryRows:        history.RowCount,
		DistinctDates:      history.DistinctDates,
		TopGainers:         []dto.CommodityTrend{},
		TopLosers:          []dto.CommodityTrend{},
	}
	if history.LatestDate.Valid {
		latest := dto.Date(history.LatestDate.Time)
		stats.LatestDate = &latest
	}

	report, err := s.AnalyzeTrends(ctx)
	var insufficient *dto.InsufficientHistoryError
	switch {
	case err == nil:
		stats.MarketTrend = &report.MarketTrend
		stats.TopGainers, stats.TopLosers = topMovers(report.Items, s.cfg.Market.TopMover)
	case errors.As(err, &insufficient):
	default:
		return nil, err
	}

	if err := s.cache.Set(ctx, key, stats, s.cfg.Cache.DefaultExpiration); err != nil {
		s.log.WarnContext(ctx, "Failed to cache price stats", logger.ErrorField(err))
	}
	return stats, nil
}

// topMovers picks up to n rising and n falling commodities by change size.
func topMovers(items []dto.CommodityTrend, n int) (gainers, losers []dto.CommodityTrend) {
	gainers = []dto.CommodityTrend{}
	losers = []dto.CommodityTrend{}
	for _, item := range items {
		switch item.Trend {
		case dto.TrendUp:
			gainers = append(gainers, item)
		case dto.TrendDown:
			losers = append(losers, item)
		}
	}
	sort.SliceStable(gainers, func(i, j int) bool { return gainers[i].ChangePercentage > gainers[j].ChangePercentage })
	sort.SliceStable(losers, func(i, j int) bool { return losers[i].ChangePercentage < losers[j].ChangePercentage })
	if n >= 0 && len(gainers) > n {
		gainers = gainers[:n]
	}
	if n >= 0 && len(losers) > n {
		losers = losers[:n]
	}
	return gainers, losers
}
