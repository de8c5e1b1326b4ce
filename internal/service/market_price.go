package service

import (
	"context"
	"fmt"
	"sort"

	"agri-market/config"
	"agri-market/internal/dto"
	"agri-market/internal/model"
	"agri-market/internal/repository"
	"agri-market/pkg/logger"
	"agri-market/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const ingestFlightKey = "market_price_ingestion"

// MarketPriceService keeps the commodity snapshot and daily history tables in
// line with the upstream feed.
type MarketPriceService interface {
	// Ingest fetches the current feed and reconciles it. Concurrent calls
	// share one run.
	Ingest(ctx context.Context) (*dto.ReconciliationResult, error)
	// Reconcile validates payload and applies it in a single transaction.
	Reconcile(ctx context.Context, payload *dto.MarketFeedPayload) (*dto.ReconciliationResult, error)
}

type marketPriceService struct {
	cfg              *config.Config
	log              *logger.Logger
	feedRepo         repository.MarketFeedRepository
	commodityRepo    repository.CommodityRepository
	priceHistoryRepo repository.PriceHistoryRepository
	uow              repository.UnitOfWork
	flight           singleflight.Group
}

func NewMarketPriceService(
	cfg *config.Config,
	log *logger.Logger,
	feedRepo repository.MarketFeedRepository,
	commodityRepo repository.CommodityRepository,
	priceHistoryRepo repository.PriceHistoryRepository,
	uow repository.UnitOfWork,
) MarketPriceService {
	return &marketPriceService{
		cfg:              cfg,
		log:              log,
		feedRepo:         feedRepo,
		commodityRepo:    commodityRepo,
		priceHistoryRepo: priceHistoryRepo,
		uow:              uow,
	}
}

func (s *marketPriceService) Ingest(ctx context.Context) (*dto.ReconciliationResult, error) {
	v, err, shared := s.flight.Do(ingestFlightKey, func() (interface{}, error) {
		payload, err := s.feedRepo.FetchDailyPrices(ctx)
		if err != nil {
			s.log.WarnContext(ctx, "Failed to fetch market feed", logger.ErrorField(err))
			return nil, err
		}
		return s.Reconcile(ctx, payload)
	})
	if shared {
		s.log.DebugContext(ctx, "Joined in-flight market ingestion")
	}
	if err != nil {
		return nil, err
	}
	return v.(*dto.ReconciliationResult), nil
}

func (s *marketPriceService) Reconcile(ctx context.Context, payload *dto.MarketFeedPayload) (*dto.ReconciliationResult, error) {
	if payload == nil {
		return nil, &dto.FeedFormatError{Reason: "empty document"}
	}
	snapshot, err := payload.ToSnapshot()
	if err != nil {
		s.log.WarnContext(ctx, "Market feed rejected", logger.ErrorField(err))
		return nil, err
	}

	runID := uuid.New()
	ctx = logger.NewContext(ctx, s.log.FromContext(ctx).With(
		logger.StringField("run_id", runID.String()),
		logger.StringField("report_date", utils.FormatDate(snapshot.ReportDate)),
	))
	s.log.InfoContext(ctx, "Reconciling market prices", logger.IntField("entries", len(snapshot.Entries)))

	result := &dto.ReconciliationResult{
		RunID:           runID,
		ReportDate:      dto.Date(snapshot.ReportDate),
		CommoditiesSeen: len(snapshot.Entries),
	}

	err = s.uow.Run(ctx, func(opts ...utils.DBOption) error {
		return s.apply(ctx, snapshot, result, opts...)
	})
	if err != nil {
		s.log.ErrorContextWithAlert(ctx, "Market price reconciliation failed", logger.ErrorField(err))
		return nil, fmt.Errorf("reconcile market prices: %w", err)
	}

	s.log.InfoContext(ctx, "Market prices reconciled",
		logger.IntField("created", result.CommoditiesCreated),
		logger.IntField("updated", result.CommoditiesUpdated),
		logger.IntField("history_rows", result.HistoryRowsWritten),
		logger.IntField("missing", len(result.MissingCommodities)),
	)
	return result, nil
}

// apply upserts every entry, then clears the prices of commodities absent from
// the snapshot. The seen set is fixed before the clearing step runs.
func (s *marketPriceService) apply(ctx context.Context, snapshot *dto.MarketSnapshot, result *dto.ReconciliationResult, opts ...utils.DBOption) error {
	existing, err := s.commodityRepo.ListNames(ctx, opts...)
	if err != nil {
		return fmt.Errorf("list commodities: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		known[name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		commodity := &model.Commodity{
			Name:            entry.Name,
			Unit:            entry.Unit,
			MinPrice:        utils.ToPointer(entry.MinPrice),
			MaxPrice:        utils.ToPointer(entry.MaxPrice),
			AvgPrice:        utils.ToPointer(entry.AvgPrice),
			LastKnownPrice:  utils.ToPointer(entry.AvgPrice),
			FirstSeenDate:   snapshot.ReportDate,
			LastUpdatedDate: snapshot.ReportDate,
		}
		if err := s.commodityRepo.Upsert(ctx, commodity, opts...); err != nil {
			return fmt.Errorf("upsert commodity %q: %w", entry.Name, err)
		}
		if commodity.ID == 0 {
			return fmt.Errorf("upsert commodity %q: no id returned", entry.Name)
		}
		if _, ok := known[entry.Name]; ok {
			result.CommoditiesUpdated++
		} else {
			result.CommoditiesCreated++
		}

		history := &model.DailyPriceHistory{
			CommodityID: commodity.ID,
			Date:        snapshot.ReportDate,
			MinPrice:    entry.MinPrice,
			MaxPrice:    entry.MaxPrice,
			AvgPrice:    entry.AvgPrice,
		}
		if err := s.priceHistoryRepo.Upsert(ctx, history, opts...); err != nil {
			return fmt.Errorf("upsert price history %q: %w", entry.Name, err)
		}
		result.HistoryRowsWritten++

		seen[entry.Name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	missing, err := s.commodityRepo.ClearPricesExcept(ctx, names, snapshot.ReportDate, opts...)
	if err != nil {
		return fmt.Errorf("clear missing commodities: %w", err)
	}
	sort.Strings(missing)
	result.MissingCommodities = missing
	return nil
}
