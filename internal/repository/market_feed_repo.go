package repository

import (
	"context"
	"sync"
	"time"

	"agri-market/config"
	"agri-market/internal/dto"
	"agri-market/pkg/httpclient"
	"agri-market/pkg/logger"

	"golang.org/x/time/rate"
)

type MarketFeedRepository interface {
	FetchDailyPrices(ctx context.Context) (*dto.MarketFeedPayload, error)
}

// marketFeedRepository reads the daily price document published by the
// wholesale market.
type marketFeedRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	mu             sync.Mutex
}

func NewMarketFeedRepository(cfg *config.Config, log *logger.Logger) MarketFeedRepository {
	perRequest := time.Minute / time.Duration(cfg.MarketFeed.MaxRequestPerMin)
	return &marketFeedRepository{
		httpClient:     httpclient.New(log, cfg.MarketFeed.BaseURL, cfg.MarketFeed.Timeout),
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(perRequest), 1),
	}
}

// FetchDailyPrices downloads and decodes the current feed. Content validation
// is left to the reconciler.
func (r *marketFeedRepository) FetchDailyPrices(ctx context.Context) (*dto.MarketFeedPayload, error) {
	r.mu.Lock()
	if !r.requestLimiter.Allow() {
		r.logger.WarnContext(ctx, "Market feed request limit reached, waiting",
			logger.IntField("max_request_per_min", r.cfg.MarketFeed.MaxRequestPerMin),
		)
		if err := r.requestLimiter.Wait(ctx); err != nil {
			r.mu.Unlock()
			return nil, &dto.FeedUnavailableError{Err: err}
		}
	}
	r.mu.Unlock()

	resp, err := r.httpClient.Get(ctx, r.cfg.MarketFeed.Path, nil, nil, nil)
	if err != nil {
		r.logger.WarnContext(ctx, "Market feed request failed", logger.ErrorField(err))
		return nil, &dto.FeedUnavailableError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.WarnContext(ctx, "Market feed returned non-success status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("path", r.cfg.MarketFeed.Path),
		)
		return nil, &dto.FeedUnavailableError{StatusCode: resp.StatusCode}
	}

	payload, err := dto.DecodeMarketFeed(resp.Body)
	if err != nil {
		r.logger.WarnContext(ctx, "Market feed body rejected", logger.ErrorField(err))
		return nil, err
	}
	return payload, nil
}
