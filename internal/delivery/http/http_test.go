package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agri-market/internal/dto"
	"agri-market/internal/model"
	"agri-market/internal/service"
	"agri-market/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMarketPriceService struct {
	mock.Mock
}

func (m *MockMarketPriceService) Ingest(ctx context.Context) (*dto.ReconciliationResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReconciliationResult), args.Error(1)
}

func (m *MockMarketPriceService) Reconcile(ctx context.Context, payload *dto.MarketFeedPayload) (*dto.ReconciliationResult, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReconciliationResult), args.Error(1)
}

type MockMarketAnalysisService struct {
	mock.Mock
}

func (m *MockMarketAnalysisService) AnalyzeTrends(ctx context.Context) (*dto.TrendReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TrendReport), args.Error(1)
}

func (m *MockMarketAnalysisService) GetStats(ctx context.Context) (*dto.PriceStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PriceStats), args.Error(1)
}

type MockMarketQueryService struct {
	mock.Mock
}

func (m *MockMarketQueryService) ListLatestPrices(ctx context.Context, req dto.GetLatestPricesRequest) (*dto.PageResult[dto.CommodityPriceItem], error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PageResult[dto.CommodityPriceItem]), args.Error(1)
}

func (m *MockMarketQueryService) ListHistory(ctx context.Context, req dto.GetPriceHistoryRequest) (*dto.PageResult[dto.PriceHistoryItem], error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PageResult[dto.PriceHistoryItem]), args.Error(1)
}

func (m *MockMarketQueryService) GetCommodityHistory(ctx context.Context, req dto.GetCommodityHistoryRequest) ([]dto.PriceHistoryItem, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.PriceHistoryItem), args.Error(1)
}

func (m *MockMarketQueryService) ExportHistory(ctx context.Context, req dto.GetPriceHistoryRequest) ([]byte, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockSchedulerService struct {
	mock.Mock
}

func (m *MockSchedulerService) Execute(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSchedulerService) GetJobSchedule(ctx context.Context, param model.GetJobParam) ([]model.Job, error) {
	args := m.Called(ctx, param)
	return args.Get(0).([]model.Job), args.Error(1)
}

func (m *MockSchedulerService) RunJobTask(ctx context.Context, jobID uint) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *MockSchedulerService) Wait() {}

type handlerFixture struct {
	echo      *echo.Echo
	price     *MockMarketPriceService
	analysis  *MockMarketAnalysisService
	query     *MockMarketQueryService
	scheduler *MockSchedulerService
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		echo:      echo.New(),
		price:     new(MockMarketPriceService),
		analysis:  new(MockMarketAnalysisService),
		query:     new(MockMarketQueryService),
		scheduler: new(MockSchedulerService),
	}
	svc := &service.Service{
		MarketPriceService:    f.price,
		MarketAnalysisService: f.analysis,
		MarketQueryService:    f.query,
		SchedulerService:      f.scheduler,
	}
	NewHttpAPIHandler(f.echo, goValidator.New(), svc, logger.NewNop()).SetupRoutes()
	return f
}

func (f *handlerFixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	f := newHandlerFixture(t)
	rec := f.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIngestMarketPrices(t *testing.T) {
	f := newHandlerFixture(t)
	result := &dto.ReconciliationResult{
		ReportDate:         dto.Date(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		CommoditiesSeen:    2,
		MissingCommodities: []string{"Potato"},
	}
	f.price.On("Ingest", mock.Anything).Return(result, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/market/ingest")
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "2024-01-02", data["report_date"])
	assert.Equal(t, float64(2), data["commodities_seen"])
	assert.Equal(t, []interface{}{"Potato"}, data["missing_commodities"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"feed unavailable", &dto.FeedUnavailableError{StatusCode: http.StatusBadGateway}, http.StatusServiceUnavailable},
		{"feed format", fmt.Errorf("reconcile market prices: %w", &dto.FeedFormatError{Field: "date", Reason: "missing"}), http.StatusUnprocessableEntity},
		{"insufficient history", &dto.InsufficientHistoryError{DistinctDates: 1}, http.StatusConflict},
		{"not found", fmt.Errorf("job 9: %w", dto.ErrNotFound), http.StatusNotFound},
		{"invalid param", fmt.Errorf("%w: from must not be after to", dto.ErrInvalidParam), http.StatusBadRequest},
		{"persistence", errors.New("pq: connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			f.price.On("Ingest", mock.Anything).Return(nil, tt.err)

			rec := f.do(t, http.MethodPost, "/api/v1/market/ingest")
			assert.Equal(t, tt.wantCode, rec.Code)

			body := decodeBody(t, rec)
			assert.Equal(t, float64(tt.wantCode), body["code"])
			if tt.wantCode == http.StatusInternalServerError {
				assert.NotContains(t, body["message"], "pq:")
			}
		})
	}
}

func TestGetTrendAnalysis(t *testing.T) {
	t.Run("report", func(t *testing.T) {
		f := newHandlerFixture(t)
		previous := 100.0
		f.analysis.On("AnalyzeTrends", mock.Anything).Return(&dto.TrendReport{
			MarketTrend: dto.MarketBullish,
			UpCount:     1,
			Items: []dto.CommodityTrend{
				{Name: "Onion", TodayPrice: 110, PreviousPrice: &previous, ChangePercentage: 10, Trend: dto.TrendUp},
			},
		}, nil)

		rec := f.do(t, http.MethodGet, "/api/v1/market/analysis")
		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, string(dto.MarketBullish), data["market_trend"])
	})

	t.Run("not enough data", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.analysis.On("AnalyzeTrends", mock.Anything).Return(nil, &dto.InsufficientHistoryError{DistinctDates: 1})

		rec := f.do(t, http.MethodGet, "/api/v1/market/analysis")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["message"], "not enough data")
	})
}

func TestGetLatestPrices(t *testing.T) {
	t.Run("binds query", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.query.On("ListLatestPrices", mock.Anything, mock.MatchedBy(func(req dto.GetLatestPricesRequest) bool {
			return req.Page == 2 &&
				req.PageSize == 5 &&
				req.OnlyActive &&
				req.Ordering == "-avg_price" &&
				req.MinPriceGTE == "10.5"
		})).Return(&dto.PageResult[dto.CommodityPriceItem]{Items: []dto.CommodityPriceItem{}, Page: 2, PageSize: 5}, nil)

		rec := f.do(t, http.MethodGet, "/api/v1/market/prices?page=2&page_size=5&only_active=true&ordering=-avg_price&min_price_gte=10.5")
		assert.Equal(t, http.StatusOK, rec.Code)
		f.query.AssertExpectations(t)
	})

	t.Run("rejects unknown ordering", func(t *testing.T) {
		f := newHandlerFixture(t)
		rec := f.do(t, http.MethodGet, "/api/v1/market/prices?ordering=unit")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.query.AssertNotCalled(t, "ListLatestPrices", mock.Anything, mock.Anything)
	})

	t.Run("rejects oversized page", func(t *testing.T) {
		f := newHandlerFixture(t)
		rec := f.do(t, http.MethodGet, "/api/v1/market/prices?page_size=500")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetCommodityHistory(t *testing.T) {
	t.Run("unescapes name", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.query.On("GetCommodityHistory", mock.Anything, dto.GetCommodityHistoryRequest{Name: "Tomato Big", Limit: 7}).
			Return([]dto.PriceHistoryItem{{CommodityName: "Tomato Big", AvgPrice: 45}}, nil)

		rec := f.do(t, http.MethodGet, "/api/v1/market/prices/Tomato%20Big/history?limit=7")
		assert.Equal(t, http.StatusOK, rec.Code)
		f.query.AssertExpectations(t)
	})

	t.Run("unknown commodity", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.query.On("GetCommodityHistory", mock.Anything, mock.Anything).Return(nil, dto.ErrNotFound)

		rec := f.do(t, http.MethodGet, "/api/v1/market/prices/Durian/history")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetPriceHistory(t *testing.T) {
	t.Run("invalid date", func(t *testing.T) {
		f := newHandlerFixture(t)
		rec := f.do(t, http.MethodGet, "/api/v1/market/history?from=01-02-2024")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("inverted range", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.query.On("ListHistory", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: from must not be after to", dto.ErrInvalidParam))

		rec := f.do(t, http.MethodGet, "/api/v1/market/history?from=2024-02-01&to=2024-01-01")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExportPriceHistory(t *testing.T) {
	f := newHandlerFixture(t)
	f.query.On("ExportHistory", mock.Anything, mock.MatchedBy(func(req dto.GetPriceHistoryRequest) bool {
		return req.Query == "onion"
	})).Return([]byte("xlsx-bytes"), nil)

	rec := f.do(t, http.MethodGet, "/api/v1/market/history/export?q=onion")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "price-history-")
	assert.Equal(t, "xlsx-bytes", rec.Body.String())
}

func TestJobs(t *testing.T) {
	t.Run("run due jobs", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.scheduler.On("Execute", mock.Anything).Return(nil)

		rec := f.do(t, http.MethodPost, "/api/v1/jobs/run")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("list active jobs", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.scheduler.On("GetJobSchedule", mock.Anything, mock.MatchedBy(func(p model.GetJobParam) bool {
			return p.IsActive != nil && *p.IsActive && *p.WithTaskHistory.Limit == 3
		})).Return([]model.Job{{ID: 1, Name: "market price ingestion"}}, nil)

		rec := f.do(t, http.MethodGet, "/api/v1/jobs?only_active=true&history_limit=3")
		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].([]interface{})
		assert.Len(t, data, 1)
	})

	t.Run("run one job", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.scheduler.On("RunJobTask", mock.Anything, uint(1)).Return(nil)
		f.scheduler.On("RunJobTask", mock.Anything, uint(9)).Return(fmt.Errorf("job 9: %w", dto.ErrNotFound))

		assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/jobs/1/run").Code)
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/v1/jobs/9/run").Code)
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/jobs/abc/run").Code)
	})
}
