package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"agri-market/internal/dto"
	"agri-market/internal/model"
	"agri-market/pkg/utils"
)

type historyKey struct {
	commodityID uint
	date        time.Time
}

// memStore is an in-memory stand-in for the commodity and history tables.
type memStore struct {
	mu          sync.Mutex
	nextID      uint
	version     int64
	commodities map[string]model.Commodity
	histories   map[historyKey]model.DailyPriceHistory
}

func newMemStore() *memStore {
	return &memStore{
		commodities: map[string]model.Commodity{},
		histories:   map[historyKey]model.DailyPriceHistory{},
	}
}

func (s *memStore) snapshot() (map[string]model.Commodity, map[historyKey]model.DailyPriceHistory, uint) {
	commodities := make(map[string]model.Commodity, len(s.commodities))
	for k, v := range s.commodities {
		commodities[k] = v
	}
	histories := make(map[historyKey]model.DailyPriceHistory, len(s.histories))
	for k, v := range s.histories {
		histories[k] = v
	}
	return commodities, histories, s.nextID
}

func (s *memStore) commodity(name string) model.Commodity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commodities[name]
}

func (s *memStore) byID(id uint) *model.Commodity {
	for _, c := range s.commodities {
		if c.ID == id {
			c := c
			return &c
		}
	}
	return nil
}

type memUnitOfWork struct {
	store *memStore
}

// Run restores the store when fn fails.
func (u *memUnitOfWork) Run(ctx context.Context, fn func(opts ...utils.DBOption) error) error {
	u.store.mu.Lock()
	commodities, histories, nextID := u.store.snapshot()
	version := u.store.version
	u.store.mu.Unlock()

	if err := fn(); err != nil {
		u.store.mu.Lock()
		u.store.commodities, u.store.histories, u.store.nextID = commodities, histories, nextID
		u.store.version = version
		u.store.mu.Unlock()
		return err
	}
	return nil
}

type memCommodityRepo struct {
	store     *memStore
	upsertErr error
	upserts   int
}

func (r *memCommodityRepo) Upsert(ctx context.Context, commodity *model.Commodity, opts ...utils.DBOption) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.upserts++
	if r.upsertErr != nil && r.upserts > 1 {
		return r.upsertErr
	}
	r.store.version++

	existing, ok := r.store.commodities[commodity.Name]
	if !ok {
		r.store.nextID++
		commodity.ID = r.store.nextID
		r.store.commodities[commodity.Name] = *commodity
		return nil
	}
	existing.Unit = commodity.Unit
	existing.MinPrice = commodity.MinPrice
	existing.MaxPrice = commodity.MaxPrice
	existing.AvgPrice = commodity.AvgPrice
	existing.LastKnownPrice = commodity.LastKnownPrice
	existing.LastUpdatedDate = commodity.LastUpdatedDate
	r.store.commodities[commodity.Name] = existing
	commodity.ID = existing.ID
	return nil
}

func (r *memCommodityRepo) ListNames(ctx context.Context, opts ...utils.DBOption) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	names := make([]string, 0, len(r.store.commodities))
	for name := range r.store.commodities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *memCommodityRepo) ClearPricesExcept(ctx context.Context, seen []string, date time.Time, opts ...utils.DBOption) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	keep := make(map[string]struct{}, len(seen))
	for _, name := range seen {
		keep[name] = struct{}{}
	}
	r.store.version++
	var cleared []string
	for name, c := range r.store.commodities {
		if _, ok := keep[name]; ok {
			continue
		}
		c.MinPrice, c.MaxPrice, c.AvgPrice = nil, nil, nil
		c.LastUpdatedDate = date
		r.store.commodities[name] = c
		cleared = append(cleared, name)
	}
	return cleared, nil
}

func (r *memCommodityRepo) Find(ctx context.Context, param *model.GetCommodityParam, opts ...utils.DBOption) ([]model.Commodity, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Commodity
	for _, c := range r.store.commodities {
		if param.OnlyActive && !c.IsActive() {
			continue
		}
		if param.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(param.Search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := int64(len(out))
	if param.Offset < len(out) {
		out = out[param.Offset:]
	} else {
		out = nil
	}
	if param.Limit > 0 && len(out) > param.Limit {
		out = out[:param.Limit]
	}
	return out, total, nil
}

func (r *memCommodityRepo) FindByName(ctx context.Context, name string, opts ...utils.DBOption) (*model.Commodity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.commodities[name]
	if !ok {
		return nil, dto.ErrNotFound
	}
	return &c, nil
}

func (r *memCommodityRepo) Summary(ctx context.Context, opts ...utils.DBOption) (*model.CommoditySummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	summary := &model.CommoditySummary{Total: int64(len(r.store.commodities))}
	for _, c := range r.store.commodities {
		if c.IsActive() {
			summary.Active++
		}
	}
	return summary, nil
}

func (r *memCommodityRepo) DataVersion(ctx context.Context, opts ...utils.DBOption) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.version, nil
}

type memPriceHistoryRepo struct {
	store *memStore
}

func (r *memPriceHistoryRepo) Upsert(ctx context.Context, history *model.DailyPriceHistory, opts ...utils.DBOption) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.histories[historyKey{history.CommodityID, history.Date}] = *history
	return nil
}

func (r *memPriceHistoryRepo) LatestDates(ctx context.Context, limit int, opts ...utils.DBOption) ([]time.Time, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := map[time.Time]struct{}{}
	var dates []time.Time
	for key := range r.store.histories {
		if _, ok := seen[key.date]; ok {
			continue
		}
		seen[key.date] = struct{}{}
		dates = append(dates, key.date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	if len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

func (r *memPriceHistoryRepo) FindByDate(ctx context.Context, date time.Time, opts ...utils.DBOption) ([]model.DailyPriceHistory, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.DailyPriceHistory
	for key, h := range r.store.histories {
		if key.date.Equal(date) {
			h.Commodity = r.store.byID(h.CommodityID)
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memPriceHistoryRepo) Find(ctx context.Context, param *model.GetPriceHistoryParam, opts ...utils.DBOption) ([]model.DailyPriceHistory, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.DailyPriceHistory
	for _, h := range r.store.histories {
		h.Commodity = r.store.byID(h.CommodityID)
		if param.CommodityName != "" && h.Commodity.Name != param.CommodityName {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Commodity.Name < out[j].Commodity.Name
	})
	total := int64(len(out))
	if param.Limit > 0 && len(out) > param.Limit {
		out = out[:param.Limit]
	}
	return out, total, nil
}

func (r *memPriceHistoryRepo) Summary(ctx context.Context, opts ...utils.DBOption) (*model.PriceHistorySummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	summary := &model.PriceHistorySummary{RowCount: int64(len(r.store.histories))}
	dates := map[time.Time]struct{}{}
	for key := range r.store.histories {
		dates[key.date] = struct{}{}
		if !summary.LatestDate.Valid || key.date.After(summary.LatestDate.Time) {
			summary.LatestDate = sql.NullTime{Time: key.date, Valid: true}
		}
	}
	summary.DistinctDates = int64(len(dates))
	return summary, nil
}
