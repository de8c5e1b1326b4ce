package repository

import (
	"context"
	"errors"
	"testing"

	"agri-market/internal/model"
	"agri-market/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceHistoryRepository(t *testing.T) {
	db := setupTestDB(t)
	commodities := NewCommodityRepository(db)
	repo := NewPriceHistoryRepository(db)
	ctx := context.Background()

	rice := &model.Commodity{Name: "Rice", Unit: "KG", FirstSeenDate: day(2024, 1, 1), LastUpdatedDate: day(2024, 1, 2)}
	require.NoError(t, commodities.Upsert(ctx, rice))
	onion := &model.Commodity{Name: "Onion", Unit: "KG", FirstSeenDate: day(2024, 1, 2), LastUpdatedDate: day(2024, 1, 2)}
	require.NoError(t, commodities.Upsert(ctx, onion))

	rows := []model.DailyPriceHistory{
		{CommodityID: rice.ID, Date: day(2024, 1, 1), MinPrice: 45, MaxPrice: 55, AvgPrice: 50},
		{CommodityID: rice.ID, Date: day(2024, 1, 2), MinPrice: 50, MaxPrice: 60, AvgPrice: 55},
		{CommodityID: onion.ID, Date: day(2024, 1, 2), MinPrice: 80, MaxPrice: 90, AvgPrice: 85},
	}
	for i := range rows {
		require.NoError(t, repo.Upsert(ctx, &rows[i]))
	}

	t.Run("upsert overwrites same day", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, &model.DailyPriceHistory{CommodityID: rice.ID, Date: day(2024, 1, 2), MinPrice: 51, MaxPrice: 61, AvgPrice: 56}))

		histories, err := repo.FindByDate(ctx, day(2024, 1, 2))
		require.NoError(t, err)
		require.Len(t, histories, 2)
		for _, h := range histories {
			require.NotNil(t, h.Commodity)
			if h.Commodity.Name == "Rice" {
				assert.Equal(t, 56.0, h.AvgPrice)
			}
		}

		dayOne, err := repo.FindByDate(ctx, day(2024, 1, 1))
		require.NoError(t, err)
		require.Len(t, dayOne, 1)
		assert.Equal(t, 50.0, dayOne[0].AvgPrice)
	})

	t.Run("latest distinct dates", func(t *testing.T) {
		dates, err := repo.LatestDates(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-01-02", "2024-01-01"}, []string{utils.FormatDate(dates[0]), utils.FormatDate(dates[1])})
	})

	t.Run("find with filters", func(t *testing.T) {
		items, total, err := repo.Find(ctx, &model.GetPriceHistoryParam{CommodityName: "Rice", OrderDesc: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 2)
		assert.Equal(t, "2024-01-02", utils.FormatDate(items[0].Date))
		assert.Equal(t, "Rice", items[0].Commodity.Name)

		from := day(2024, 1, 2)
		items, total, err = repo.Find(ctx, &model.GetPriceHistoryParam{From: &from, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 1)
		assert.Equal(t, "Onion", items[0].Commodity.Name)

		items, _, err = repo.Find(ctx, &model.GetPriceHistoryParam{Search: "oni"})
		require.NoError(t, err)
		require.Len(t, items, 1)
	})

	t.Run("find honors ordering column", func(t *testing.T) {
		items, _, err := repo.Find(ctx, &model.GetPriceHistoryParam{OrderBy: "avg_price", OrderDesc: true})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, []float64{85, 56, 50}, []float64{items[0].AvgPrice, items[1].AvgPrice, items[2].AvgPrice})

		items, _, err = repo.Find(ctx, &model.GetPriceHistoryParam{OrderBy: "name"})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "Onion", items[0].Commodity.Name)
		assert.Equal(t, "2024-01-02", utils.FormatDate(items[1].Date))
		assert.Equal(t, "2024-01-01", utils.FormatDate(items[2].Date))

		items, _, err = repo.Find(ctx, &model.GetPriceHistoryParam{OrderBy: "id; DROP TABLE commodities"})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "2024-01-01", utils.FormatDate(items[0].Date))
	})

	t.Run("search treats wildcards literally", func(t *testing.T) {
		items, total, err := repo.Find(ctx, &model.GetPriceHistoryParam{Search: "_"})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, items)

		_, total, err = repo.Find(ctx, &model.GetPriceHistoryParam{Search: "%"})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("summary", func(t *testing.T) {
		summary, err := repo.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), summary.RowCount)
		assert.Equal(t, int64(2), summary.DistinctDates)
		require.True(t, summary.LatestDate.Valid)
		assert.Equal(t, "2024-01-02", utils.FormatDate(summary.LatestDate.Time))
	})

	t.Run("history cascades with commodity", func(t *testing.T) {
		require.NoError(t, db.Delete(&model.Commodity{}, onion.ID).Error)
		histories, err := repo.FindByDate(ctx, day(2024, 1, 2))
		require.NoError(t, err)
		assert.Len(t, histories, 1)
	})
}

func TestUnitOfWork_RollbackOnError(t *testing.T) {
	db := setupTestDB(t)
	commodities := NewCommodityRepository(db)
	uow := NewUnitOfWork(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := uow.Run(ctx, func(opts ...utils.DBOption) error {
		c := &model.Commodity{Name: "Garlic", FirstSeenDate: day(2024, 1, 1), LastUpdatedDate: day(2024, 1, 1)}
		if err := commodities.Upsert(ctx, c, opts...); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	names, err := commodities.ListNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
