package service

import (
	"bytes"
	"context"
	"fmt"

	"agri-market/internal/dto"
	"agri-market/pkg/logger"
	"agri-market/pkg/utils"

	"github.com/xuri/excelize/v2"
)

const historySheet = "Price History"

var historyHeader = []interface{}{"Date", "Commodity", "Unit", "Min Price", "Max Price", "Avg Price"}

// ExportHistory renders the filtered history list as an xlsx workbook,
// capped at api.max_export_rows rows.
func (s *marketQueryService) ExportHistory(ctx context.Context, req dto.GetPriceHistoryRequest) ([]byte, error) {
	param, err := req.ToParam()
	if err != nil {
		return nil, err
	}
	param.Limit = s.cfg.API.MaxExportRows
	param.Offset = 0

	histories, total, err := s.priceHistoryRepo.Find(ctx, &param)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load price history for export", logger.ErrorField(err))
		return nil, fmt.Errorf("load price history: %w", err)
	}
	if total > int64(len(histories)) {
		s.log.WarnContext(ctx, "Price history export truncated",
			logger.Int64Field("total", total),
			logger.IntField("exported", len(histories)),
		)
	}

	return RenderHistoryWorkbook(toHistoryItems(histories))
}

func RenderHistoryWorkbook(items []dto.PriceHistoryItem) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, item := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			utils.FormatDate(item.Date.Time()),
			item.CommodityName,
			item.Unit,
			item.MinPrice,
			item.MaxPrice,
			item.AvgPrice,
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
