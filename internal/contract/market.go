package contract

import (
	"context"

	"agri-market/internal/dto"
)

type MarketIngestionContract interface {
	Ingest(ctx context.Context) (*dto.ReconciliationResult, error)
}
