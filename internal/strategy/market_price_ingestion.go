package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"agri-market/internal/contract"
	"agri-market/internal/dto"
	"agri-market/internal/model"
	"agri-market/pkg/logger"
)

type MarketPriceIngestionStrategy struct {
	log       *logger.Logger
	ingestion contract.MarketIngestionContract
}

func NewMarketPriceIngestionStrategy(log *logger.Logger, ingestion contract.MarketIngestionContract) JobExecutionStrategy {
	return &MarketPriceIngestionStrategy{
		log:       log,
		ingestion: ingestion,
	}
}

// Execute runs one fetch and reconcile. An unreachable feed exits with
// JOB_EXIT_CODE_UNAVAILABLE so the next scheduled run can pick it up.
func (s *MarketPriceIngestionStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	s.log.InfoContext(ctx, "Starting market price ingestion", logger.IntField("job_id", int(job.ID)))

	result, err := s.ingestion.Ingest(ctx)
	if err != nil {
		var unavailable *dto.FeedUnavailableError
		if errors.As(err, &unavailable) {
			return JobResult{ExitCode: JOB_EXIT_CODE_UNAVAILABLE, Output: err.Error()}, err
		}
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: err.Error()}, err
	}

	res, err := json.Marshal(result)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to marshal ingestion result", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to marshal ingestion result: %v", err)}, fmt.Errorf("failed to marshal ingestion result: %w", err)
	}
	return JobResult{ExitCode: JOB_EXIT_CODE_SUCCESS, Output: string(res)}, nil
}

func (s *MarketPriceIngestionStrategy) GetType() JobType {
	return JobTypeMarketPriceIngestion
}
