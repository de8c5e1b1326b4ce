package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"agri-market/config"
	"agri-market/internal/model"
	"agri-market/internal/repository"
	"agri-market/pkg/logger"
	"agri-market/pkg/utils"
)

const defaultRetentionDays = 30

type DataCleanUpPayload struct {
	RetentionDays int `json:"retention_days"`
}

type DataCleanUpResult struct {
	Table string `json:"table"`
	Total int64  `json:"total"`
	Error string `json:"error,omitempty"`
}

// DataCleanUpStrategy prunes task execution history. Price tables are never
// touched.
type DataCleanUpStrategy struct {
	cfg     *config.Config
	log     *logger.Logger
	JobRepo repository.JobRepository
}

func NewDataCleanUpStrategy(cfg *config.Config, log *logger.Logger, jobRepo repository.JobRepository) JobExecutionStrategy {
	return &DataCleanUpStrategy{
		cfg:     cfg,
		log:     log,
		JobRepo: jobRepo,
	}
}

func (s *DataCleanUpStrategy) Execute(ctx context.Context, job *model.Job) (JobResult, error) {
	s.log.InfoContext(ctx, "Starting data clean up")

	payload := DataCleanUpPayload{RetentionDays: defaultRetentionDays}
	if err := job.DecodePayload(&payload); err != nil {
		s.log.ErrorContext(ctx, "Failed to unmarshal job payload", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to unmarshal job payload: %v", err)}, fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	if payload.RetentionDays <= 0 {
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: "retention_days must be positive"}, fmt.Errorf("invalid retention_days %d", payload.RetentionDays)
	}

	date := utils.TimeNowMarket().AddDate(0, 0, -payload.RetentionDays)
	outputMsg := []DataCleanUpResult{}
	exitCode := int32(JOB_EXIT_CODE_SUCCESS)

	totalDeletedTask, err := s.JobRepo.DeleteTaskHistoryOlderThan(ctx, date)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to delete task history", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		outputMsg = append(outputMsg, DataCleanUpResult{
			Table: "task_execution_history",
			Total: totalDeletedTask,
			Error: fmt.Sprintf("failed to delete task history older than %v: %v", date, err),
		})
		exitCode = JOB_EXIT_CODE_FAILED
	} else {
		outputMsg = append(outputMsg, DataCleanUpResult{
			Table: "task_execution_history",
			Total: totalDeletedTask,
		})
	}

	res, err := json.Marshal(outputMsg)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to marshal output message", logger.ErrorField(err), logger.IntField("job_id", int(job.ID)))
		return JobResult{ExitCode: JOB_EXIT_CODE_FAILED, Output: fmt.Sprintf("failed to marshal output message: %v", err)}, fmt.Errorf("failed to marshal output message: %w", err)
	}
	if exitCode != JOB_EXIT_CODE_SUCCESS {
		return JobResult{ExitCode: exitCode, Output: string(res)}, fmt.Errorf("data clean up failed")
	}
	return JobResult{ExitCode: exitCode, Output: string(res)}, nil
}

func (s *DataCleanUpStrategy) GetType() JobType {
	return JobTypeDataCleanUp
}
