package dto

import (
	"agri-market/internal/model"
	"agri-market/pkg/utils"
)

const DefaultJobHistoryLimit = 10

type GetJobsRequest struct {
	OnlyActive   bool `query:"only_active"`
	HistoryLimit int  `query:"history_limit" validate:"omitempty,min=1,max=100"`
}

func (r GetJobsRequest) ToParam() model.GetJobParam {
	limit := r.HistoryLimit
	if limit <= 0 {
		limit = DefaultJobHistoryLimit
	}
	param := model.GetJobParam{
		WithTaskHistory: &model.GetTaskExecutionHistoryParam{Limit: utils.ToPointer(limit)},
	}
	if r.OnlyActive {
		param.IsActive = utils.ToPointer(true)
	}
	return param
}
