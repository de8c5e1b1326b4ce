package http

import (
	"net/http"
	"strconv"

	"agri-market/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupJobs(base *echo.Group) {
	v1 := base.Group("/jobs")
	{
		v1.GET("", h.GetJobs)
		v1.POST("/run", h.RunJobs)
		v1.POST("/:id/run", h.RunJob)
	}
}

func (h *HttpAPIHandler) RunJobs(c echo.Context) error {
	if err := h.service.SchedulerService.Execute(c.Request().Context()); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Start running jobs", nil))
}

func (h *HttpAPIHandler) GetJobs(c echo.Context) error {
	req := new(dto.GetJobsRequest)
	if resp := h.bind(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	jobs, err := h.service.SchedulerService.GetJobSchedule(c.Request().Context(), req.ToParam())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", jobs))
}

func (h *HttpAPIHandler) RunJob(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid job id"))
	}

	if err := h.service.SchedulerService.RunJobTask(c.Request().Context(), uint(id)); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Job started", nil))
}
