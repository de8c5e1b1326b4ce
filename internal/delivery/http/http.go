package http

import (
	"errors"
	"net/http"

	"agri-market/internal/dto"
	"agri-market/internal/service"
	"agri-market/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	log       *logger.Logger
}

func NewHttpAPIHandler(echo *echo.Echo, validator *goValidator.Validate, service *service.Service, log *logger.Logger) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
		log:       log,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	h.echo.GET("/health", h.Health)

	base := h.echo.Group("/api/v1")
	h.SetupJobs(base)
	h.SetupMarket(base)
}

func (h *HttpAPIHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", nil))
}

// bind reads path and query parameters into req and validates it. A non-nil
// result is the response to send instead of handling the request.
func (h *HttpAPIHandler) bind(c echo.Context, req interface{}) *dto.BaseResponse {
	if err := c.Bind(req); err != nil {
		return dto.NewBadRequestResponse("invalid request parameters")
	}
	if err := h.validator.Struct(req); err != nil {
		return dto.NewBadRequestResponse(err.Error())
	}
	return nil
}

// respondError maps domain errors to HTTP status codes. Anything unrecognised
// is logged and reported as 500 without its details.
func (h *HttpAPIHandler) respondError(c echo.Context, err error) error {
	var (
		unavailable  *dto.FeedUnavailableError
		format       *dto.FeedFormatError
		insufficient *dto.InsufficientHistoryError
	)

	code, message := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.As(err, &unavailable):
		code, message = http.StatusServiceUnavailable, unavailable.Error()
	case errors.As(err, &format):
		code, message = http.StatusUnprocessableEntity, "bad upstream data: "+format.Error()
	case errors.As(err, &insufficient):
		code, message = http.StatusConflict, insufficient.Error()
	case errors.Is(err, dto.ErrNotFound):
		code, message = http.StatusNotFound, err.Error()
	case errors.Is(err, dto.ErrInvalidParam):
		code, message = http.StatusBadRequest, err.Error()
	default:
		h.log.ErrorContext(c.Request().Context(), "Request failed",
			logger.ErrorField(err),
			logger.StringField("path", c.Path()),
		)
	}
	return c.JSON(code, dto.NewBaseResponse(code, message, nil))
}
