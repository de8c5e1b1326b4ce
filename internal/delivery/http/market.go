package http

import (
	"net/http"
	"net/url"

	"agri-market/internal/dto"
	"agri-market/pkg/utils"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *HttpAPIHandler) SetupMarket(base *echo.Group) {
	market := base.Group("/market")
	{
		market.POST("/ingest", h.IngestMarketPrices)
		market.GET("/analysis", h.GetTrendAnalysis)
		market.GET("/stats", h.GetMarketStats)
		market.GET("/prices", h.GetLatestPrices)
		market.GET("/prices/:name/history", h.GetCommodityHistory)
		market.GET("/history", h.GetPriceHistory)
		market.GET("/history/export", h.ExportPriceHistory)
	}
}

func (h *HttpAPIHandler) IngestMarketPrices(c echo.Context) error {
	result, err := h.service.MarketPriceService.Ingest(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewCreatedResponse("Market prices ingested", result))
}

func (h *HttpAPIHandler) GetTrendAnalysis(c echo.Context) error {
	report, err := h.service.MarketAnalysisService.AnalyzeTrends(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", report))
}

func (h *HttpAPIHandler) GetMarketStats(c echo.Context) error {
	stats, err := h.service.MarketAnalysisService.GetStats(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", stats))
}

func (h *HttpAPIHandler) GetLatestPrices(c echo.Context) error {
	req := new(dto.GetLatestPricesRequest)
	if resp := h.bind(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	page, err := h.service.MarketQueryService.ListLatestPrices(c.Request().Context(), *req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", page))
}

func (h *HttpAPIHandler) GetCommodityHistory(c echo.Context) error {
	req := new(dto.GetCommodityHistoryRequest)
	if resp := h.bind(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}
	// echo leaves path params escaped when the request used a non-canonical encoding
	if name, err := url.PathUnescape(req.Name); err == nil {
		req.Name = name
	}

	items, err := h.service.MarketQueryService.GetCommodityHistory(c.Request().Context(), *req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", items))
}

func (h *HttpAPIHandler) GetPriceHistory(c echo.Context) error {
	req := new(dto.GetPriceHistoryRequest)
	if resp := h.bind(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	page, err := h.service.MarketQueryService.ListHistory(c.Request().Context(), *req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", page))
}

func (h *HttpAPIHandler) ExportPriceHistory(c echo.Context) error {
	req := new(dto.GetPriceHistoryRequest)
	if resp := h.bind(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	data, err := h.service.MarketQueryService.ExportHistory(c.Request().Context(), *req)
	if err != nil {
		return h.respondError(c, err)
	}

	filename := "price-history-" + utils.FormatDate(utils.TodayMarket()) + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, xlsxContentType, data)
}
