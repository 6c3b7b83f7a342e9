package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"shelfsense-api/pkg/models"
	"shelfsense-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// ForecastHandler は需要予測関連の操作のハンドラです。
type ForecastHandler struct {
	forecastService *services.ForecastService
	store           *services.InventoryStore
}

// NewForecastHandler は新しいForecastHandlerを生成します。
func NewForecastHandler(forecastService *services.ForecastService, store *services.InventoryStore) *ForecastHandler {
	return &ForecastHandler{
		forecastService: forecastService,
		store:           store,
	}
}

// GenerateForecast は指定商品の需要予測を生成します。
// リクエストに販売実績が含まれていればそれを使い、なければストアの
// 直近90日分の実績を使います。
func (h *ForecastHandler) GenerateForecast(c *gin.Context) {
	var req models.ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "product_idは必須です",
		})
		return
	}

	if req.DaysAhead == 0 {
		req.DaysAhead = 7
	}

	records := req.SalesRecords
	if len(records) == 0 {
		records = h.store.SalesHistory(req.ProductID, 90)
	}

	series, err := services.PrepareDailySeries(records)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	result, err := h.forecastService.GenerateForecast(req.ProductID, series, req.DaysAhead, req.Seed)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrInvalidParameter) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// GetProductForecast はストアの実績に基づく商品別予測を返します。
// GET /api/v1/forecast/product/:productID?days_ahead=7
func (h *ForecastHandler) GetProductForecast(c *gin.Context) {
	productID := c.Param("productID")

	daysAhead := 7
	if v := c.Query("days_ahead"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			daysAhead = n
		}
	}

	if _, err := h.store.GetProduct(productID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	series, err := services.PrepareDailySeries(h.store.SalesHistory(productID, 90))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	result, err := h.forecastService.GenerateForecast(productID, series, daysAhead, 0)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrInvalidParameter) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
