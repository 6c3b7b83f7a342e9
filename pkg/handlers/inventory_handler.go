package handlers

import (
	"errors"
	"io"
	"net/http"

	"shelfsense-api/pkg/models"
	"shelfsense-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// InventoryHandler は在庫関連の操作のハンドラです。
type InventoryHandler struct {
	store           *services.InventoryStore
	forecastService *services.ForecastService
	detector        services.ProductDetector
}

// NewInventoryHandler は新しいInventoryHandlerを生成します。
// detectorは未設定（nil）でもよく、その場合は棚スキャンのみ利用不可になります。
func NewInventoryHandler(store *services.InventoryStore, forecastService *services.ForecastService, detector services.ProductDetector) *InventoryHandler {
	return &InventoryHandler{
		store:           store,
		forecastService: forecastService,
		detector:        detector,
	}
}

// ListProducts は商品カタログの一覧を返します。
func (h *InventoryHandler) ListProducts(c *gin.Context) {
	products := h.store.ListProducts()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"products": products,
			"count":    len(products),
		},
	})
}

// GetRestockAdvice は需要予測と現在庫から発注推奨を計算します。
// current_stockが省略された場合はカタログの在庫を使います。
func (h *InventoryHandler) GetRestockAdvice(c *gin.Context) {
	var req models.RestockAdviceRequest
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
	if req.SafetyStockDays == 0 {
		req.SafetyStockDays = 3
	}

	product, err := h.store.GetProduct(req.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	currentStock := product.CurrentStock
	if req.CurrentStock != nil {
		currentStock = *req.CurrentStock
	}

	series, err := services.PrepareDailySeries(h.store.SalesHistory(req.ProductID, 90))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	forecast, err := h.forecastService.GenerateForecast(req.ProductID, series, req.DaysAhead, 0)
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

	advice, err := services.AdviseRestock(currentStock, forecast.TotalPredictedDemand, req.SafetyStockDays)
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
		"data": gin.H{
			"product_id":             req.ProductID,
			"product_name":           product.Name,
			"current_stock":          currentStock,
			"total_predicted_demand": forecast.TotalPredictedDemand,
			"forecast_method":        forecast.Method,
			"confidence_score":       forecast.ConfidenceScore,
			"advice":                 advice,
		},
	})
}

// ScanShelf は棚画像を外部の商品検出器に送り、検出数で在庫を更新します。
// 検出器が未設定の場合は503を返します。
func (h *InventoryHandler) ScanShelf(c *gin.Context) {
	if h.detector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "商品検出器が設定されていません。DETECTOR_URLを確認してください",
		})
		return
	}

	productID := c.PostForm("product_id")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "product_idは必須です",
		})
		return
	}
	if _, err := h.store.GetProduct(productID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "画像ファイルの取得に失敗しました",
		})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "画像の読み込みに失敗しました",
		})
		return
	}

	result, err := h.detector.Detect(c.Request.Context(), image)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	if err := h.store.UpdateStock(productID, result.DetectedCount); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"product_id": productID,
			"detection":  result,
		},
	})
}
