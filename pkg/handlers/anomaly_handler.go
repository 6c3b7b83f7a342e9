package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"shelfsense-api/pkg/models"
	"shelfsense-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// AnomalyHandler は異常検知関連の操作のハンドラです。
type AnomalyHandler struct {
	anomalyService *services.AnomalyService
	store          *services.InventoryStore
}

// NewAnomalyHandler は新しいAnomalyHandlerを生成します。
func NewAnomalyHandler(anomalyService *services.AnomalyService, store *services.InventoryStore) *AnomalyHandler {
	return &AnomalyHandler{
		anomalyService: anomalyService,
		store:          store,
	}
}

// DetectAnomalies は販売系列の異常検知を実行します。
// product_idが空の場合はカタログの全商品を対象にします。
func (h *AnomalyHandler) DetectAnomalies(c *gin.Context) {
	var req models.AnomalyDetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "リクエストボディの解析に失敗しました",
		})
		return
	}

	if req.DaysToAnalyze == 0 {
		req.DaysToAnalyze = 30
	}
	if req.DaysToAnalyze < 7 || req.DaysToAnalyze > 90 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("分析期間は7〜90日で指定してください (%d)", req.DaysToAnalyze),
		})
		return
	}

	// 単一商品: リクエストの実績またはストアの実績を使用
	if req.ProductID != "" || len(req.SalesRecords) > 0 {
		result, err := h.detectForProduct(req.ProductID, req.SalesRecords, req.DaysToAnalyze, req.Contamination)
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
		return
	}

	// 全商品を対象に実行
	results := make([]models.AnomalyResult, 0)
	for _, p := range h.store.ListProducts() {
		result, err := h.detectForProduct(p.ID, nil, req.DaysToAnalyze, req.Contamination)
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
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
	})
}

// GenerateAlerts は異常検知を実行し、結果からアラートを生成して返します。
func (h *AnomalyHandler) GenerateAlerts(c *gin.Context) {
	var req models.AnomalyDetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "リクエストボディの解析に失敗しました",
		})
		return
	}

	if req.DaysToAnalyze == 0 {
		req.DaysToAnalyze = 30
	}
	if req.DaysToAnalyze < 7 || req.DaysToAnalyze > 90 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("分析期間は7〜90日で指定してください (%d)", req.DaysToAnalyze),
		})
		return
	}

	productIDs := []string{req.ProductID}
	if req.ProductID == "" && len(req.SalesRecords) == 0 {
		productIDs = productIDs[:0]
		for _, p := range h.store.ListProducts() {
			productIDs = append(productIDs, p.ID)
		}
	}

	alerts := make([]models.Alert, 0)
	for _, productID := range productIDs {
		result, err := h.detectForProduct(productID, req.SalesRecords, req.DaysToAnalyze, req.Contamination)
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
		alerts = append(alerts, h.anomalyService.GenerateAnomalyAlerts(result)...)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"alerts":      alerts,
			"alert_count": len(alerts),
		},
	})
}

// detectForProduct は1商品分の系列を組み立てて異常検知を実行する。
func (h *AnomalyHandler) detectForProduct(productID string, records []models.SalesRecord, daysToAnalyze int, contamination float64) (models.AnomalyResult, error) {
	if len(records) == 0 {
		records = h.store.SalesHistory(productID, daysToAnalyze)
	}
	series, err := services.PrepareDailySeries(records)
	if err != nil {
		return models.AnomalyResult{}, err
	}
	return h.anomalyService.DetectAnomalies(productID, series, contamination)
}
