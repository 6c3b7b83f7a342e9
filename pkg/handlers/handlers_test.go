package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	config "shelfsense-api/configs"
	"shelfsense-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// setupTestRouter 全エンドポイントを登録したテスト用ルーターを作る。
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	store := services.NewInventoryStore()
	forecastService := services.NewForecastService(services.NewModelCache())
	anomalyService := services.NewAnomalyService(services.NewModelCache())
	monitoringService := services.NewMonitoringService()

	forecastHandler := NewForecastHandler(forecastService, store)
	anomalyHandler := NewAnomalyHandler(anomalyService, store)
	inventoryHandler := NewInventoryHandler(store, forecastService, nil)
	salesHandler := NewSalesHandler(store)
	monitoringHandler := NewMonitoringHandler(monitoringService)
	adminHandler := NewAdminHandler(&config.Config{AdminUsername: "admin", AdminPassword: "secret", Environment: "test"}, store, false)

	r := gin.New()
	r.Use(monitoringService.LoggingMiddleware())
	r.GET("/health", HealthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/forecast/generate", forecastHandler.GenerateForecast)
		v1.GET("/forecast/product/:productID", forecastHandler.GetProductForecast)
		v1.POST("/anomalies/detect", anomalyHandler.DetectAnomalies)
		v1.POST("/anomalies/alerts", anomalyHandler.GenerateAlerts)
		v1.GET("/inventory/products", inventoryHandler.ListProducts)
		v1.POST("/inventory/restock-advice", inventoryHandler.GetRestockAdvice)
		v1.POST("/inventory/scan", inventoryHandler.ScanShelf)
		v1.POST("/sales/import", salesHandler.ImportSales)
		v1.GET("/monitoring/summary", monitoringHandler.GetSummary)
		v1.GET("/admin/health-status", adminHandler.GetHealthStatus)
		v1.POST("/admin/maintenance/start", adminHandler.StartMaintenance)
	}
	return r
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router := setupTestRouter()

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "status")
}

func TestListProducts(t *testing.T) {
	router := setupTestRouter()

	req, _ := http.NewRequest("GET", "/api/v1/inventory/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "success")
	assert.Contains(t, w.Body.String(), "P001")
}

func TestGenerateForecastEndpoint(t *testing.T) {
	router := setupTestRouter()

	// ストアの実績に基づく予測
	w := postJSON(router, "/api/v1/forecast/generate", gin.H{
		"product_id": "P001",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "forecast_points")
	assert.Contains(t, w.Body.String(), "model_version")
}

func TestGenerateForecastMissingProductID(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/forecast/generate", gin.H{
		"days_ahead": 7,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateForecastInvalidHorizon(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/forecast/generate", gin.H{
		"product_id": "P001",
		"days_ahead": 31,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateForecastInlineRecordsFallback(t *testing.T) {
	router := setupTestRouter()

	// 14日未満の実績ではフォールバック予測になる
	w := postJSON(router, "/api/v1/forecast/generate", gin.H{
		"product_id": "P100",
		"sales_records": []gin.H{
			{"date": "2025-06-02", "product_id": "P100", "quantity_sold": 10},
			{"date": "2025-06-03", "product_id": "P100", "quantity_sold": 12},
			{"date": "2025-06-04", "product_id": "P100", "quantity_sold": 14},
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fallback_v1")
	assert.Contains(t, w.Body.String(), "moving_average")
}

func TestGetProductForecastNotFound(t *testing.T) {
	router := setupTestRouter()

	req, _ := http.NewRequest("GET", "/api/v1/forecast/product/P999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetectAnomaliesEndpoint(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/anomalies/detect", gin.H{
		"product_id": "P001",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anomaly_points")
	assert.Contains(t, w.Body.String(), "method")
}

func TestDetectAnomaliesAllProducts(t *testing.T) {
	router := setupTestRouter()

	// product_id省略時は全商品が対象
	w := postJSON(router, "/api/v1/anomalies/detect", gin.H{})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "P001")
	assert.Contains(t, w.Body.String(), "P005")
}

func TestDetectAnomaliesInvalidPeriod(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/anomalies/detect", gin.H{
		"product_id":      "P001",
		"days_to_analyze": 5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDetectAnomaliesInsufficientData(t *testing.T) {
	router := setupTestRouter()

	// 7日未満の実績ではZスコア方式になる
	w := postJSON(router, "/api/v1/anomalies/detect", gin.H{
		"product_id": "P100",
		"sales_records": []gin.H{
			{"date": "2025-06-02", "product_id": "P100", "quantity_sold": 10},
			{"date": "2025-06-03", "product_id": "P100", "quantity_sold": 10},
			{"date": "2025-06-04", "product_id": "P100", "quantity_sold": 50},
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "z_score")
}

func TestGenerateAlertsEndpoint(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/anomalies/alerts", gin.H{
		"product_id": "P001",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alerts")
	assert.Contains(t, w.Body.String(), "alert_count")
}

func TestRestockAdviceEndpoint(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/inventory/restock-advice", gin.H{
		"product_id": "P001",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "advice")
	assert.Contains(t, w.Body.String(), "urgency")
	assert.Contains(t, w.Body.String(), "total_predicted_demand")
}

func TestRestockAdviceUnknownProduct(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/inventory/restock-advice", gin.H{
		"product_id": "P999",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestockAdviceExplicitStock(t *testing.T) {
	router := setupTestRouter()

	// 在庫0を明示すると緊急度はcritical
	w := postJSON(router, "/api/v1/inventory/restock-advice", gin.H{
		"product_id":    "P001",
		"current_stock": 0,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "critical")
}

func TestScanShelfWithoutDetector(t *testing.T) {
	router := setupTestRouter()

	// 検出器未設定の場合は503
	req, _ := http.NewRequest("POST", "/api/v1/inventory/scan", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestImportSalesCSV(t *testing.T) {
	router := setupTestRouter()

	csvContent := "date,product_id,quantity,revenue\n" +
		"2025-06-02,P001,10,1200\n" +
		"2025-06-03,P001,12,1440\n" +
		"bad-date,P001,5,600\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "sales.csv")
	fw.Write([]byte(csvContent))
	mw.Close()

	req, _ := http.NewRequest("POST", "/api/v1/sales/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"records_loaded\":2")
	assert.Contains(t, w.Body.String(), "\"skipped_rows\":1")
}

func TestImportSalesMissingColumns(t *testing.T) {
	router := setupTestRouter()

	csvContent := "foo,bar\n1,2\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "sales.csv")
	fw.Write([]byte(csvContent))
	mw.Close()

	req, _ := http.NewRequest("POST", "/api/v1/sales/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportSalesNoFile(t *testing.T) {
	router := setupTestRouter()

	req, _ := http.NewRequest("POST", "/api/v1/sales/import", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonitoringSummaryEndpoint(t *testing.T) {
	router := setupTestRouter()

	// 先にリクエストを1件発生させてから集計を確認
	req, _ := http.NewRequest("GET", "/api/v1/inventory/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest("GET", "/api/v1/monitoring/summary", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "total_requests")
	assert.Contains(t, w.Body.String(), "\"total_requests\":1")
}

func TestAdminMaintenanceInvalidCredentials(t *testing.T) {
	router := setupTestRouter()

	w := postJSON(router, "/api/v1/admin/maintenance/start", gin.H{
		"username": "admin",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminHealthStatus(t *testing.T) {
	router := setupTestRouter()

	req, _ := http.NewRequest("GET", "/api/v1/admin/health-status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// 稼働状態にカタログと検出器の状況が含まれる
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "isMaintenanceMode")
	assert.Contains(t, w.Body.String(), "\"product_count\":5")
	assert.Contains(t, w.Body.String(), "\"detector_enabled\":false")
}

func TestFindIndex(t *testing.T) {
	header := []string{"日付", "商品ID", "販売数", "Revenue"}

	assert.Equal(t, 0, findIndex(header, "date", "日付"))
	assert.Equal(t, 1, findIndex(header, "product_id", "商品ID"))
	assert.Equal(t, 3, findIndex(header, "revenue"))
	assert.Equal(t, -1, findIndex(header, "store_id"))
}
