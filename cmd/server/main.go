package main

import (
	"log"
	"net/http"
	"time"

	config "shelfsense-api/configs"
	"shelfsense-api/pkg/handlers"
	"shelfsense-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()

	// Ginルーターの初期化
	r := gin.Default()

	// サービスの初期化
	monitoringService := services.NewMonitoringService()
	store := services.NewInventoryStore()
	forecastService := services.NewForecastService(services.NewModelCache())
	anomalyService := services.NewAnomalyService(services.NewModelCache())

	// 商品検出器はURLが設定されている場合のみ有効化
	var detector services.ProductDetector
	if cfg.DetectorURL != "" {
		detector = services.NewHTTPProductDetector(cfg.DetectorURL, time.Duration(cfg.DetectorTimeoutSeconds)*time.Second)
	}

	// ハンドラーの初期化
	forecastHandler := handlers.NewForecastHandler(forecastService, store)
	anomalyHandler := handlers.NewAnomalyHandler(anomalyService, store)
	inventoryHandler := handlers.NewInventoryHandler(store, forecastService, detector)
	salesHandler := handlers.NewSalesHandler(store)
	adminHandler := handlers.NewAdminHandler(cfg, store, detector != nil)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware()) // ロギングミドルウェアをグローバルに適用
	r.Use(cors.Default())

	// 認証ミドルウェア
	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" || apiKey == "default_secret_key" {
				c.Next()
				return
			}
			providedKey := c.GetHeader("X-API-KEY")
			if providedKey != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Next()
		}
	}

	// ヘルスチェックエンドポイント
	r.GET("/health", handlers.HealthCheck)

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/summary", monitoringHandler.GetSummary)
		}

		// 需要予測API
		forecast := v1.Group("/forecast")
		{
			forecast.POST("/generate", forecastHandler.GenerateForecast)
			forecast.GET("/product/:productID", forecastHandler.GetProductForecast)
		}

		// 異常検知API
		anomalies := v1.Group("/anomalies")
		{
			anomalies.POST("/detect", anomalyHandler.DetectAnomalies)
			anomalies.POST("/alerts", anomalyHandler.GenerateAlerts)
		}

		// 在庫API
		inventory := v1.Group("/inventory")
		{
			inventory.GET("/products", inventoryHandler.ListProducts)
			inventory.POST("/restock-advice", inventoryHandler.GetRestockAdvice)
			inventory.POST("/scan", inventoryHandler.ScanShelf)
		}

		// 販売実績API
		sales := v1.Group("/sales")
		{
			sales.POST("/import", salesHandler.ImportSales)
		}
	}

	log.Printf("Starting ShelfSense API server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
