package models

import "time"

// SalesRecord represents a single sales transaction record.
// Imported from the POS export (xlsx/csv) or passed inline in API requests.
type SalesRecord struct {
	Date         string  `json:"date"` // YYYY-MM-DD
	ProductID    string  `json:"product_id"`
	StoreID      string  `json:"store_id,omitempty"`
	QuantitySold int     `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}

// DailyPoint 日次に集約された販売実績の1点
type DailyPoint struct {
	Date         time.Time `json:"date"`
	QuantitySold float64   `json:"quantity_sold"`
	Revenue      float64   `json:"revenue"`
}

// DailySeries 日付昇順・日付重複なしの日次系列
type DailySeries []DailyPoint

// FeatureVector represents the engineered features for a single day.
// All vectors produced for a series have identical dimensionality.
type FeatureVector struct {
	Quantity     float64 `json:"quantity"`
	Revenue      float64 `json:"revenue"`
	Mean7d       float64 `json:"quantity_7d_mean"`
	Std7d        float64 `json:"quantity_7d_std"`
	DayOfWeek    float64 `json:"day_of_week"` // 0=月曜 .. 6=日曜
	Delta1d      float64 `json:"quantity_trend"`
	Delta3d      float64 `json:"quantity_trend_3d"`
	PricePerUnit float64 `json:"price_per_unit"`
}

// AnomalyPoint represents the anomaly decision for a single day.
type AnomalyPoint struct {
	Date         string  `json:"date"`
	Value        float64 `json:"value"`
	IsAnomaly    bool    `json:"is_anomaly"`
	AnomalyScore float64 `json:"anomaly_score"` // 0-1, 1が最も異常
}

// AnomalyResult 異常検知の実行結果
type AnomalyResult struct {
	ProductID          string         `json:"product_id"`
	AnomaliesDetected  int            `json:"anomalies_detected"`
	AnomalyPoints      []AnomalyPoint `json:"anomaly_points"`
	ContaminationRate  float64        `json:"contamination_rate,omitempty"` // 主経路のみ（%）
	AnalysisPeriod     string         `json:"analysis_period,omitempty"`
	Method             string         `json:"method"` // "isolation_forest", "z_score", "z_score_no_variation", "insufficient_data"
	DataPointsAnalyzed int            `json:"data_points_analyzed"`
}

// ForecastPoint represents a single day's demand forecast.
type ForecastPoint struct {
	Date            string  `json:"date"`
	PredictedDemand float64 `json:"predicted_demand"`
	IntervalLower   float64 `json:"confidence_interval_lower"`
	IntervalUpper   float64 `json:"confidence_interval_upper"`
}

// ForecastResult 需要予測の実行結果
type ForecastResult struct {
	ProductID            string          `json:"product_id"`
	ModelVersion         string          `json:"model_version"` // "primary_v1" or "fallback_v1"
	ForecastPoints       []ForecastPoint `json:"forecast_points"`
	TotalPredictedDemand float64         `json:"total_predicted_demand"`
	ConfidenceScore      float64         `json:"confidence_score"`
	Method               string          `json:"method"` // "seasonal_regression" or "moving_average"
	DataPointsUsed       int             `json:"data_points_used"`
}

// RestockAdvice 発注推奨の計算結果
type RestockAdvice struct {
	RecommendedQuantity int     `json:"recommended_quantity"`
	Urgency             string  `json:"urgency"` // "critical", "high", "medium", "low"
	DaysOfStock         float64 `json:"days_of_stock_remaining"`
	SafetyStock         int     `json:"safety_stock_recommendation"`
	TotalRequired       int     `json:"total_required"`
}

// Alert represents an alert derived from anomaly detection results.
type Alert struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"` // "high_anomaly", "sudden_drop", "high_anomaly_rate"
	Severity       string         `json:"severity"`
	Message        string         `json:"message"`
	Details        []AnomalyPoint `json:"details,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
	CreatedAt      string         `json:"created_at"`
}

// Product 商品カタログの1エントリー
type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	CurrentStock int     `json:"current_stock"`
	MinThreshold int     `json:"min_threshold"`
}

// DetectedObject represents a single object found by the product detector.
type DetectedObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DetectionResult 外部の商品検出器（ProductDetector）の応答
type DetectionResult struct {
	DetectedCount   int              `json:"detected_count"`
	ConfidenceScore float64          `json:"confidence_score"`
	Objects         []DetectedObject `json:"objects,omitempty"`
}

// ForecastRequest represents a demand forecast request.
type ForecastRequest struct {
	ProductID    string        `json:"product_id" binding:"required"`
	DaysAhead    int           `json:"days_ahead"`              // 1-30、デフォルト7
	SalesRecords []SalesRecord `json:"sales_records,omitempty"` // 省略時はストアの実績を使用
	Seed         int64         `json:"seed,omitempty"`          // フォールバック乱数の明示シード
}

// AnomalyDetectionRequest represents an anomaly detection request.
type AnomalyDetectionRequest struct {
	ProductID     string        `json:"product_id,omitempty"` // 省略時は全商品
	DaysToAnalyze int           `json:"days_to_analyze"`      // 7-90、デフォルト30
	Contamination float64       `json:"contamination"`        // (0,1)、デフォルト0.1
	SalesRecords  []SalesRecord `json:"sales_records,omitempty"`
}

// RestockAdviceRequest represents a restock recommendation request.
type RestockAdviceRequest struct {
	ProductID       string `json:"product_id" binding:"required"`
	CurrentStock    *int   `json:"current_stock,omitempty"` // 省略時はカタログの在庫を使用
	DaysAhead       int    `json:"days_ahead"`              // 1-30、デフォルト7
	SafetyStockDays int    `json:"safety_stock_days"`       // 1-14、デフォルト3
}

// SalesImportSummary represents the result of a sales data import.
type SalesImportSummary struct {
	FileName      string   `json:"file_name"`
	RowsRead      int      `json:"rows_read"`
	RecordsLoaded int      `json:"records_loaded"`
	SkippedRows   int      `json:"skipped_rows"`
	Products      []string `json:"products"`
}
