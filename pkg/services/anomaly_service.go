package services

import (
	"fmt"
	"log"
	"math"
	"time"

	"shelfsense-api/pkg/models"

	"github.com/google/uuid"
)

// 異常検知のmethodタグ
const (
	MethodIsolationForest  = "isolation_forest"
	MethodZScore           = "z_score"
	MethodZScoreNoVariance = "z_score_no_variation"
	MethodInsufficientData = "insufficient_data"
)

// zScoreThreshold Zスコア方式で異常とみなす閾値
const zScoreThreshold = 2.0

// AnomalyService 販売系列の異常検知サービス
type AnomalyService struct {
	cache *ModelCache
	now   func() time.Time
}

// NewAnomalyService 新しいAnomalyServiceを作成
func NewAnomalyService(cache *ModelCache) *AnomalyService {
	return &AnomalyService{
		cache: cache,
		now:   time.Now,
	}
}

// anomalyModelArtifact キャッシュに保持する学習済み成果物
type anomalyModelArtifact struct {
	forest *isolationForest
	scaler *standardScaler
}

// DetectAnomalies は日次系列の各日に対して異常判定とスコアを返す。
//
// 判定方針（順に評価）:
//  1. 系列が7日未満、または特徴量が生成できない場合はZスコア方式にフォールバック
//  2. 標準化した特徴量の上でIsolation Forestを学習・適用（固定シードで再現可能）
//  3. 決定関数の値を clamp01(0.5 - raw) で[0,1]に正規化（小数3桁）
//  4. 学習失敗時もZスコア方式にフォールバック
//
// データ不足でエラーを返すことはない。汚染率が(0,1)の範囲外の場合のみ
// ErrInvalidParameterを返す。
func (s *AnomalyService) DetectAnomalies(productID string, series models.DailySeries, contamination float64) (models.AnomalyResult, error) {
	if contamination == 0 {
		contamination = 0.1
	}
	if contamination <= 0 || contamination >= 1 {
		return models.AnomalyResult{}, fmt.Errorf("汚染率は(0,1)の範囲で指定してください (%.3f): %w", contamination, ErrInvalidParameter)
	}

	if len(series) < 7 {
		log.Printf("[異常検知@%s] データが%d件と少ないためZスコア方式を使用します", productID, len(series))
		return s.zScoreFallback(productID, series), nil
	}

	features := EngineerFeatures(series)
	if len(features) == 0 {
		return s.zScoreFallback(productID, series), nil
	}

	scaler := &standardScaler{}
	scaled := scaler.fitTransform(featureMatrix(features))

	forest := newIsolationForest(contamination)
	if err := forest.Fit(scaled); err != nil {
		log.Printf("[異常検知@%s] Isolation Forestの学習に失敗しました: %v。Zスコア方式にフォールバックします", productID, err)
		return s.zScoreFallback(productID, series), nil
	}

	labels := forest.Predict(scaled)
	decisions := forest.DecisionFunction(scaled)

	s.cache.Put(productID, ModelCacheEntry{
		Artifact:   anomalyModelArtifact{forest: forest, scaler: scaler},
		TrainedAt:  s.now(),
		DataPoints: len(series),
	})

	points := make([]models.AnomalyPoint, 0, len(series))
	anomalies := 0
	for i, p := range series {
		isAnomaly := labels[i] == -1
		if isAnomaly {
			anomalies++
		}
		points = append(points, models.AnomalyPoint{
			Date:         p.Date.Format(dateLayout),
			Value:        p.QuantitySold,
			IsAnomaly:    isAnomaly,
			AnomalyScore: normalizeAnomalyScore(decisions[i]),
		})
	}

	log.Printf("[異常検知@%s] Isolation Forestにより %d/%d 件の異常を検出しました", productID, anomalies, len(series))

	return models.AnomalyResult{
		ProductID:          productID,
		AnomaliesDetected:  anomalies,
		AnomalyPoints:      points,
		ContaminationRate:  round2(float64(anomalies) / float64(len(series)) * 100),
		AnalysisPeriod:     formatAnalysisPeriod(series),
		Method:             MethodIsolationForest,
		DataPointsAnalyzed: len(series),
	}, nil
}

// normalizeAnomalyScore 決定関数の生値を[0,1]に正規化する。
// 生値が小さい（モデル上より異常な）点ほど高いスコアになる。
func normalizeAnomalyScore(raw float64) float64 {
	return round3(clamp(0.5-raw, 0, 1))
}

// zScoreFallback はデータ不足・学習失敗時の簡易統計方式。
// 販売数の平均と標本標準偏差からZスコアを計算し、z > 2.0 を異常とする。
// 分散がちょうど0の系列では全点を非異常（スコア0.0）として返す。
func (s *AnomalyService) zScoreFallback(productID string, series models.DailySeries) models.AnomalyResult {
	if len(series) == 0 {
		return models.AnomalyResult{
			ProductID:     productID,
			AnomalyPoints: []models.AnomalyPoint{},
			Method:        MethodInsufficientData,
		}
	}

	quantities := make([]float64, len(series))
	for i, p := range series {
		quantities[i] = p.QuantitySold
	}
	mean := calculateMean(quantities)
	stdDev := calculateSampleStdDev(quantities)

	if stdDev == 0 {
		points := make([]models.AnomalyPoint, 0, len(series))
		for _, p := range series {
			points = append(points, models.AnomalyPoint{
				Date:         p.Date.Format(dateLayout),
				Value:        p.QuantitySold,
				IsAnomaly:    false,
				AnomalyScore: 0.0,
			})
		}
		return models.AnomalyResult{
			ProductID:          productID,
			AnomaliesDetected:  0,
			AnomalyPoints:      points,
			AnalysisPeriod:     formatAnalysisPeriod(series),
			Method:             MethodZScoreNoVariance,
			DataPointsAnalyzed: len(series),
		}
	}

	points := make([]models.AnomalyPoint, 0, len(series))
	anomalies := 0
	for _, p := range series {
		z := math.Abs(p.QuantitySold-mean) / stdDev
		isAnomaly := z > zScoreThreshold
		if isAnomaly {
			anomalies++
		}
		points = append(points, models.AnomalyPoint{
			Date:         p.Date.Format(dateLayout),
			Value:        p.QuantitySold,
			IsAnomaly:    isAnomaly,
			AnomalyScore: round3(math.Min(1.0, z/3.0)), // 3σで上限
		})
	}

	return models.AnomalyResult{
		ProductID:          productID,
		AnomaliesDetected:  anomalies,
		AnomalyPoints:      points,
		AnalysisPeriod:     formatAnalysisPeriod(series),
		Method:             MethodZScore,
		DataPointsAnalyzed: len(series),
	}
}

// GenerateAnomalyAlerts は検知結果からアラートを生成する。
//   - スコア0.8超の異常が存在: high_anomalyアラート（直近3件を添付）
//   - 直近7日の異常平均が全体平均の半分未満: sudden_dropアラート（盗難・供給問題の可能性）
//   - 異常率が20%超: high_anomaly_rateアラート
func (s *AnomalyService) GenerateAnomalyAlerts(result models.AnomalyResult) []models.Alert {
	alerts := []models.Alert{}
	if result.AnomaliesDetected == 0 {
		return alerts
	}

	createdAt := s.now().Format("2006-01-02 15:04:05")

	var highScorePoints []models.AnomalyPoint
	for _, p := range result.AnomalyPoints {
		if p.IsAnomaly && p.AnomalyScore > 0.8 {
			highScorePoints = append(highScorePoints, p)
		}
	}
	if len(highScorePoints) > 0 {
		details := highScorePoints
		if len(details) > 3 {
			details = details[len(details)-3:]
		}
		alerts = append(alerts, models.Alert{
			ID:        uuid.NewString(),
			Type:      "high_anomaly",
			Severity:  "high",
			Message:   fmt.Sprintf("スコアの高い異常を%d件検出しました", len(highScorePoints)),
			Details:   details,
			CreatedAt: createdAt,
		})
	}

	// 直近7日の異常値が全体水準を大きく下回る場合は盗難・供給問題を疑う
	var recentAnomalies []models.AnomalyPoint
	cutoff := s.now().AddDate(0, 0, -7)
	for _, p := range result.AnomalyPoints {
		if !p.IsAnomaly {
			continue
		}
		if date, err := time.Parse(dateLayout, p.Date); err == nil && !date.Before(cutoff) {
			recentAnomalies = append(recentAnomalies, p)
		}
	}
	if len(recentAnomalies) > 0 {
		var recentSum, overallSum float64
		for _, p := range recentAnomalies {
			recentSum += p.Value
		}
		for _, p := range result.AnomalyPoints {
			overallSum += p.Value
		}
		recentAvg := recentSum / float64(len(recentAnomalies))
		overallAvg := overallSum / math.Max(1, float64(len(result.AnomalyPoints)))
		if recentAvg < overallAvg*0.5 {
			alerts = append(alerts, models.Alert{
				ID:        uuid.NewString(),
				Type:      "sudden_drop",
				Severity:  "high",
				Message:   fmt.Sprintf("売上の急減を検出しました（直近平均: %.2f, 全体平均: %.2f）。盗難または供給問題の可能性があります", round2(recentAvg), round2(overallAvg)),
				CreatedAt: createdAt,
			})
		}
	}

	if result.ContaminationRate > 20 {
		alerts = append(alerts, models.Alert{
			ID:             uuid.NewString(),
			Type:           "high_anomaly_rate",
			Severity:       "medium",
			Message:        fmt.Sprintf("異常率が%.1f%%と高くなっています", result.ContaminationRate),
			Recommendation: "データ品質の確認と、系統的な問題の調査を推奨します",
			CreatedAt:      createdAt,
		})
	}

	return alerts
}

// formatAnalysisPeriod 系列の分析期間を "開始 to 終了" 形式で返す。
func formatAnalysisPeriod(series models.DailySeries) string {
	if len(series) == 0 {
		return ""
	}
	return fmt.Sprintf("%s to %s",
		series[0].Date.Format(dateLayout),
		series[len(series)-1].Date.Format(dateLayout))
}

// standardScaler 列ごとの平均0・分散1への標準化（学習と適用は同一バッチ）
type standardScaler struct {
	mean   []float64
	stdDev []float64
}

// fitTransform は列統計を学習し、標準化した行列を返す。
// 分散0の列は平均を引くだけにする（ゼロ除算回避）。
func (sc *standardScaler) fitTransform(matrix [][]float64) [][]float64 {
	if len(matrix) == 0 {
		return matrix
	}
	dims := len(matrix[0])
	sc.mean = make([]float64, dims)
	sc.stdDev = make([]float64, dims)

	column := make([]float64, len(matrix))
	for d := 0; d < dims; d++ {
		for i, row := range matrix {
			column[i] = row[d]
		}
		sc.mean[d] = calculateMean(column)
		sc.stdDev[d] = calculatePopulationStdDev(column)
	}

	scaled := make([][]float64, len(matrix))
	for i, row := range matrix {
		scaled[i] = make([]float64, dims)
		for d := 0; d < dims; d++ {
			if sc.stdDev[d] > 0 {
				scaled[i][d] = (row[d] - sc.mean[d]) / sc.stdDev[d]
			} else {
				scaled[i][d] = row[d] - sc.mean[d]
			}
		}
	}
	return scaled
}
