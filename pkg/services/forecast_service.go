package services

import (
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"math/rand"
	"time"

	"shelfsense-api/pkg/models"
)

// 需要予測のタグ
const (
	ModelVersionPrimary  = "primary_v1"
	ModelVersionFallback = "fallback_v1"
	MethodSeasonalReg    = "seasonal_regression"
	MethodMovingAverage  = "moving_average"
)

const (
	maxForecastHorizon    = 30
	fallbackDefaultDemand = 5.0 // 実績が全くない場合の1日あたり想定需要
	fallbackConfidence    = 0.6
	defaultConfidence     = 0.7 // バックテスト失敗時の既定信頼度
)

// ForecastService 需要予測サービス
type ForecastService struct {
	cache *ModelCache
	now   func() time.Time
}

// NewForecastService 新しいForecastServiceを作成
func NewForecastService(cache *ModelCache) *ForecastService {
	return &ForecastService{
		cache: cache,
		now:   time.Now,
	}
}

// GenerateForecast は翌日からdaysAhead日分の需要予測を生成する。
//
// 判定方針（順に評価）:
//  1. 系列が14日未満なら移動平均フォールバック
//  2. 加法季節回帰（トレンド+週次周期、80%区間）を学習して予測
//  3. 学習・予測の失敗時も移動平均フォールバック
//
// データ不足でエラーを返すことはない。予測期間が[1,30]の範囲外の場合のみ
// ErrInvalidParameterを返す。seedはフォールバックのノイズ系列を固定する
// ためのもので、0の場合は入力から決定的に導出する。
func (s *ForecastService) GenerateForecast(productID string, series models.DailySeries, daysAhead int, seed int64) (models.ForecastResult, error) {
	if daysAhead < 1 || daysAhead > maxForecastHorizon {
		return models.ForecastResult{}, fmt.Errorf("予測期間は1〜%d日で指定してください (%d): %w", maxForecastHorizon, daysAhead, ErrInvalidParameter)
	}

	if len(series) < minPrimaryPoints {
		log.Printf("[需要予測@%s] データが%d件と少ないため移動平均方式を使用します", productID, len(series))
		return s.movingAverageFallback(productID, series, daysAhead, seed), nil
	}

	model, err := fitSeasonalModel(series)
	if err != nil {
		log.Printf("[需要予測@%s] 季節回帰モデルの学習に失敗しました: %v。移動平均方式にフォールバックします", productID, err)
		return s.movingAverageFallback(productID, series, daysAhead, seed), nil
	}

	s.cache.Put(productID, ModelCacheEntry{
		Artifact:   model,
		TrainedAt:  s.now(),
		DataPoints: len(series),
	})

	base := s.now()
	margin := model.intervalMargin()
	points := make([]models.ForecastPoint, 0, daysAhead)
	var total float64
	for i := 1; i <= daysAhead; i++ {
		date := base.AddDate(0, 0, i)
		pred := model.predict(date)
		point := models.ForecastPoint{
			Date:            date.Format(dateLayout),
			PredictedDemand: math.Max(0, round2(pred)),
			IntervalLower:   math.Max(0, round2(pred-margin)),
			IntervalUpper:   math.Max(0, round2(pred+margin)),
		}
		total += point.PredictedDemand
		points = append(points, point)
	}

	return models.ForecastResult{
		ProductID:            productID,
		ModelVersion:         ModelVersionPrimary,
		ForecastPoints:       points,
		TotalPredictedDemand: round2(total),
		ConfidenceScore:      s.estimateConfidence(series),
		Method:               MethodSeasonalReg,
		DataPointsUsed:       len(series),
	}, nil
}

// movingAverageFallback はデータ不足・学習失敗時の簡易予測。
// 直近min(7, 系列長)日の平均を基準に、平均1.0・標準偏差0.1の正規乱数を
// 乗じて各日の予測とする（完全に平坦な予測を避けるため）。乱数は
// シード固定で、同一入力・同一シードなら結果も同一になる。
func (s *ForecastService) movingAverageFallback(productID string, series models.DailySeries, daysAhead int, seed int64) models.ForecastResult {
	avg := fallbackDefaultDemand
	if len(series) > 0 {
		recent := len(series)
		if recent > 7 {
			recent = 7
		}
		var sum float64
		for _, p := range series[len(series)-recent:] {
			sum += p.QuantitySold
		}
		avg = sum / float64(recent)
	}

	if seed == 0 {
		seed = deriveFallbackSeed(productID, series, daysAhead)
	}
	rng := rand.New(rand.NewSource(seed))

	base := s.now()
	points := make([]models.ForecastPoint, 0, daysAhead)
	var total float64
	for i := 1; i <= daysAhead; i++ {
		variation := 1.0 + rng.NormFloat64()*0.1
		pred := math.Max(0, round2(avg*variation))
		points = append(points, models.ForecastPoint{
			Date:            base.AddDate(0, 0, i).Format(dateLayout),
			PredictedDemand: pred,
			IntervalLower:   round2(pred * 0.8),
			IntervalUpper:   round2(pred * 1.2),
		})
		total += pred
	}

	return models.ForecastResult{
		ProductID:            productID,
		ModelVersion:         ModelVersionFallback,
		ForecastPoints:       points,
		TotalPredictedDemand: round2(total),
		ConfidenceScore:      fallbackConfidence,
		Method:               MethodMovingAverage,
		DataPointsUsed:       len(series),
	}
}

// estimateConfidence は末尾20%をホールドアウトにしたバックテストで
// 予測の信頼度を推定する。ホールドアウトに対するMAPEから
// clamp(1 - MAPE/100, 0.3, 0.95) を信頼度とする。
// バックテストに失敗しても予測の提供は妨げず、既定値0.7を返す。
func (s *ForecastService) estimateConfidence(series models.DailySeries) float64 {
	if len(series) < 7 {
		return fallbackConfidence
	}

	trainSize := int(float64(len(series)) * 0.8)
	if trainSize < 1 || trainSize >= len(series) {
		return defaultConfidence
	}
	train := series[:trainSize]
	holdout := series[trainSize:]

	model, err := fitSeasonalModel(train)
	if err != nil {
		return defaultConfidence
	}

	var mapeSum float64
	for _, p := range holdout {
		pred := model.predict(p.Date)
		mapeSum += math.Abs(p.QuantitySold-pred) / (p.QuantitySold + 1e-8)
	}
	mape := mapeSum / float64(len(holdout)) * 100

	return round2(clamp(1-mape/100, 0.3, 0.95))
}

// deriveFallbackSeed は商品ID・系列末尾・予測期間から決定的にシードを導出する。
// 同じ入力での再実行が同じ予測を返すことを保証する。
func deriveFallbackSeed(productID string, series models.DailySeries, daysAhead int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|", productID, daysAhead)
	if len(series) > 0 {
		fmt.Fprintf(h, "%s|%d", series[len(series)-1].Date.Format(dateLayout), len(series))
	}
	return int64(h.Sum64())
}
