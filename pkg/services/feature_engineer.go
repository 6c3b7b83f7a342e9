package services

import (
	"math"

	"shelfsense-api/pkg/models"
)

// epsUnitPrice 単価計算でのゼロ除算回避用
const epsUnitPrice = 1e-8

// EngineerFeatures は日次系列から異常検知用の特徴量を導出する。
// 3日未満の系列では空の結果を返す（エラーではなく「特徴量ベースの
// モデリングには不十分」のシグナル）。
//
// 特徴量はすべて過去方向のみを参照する（look-aheadなし）:
//   - 7日トレーリング平均・標準偏差（先頭6日は部分ウィンドウ、最小1日）
//   - 曜日（0=月曜 .. 6=日曜）
//   - 1日差分・3日差分（系列が5点以上ある場合のみ、それ以外は0）
//   - 単価 = 売上 / (販売数 + ε)
//
// 非有限値（NaN/Inf）は直前の有効値で前方補完し、先頭は0とする。
func EngineerFeatures(series models.DailySeries) []models.FeatureVector {
	n := len(series)
	if n < 3 {
		return nil
	}

	quantity := make([]float64, n)
	revenue := make([]float64, n)
	mean7d := make([]float64, n)
	std7d := make([]float64, n)
	dayOfWeek := make([]float64, n)
	delta1d := make([]float64, n)
	delta3d := make([]float64, n)
	pricePerUnit := make([]float64, n)

	for i, p := range series {
		quantity[i] = p.QuantitySold
		revenue[i] = p.Revenue

		// 当日を含むトレーリングウィンドウ
		start := i - 6
		if start < 0 {
			start = 0
		}
		window := quantity[start : i+1]
		mean7d[i] = calculateMean(window)
		if len(window) >= 2 {
			std7d[i] = calculateSampleStdDev(window)
		} else {
			std7d[i] = math.NaN() // 1点の標本標準偏差は未定義
		}

		// pandasのdayofweek規約（0=月曜）
		dayOfWeek[i] = float64((int(p.Date.Weekday()) + 6) % 7)

		if n >= 5 {
			if i >= 1 {
				delta1d[i] = quantity[i] - quantity[i-1]
			} else {
				delta1d[i] = math.NaN()
			}
			if i >= 3 {
				delta3d[i] = quantity[i] - quantity[i-3]
			} else {
				delta3d[i] = math.NaN()
			}
		}

		pricePerUnit[i] = p.Revenue / (p.QuantitySold + epsUnitPrice)
	}

	for _, col := range [][]float64{quantity, revenue, mean7d, std7d, dayOfWeek, delta1d, delta3d, pricePerUnit} {
		forwardFillNonFinite(col)
	}

	features := make([]models.FeatureVector, n)
	for i := 0; i < n; i++ {
		features[i] = models.FeatureVector{
			Quantity:     quantity[i],
			Revenue:      revenue[i],
			Mean7d:       mean7d[i],
			Std7d:        std7d[i],
			DayOfWeek:    dayOfWeek[i],
			Delta1d:      delta1d[i],
			Delta3d:      delta3d[i],
			PricePerUnit: pricePerUnit[i],
		}
	}
	return features
}

// forwardFillNonFinite 非有限値を直前の有効値で置換する。有効値が未出現なら0。
func forwardFillNonFinite(values []float64) {
	lastValid := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if math.IsNaN(lastValid) {
				values[i] = 0
			} else {
				values[i] = lastValid
			}
		} else {
			lastValid = values[i]
		}
	}
}

// featureMatrix FeatureVectorの列を2次元スライスに展開する（モデル入力用）。
func featureMatrix(features []models.FeatureVector) [][]float64 {
	matrix := make([][]float64, len(features))
	for i, f := range features {
		matrix[i] = []float64{
			f.Quantity, f.Revenue, f.Mean7d, f.Std7d,
			f.DayOfWeek, f.Delta1d, f.Delta3d, f.PricePerUnit,
		}
	}
	return matrix
}
