package services

import (
	"fmt"
	"math"
	"time"

	"shelfsense-api/pkg/models"
)

// seasonalModel is an additive seasonal regression over a daily series:
// a linear trend plus weekly Fourier harmonics, fit by ordinary least
// squares. Yearly components are deliberately absent (typical histories are
// far too short to estimate them), and a daily component degenerates to a
// constant at daily resolution, so the weekly harmonics carry all the
// periodic structure.
type seasonalModel struct {
	coef        []float64
	residualStd float64
	origin      time.Time
	harmonics   int
}

const (
	weeklyPeriod     = 7.0
	weeklyHarmonics  = 3
	z80Interval      = 1.2816 // 80%区間の正規分位点
	minPrimaryPoints = 14
)

// fitSeasonalModel は(日付, 販売数)ペアに加法季節回帰を当てはめる。
// 正規方程式をコレスキー分解で解く。要求するのは係数を識別できる
// 最小点数（k+1）だけで、主経路に切り替える閾値（minPrimaryPoints）の
// 判定は呼び出し側が持つ。バックテストの短い学習スライスでも
// 再学習できるようにするため。計画行列が退化している場合は
// エラーを返し、呼び出し側がフォールバックに切り替える。
func fitSeasonalModel(series models.DailySeries) (*seasonalModel, error) {
	n := len(series)
	k := 2 + 2*weeklyHarmonics
	if n <= k {
		return nil, fmt.Errorf("seasonal model: %d points cannot identify %d coefficients", n, k)
	}

	m := &seasonalModel{origin: series[0].Date, harmonics: weeklyHarmonics}

	X := make([][]float64, n)
	y := make([]float64, n)
	for i, p := range series {
		X[i] = m.designRow(p.Date)
		y[i] = p.QuantitySold
	}

	// 正規方程式 X'X b = X'y
	xtx := make([][]float64, k)
	xty := make([]float64, k)
	for a := 0; a < k; a++ {
		xtx[a] = make([]float64, k)
		for b := 0; b < k; b++ {
			var sum float64
			for t := 0; t < n; t++ {
				sum += X[t][a] * X[t][b]
			}
			xtx[a][b] = sum
		}
		var sum float64
		for t := 0; t < n; t++ {
			sum += X[t][a] * y[t]
		}
		xty[a] = sum
	}

	coef, err := solveCholesky(xtx, xty)
	if err != nil {
		return nil, fmt.Errorf("seasonal model: %w", err)
	}
	m.coef = coef

	// 残差の標準偏差（自由度補正あり）を不確実性区間の幅に使う
	var rss float64
	for t := 0; t < n; t++ {
		var pred float64
		for a := 0; a < k; a++ {
			pred += coef[a] * X[t][a]
		}
		res := y[t] - pred
		rss += res * res
	}
	dof := n - k
	if dof < 1 {
		dof = n
	}
	m.residualStd = math.Sqrt(rss / float64(dof))

	return m, nil
}

// designRow 指定日の計画行列の行: [1, t, sin/cos(2πkt/7)...]
func (m *seasonalModel) designRow(date time.Time) []float64 {
	t := date.Sub(m.origin).Hours() / 24.0
	row := make([]float64, 0, 2+2*m.harmonics)
	row = append(row, 1, t)
	for k := 1; k <= m.harmonics; k++ {
		angle := 2 * math.Pi * float64(k) * t / weeklyPeriod
		row = append(row, math.Sin(angle), math.Cos(angle))
	}
	return row
}

// predict 指定日の点予測を返す。
func (m *seasonalModel) predict(date time.Time) float64 {
	row := m.designRow(date)
	var pred float64
	for i, c := range m.coef {
		pred += c * row[i]
	}
	return pred
}

// intervalMargin 80%不確実性区間の片側幅
func (m *seasonalModel) intervalMargin() float64 {
	return z80Interval * m.residualStd
}
