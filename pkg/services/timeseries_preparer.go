package services

import (
	"fmt"
	"sort"
	"time"

	"shelfsense-api/pkg/models"

	"github.com/shopspring/decimal"
)

// dateLayout 販売実績の日付形式
const dateLayout = "2006-01-02"

// PrepareDailySeries は取引単位のSalesRecordを日次系列に集約する。
// 同一日付のレコードは販売数・売上を合算し、日付昇順に並べ替える。
// 欠損日は補完しない（系列に穴があってもそのまま）。
// 不正なレコード（日付の解析不能、負の販売数・売上）はErrInvalidParameterを返す。
func PrepareDailySeries(records []models.SalesRecord) (models.DailySeries, error) {
	type dailyAgg struct {
		date     time.Time
		quantity int
		revenue  decimal.Decimal
	}

	aggMap := make(map[string]*dailyAgg)
	order := []string{}

	for _, r := range records {
		if r.QuantitySold < 0 {
			return nil, fmt.Errorf("販売数が負の値です (%s: %d): %w", r.Date, r.QuantitySold, ErrInvalidParameter)
		}
		if r.Revenue < 0 {
			return nil, fmt.Errorf("売上が負の値です (%s: %.2f): %w", r.Date, r.Revenue, ErrInvalidParameter)
		}
		date, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("日付の解析に失敗しました (%q): %w", r.Date, ErrInvalidParameter)
		}

		key := date.Format(dateLayout)
		agg, exists := aggMap[key]
		if !exists {
			agg = &dailyAgg{date: date, revenue: decimal.Zero}
			aggMap[key] = agg
			order = append(order, key)
		}
		agg.quantity += r.QuantitySold
		// 売上は金額なのでdecimalで合算し、浮動小数点の累積誤差を避ける
		agg.revenue = agg.revenue.Add(decimal.NewFromFloat(r.Revenue))
	}

	series := make(models.DailySeries, 0, len(order))
	for _, key := range order {
		agg := aggMap[key]
		series = append(series, models.DailyPoint{
			Date:         agg.date,
			QuantitySold: float64(agg.quantity),
			Revenue:      agg.revenue.InexactFloat64(),
		})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	return series, nil
}
