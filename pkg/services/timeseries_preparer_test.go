package services

import (
	"testing"

	"shelfsense-api/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestPrepareDailySeriesAggregatesSameDay(t *testing.T) {
	// 同一日付のレコードは合算される
	records := []models.SalesRecord{
		{Date: "2025-06-02", ProductID: "P001", QuantitySold: 5, Revenue: 100.5},
		{Date: "2025-06-02", ProductID: "P001", QuantitySold: 7, Revenue: 200.25},
		{Date: "2025-06-03", ProductID: "P001", QuantitySold: 3, Revenue: 60.0},
	}

	series, err := PrepareDailySeries(records)
	assert.NoError(t, err)
	assert.Len(t, series, 2)

	assert.Equal(t, 12.0, series[0].QuantitySold)
	assert.Equal(t, 300.75, series[0].Revenue)
	assert.Equal(t, 3.0, series[1].QuantitySold)
}

func TestPrepareDailySeriesSortsByDate(t *testing.T) {
	// 入力順に関係なく日付昇順になる
	records := []models.SalesRecord{
		{Date: "2025-06-05", ProductID: "P001", QuantitySold: 1},
		{Date: "2025-06-01", ProductID: "P001", QuantitySold: 2},
		{Date: "2025-06-03", ProductID: "P001", QuantitySold: 3},
	}

	series, err := PrepareDailySeries(records)
	assert.NoError(t, err)
	assert.Len(t, series, 3)

	for i := 1; i < len(series); i++ {
		assert.True(t, series[i-1].Date.Before(series[i].Date), "系列は日付昇順であるべき")
	}
}

func TestPrepareDailySeriesRejectsInvalidDate(t *testing.T) {
	records := []models.SalesRecord{
		{Date: "06/02/2025", ProductID: "P001", QuantitySold: 5},
	}

	_, err := PrepareDailySeries(records)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestPrepareDailySeriesRejectsNegativeValues(t *testing.T) {
	// 負の販売数
	_, err := PrepareDailySeries([]models.SalesRecord{
		{Date: "2025-06-02", ProductID: "P001", QuantitySold: -1},
	})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// 負の売上
	_, err = PrepareDailySeries([]models.SalesRecord{
		{Date: "2025-06-02", ProductID: "P001", QuantitySold: 1, Revenue: -10},
	})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestPrepareDailySeriesEmptyInput(t *testing.T) {
	series, err := PrepareDailySeries(nil)
	assert.NoError(t, err)
	assert.Empty(t, series)
}
