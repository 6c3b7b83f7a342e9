package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdviseRestockCriticalWhenOutOfStock(t *testing.T) {
	// 在庫0・7日間需要70・安全在庫3日:
	// safety = 70 × 3/7 = 30, required = 100, 発注推奨 = 100
	advice, err := AdviseRestock(0, 70, 3)
	assert.NoError(t, err)
	assert.Equal(t, 100, advice.RecommendedQuantity)
	assert.Equal(t, 30, advice.SafetyStock)
	assert.Equal(t, 100, advice.TotalRequired)
	assert.Equal(t, "critical", advice.Urgency)
	assert.Equal(t, 0.0, advice.DaysOfStock)
}

func TestAdviseRestockSufficientStock(t *testing.T) {
	// 在庫が必要量を上回る場合は発注不要
	advice, err := AdviseRestock(500, 70, 3)
	assert.NoError(t, err)
	assert.Equal(t, 0, advice.RecommendedQuantity)
	assert.Equal(t, "low", advice.Urgency)
}

func TestAdviseRestockUrgencyLevels(t *testing.T) {
	// 日次需要10（週70）に対する在庫水準ごとの緊急度
	cases := []struct {
		stock   int
		urgency string
	}{
		{10, "critical"}, // 1日分
		{30, "high"},     // 3日分
		{70, "medium"},   // 7日分
		{150, "low"},     // 15日分
	}
	for _, tc := range cases {
		advice, err := AdviseRestock(tc.stock, 70, 3)
		assert.NoError(t, err)
		assert.Equal(t, tc.urgency, advice.Urgency, "在庫%dの場合", tc.stock)
	}
}

func TestAdviseRestockZeroDemand(t *testing.T) {
	// 需要0なら発注も0、在庫日数の分母は最低1で保護される
	advice, err := AdviseRestock(50, 0, 3)
	assert.NoError(t, err)
	assert.Equal(t, 0, advice.RecommendedQuantity)
	assert.Equal(t, "low", advice.Urgency)
	assert.Equal(t, 50.0, advice.DaysOfStock)
}

func TestAdviseRestockInvalidParameters(t *testing.T) {
	_, err := AdviseRestock(-1, 70, 3)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = AdviseRestock(10, -5, 3)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = AdviseRestock(10, 70, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = AdviseRestock(10, 70, 15)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
