package services

import (
	"fmt"
	"math"

	"shelfsense-api/pkg/models"
)

// AdviseRestock は予測需要と現在庫から発注推奨を計算する純粋関数。
//
//	safety_stock = 総予測需要 × (安全在庫日数/7)
//	required     = 総予測需要 + safety_stock
//	発注推奨数   = max(0, required - 現在庫)
//
// 在庫持ち日数に応じて緊急度を4段階で判定する（2日未満=critical、
// 5日未満=high、10日未満=medium、それ以外=low）。
func AdviseRestock(currentStock int, totalPredictedDemand float64, safetyStockDays int) (models.RestockAdvice, error) {
	if currentStock < 0 {
		return models.RestockAdvice{}, fmt.Errorf("現在庫が負の値です (%d): %w", currentStock, ErrInvalidParameter)
	}
	if safetyStockDays < 1 || safetyStockDays > 14 {
		return models.RestockAdvice{}, fmt.Errorf("安全在庫日数は1〜14日で指定してください (%d): %w", safetyStockDays, ErrInvalidParameter)
	}
	if totalPredictedDemand < 0 {
		return models.RestockAdvice{}, fmt.Errorf("総予測需要が負の値です (%.2f): %w", totalPredictedDemand, ErrInvalidParameter)
	}

	safetyStock := totalPredictedDemand * (float64(safetyStockDays) / 7.0)
	requiredStock := totalPredictedDemand + safetyStock
	reorderQuantity := math.Max(0, requiredStock-float64(currentStock))

	daysOfStock := float64(currentStock) / math.Max(1, totalPredictedDemand/7.0)

	var urgency string
	switch {
	case daysOfStock < 2:
		urgency = "critical"
	case daysOfStock < 5:
		urgency = "high"
	case daysOfStock < 10:
		urgency = "medium"
	default:
		urgency = "low"
	}

	return models.RestockAdvice{
		RecommendedQuantity: int(math.Round(reorderQuantity)),
		Urgency:             urgency,
		DaysOfStock:         math.Round(daysOfStock*10) / 10,
		SafetyStock:         int(math.Round(safetyStock)),
		TotalRequired:       int(math.Round(requiredStock)),
	}, nil
}
