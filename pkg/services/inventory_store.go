package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"shelfsense-api/pkg/models"
)

// InventoryStore は商品カタログと販売実績を保持するインメモリストア。
// 本来はデータベースに置く情報だが、分析エンジンからは読み取り専用の
// 入力（現在庫・閾値・単価）として扱われる。
type InventoryStore struct {
	mu       sync.RWMutex
	products map[string]models.Product
	sales    map[string][]models.SalesRecord // productID -> 日付昇順ではない生レコード
}

// NewInventoryStore はデモ用の商品と販売実績を投入済みのストアを生成する。
func NewInventoryStore() *InventoryStore {
	store := &InventoryStore{
		products: make(map[string]models.Product),
		sales:    make(map[string][]models.SalesRecord),
	}
	store.seedDemoData(60)
	return store
}

// seedDemoData デモ用の商品カタログと決定的な販売実績を投入する
func (s *InventoryStore) seedDemoData(days int) {
	products := []models.Product{
		{ID: "P001", Name: "ミネラルウォーター", Category: "飲料", Price: 120, CurrentStock: 45, MinThreshold: 30},
		{ID: "P002", Name: "緑茶", Category: "飲料", Price: 150, CurrentStock: 80, MinThreshold: 40},
		{ID: "P003", Name: "コーヒー", Category: "飲料", Price: 180, CurrentStock: 12, MinThreshold: 25},
		{ID: "P004", Name: "アイスクリーム", Category: "冷菓", Price: 250, CurrentStock: 60, MinThreshold: 20},
		{ID: "P005", Name: "カップ麺", Category: "食品", Price: 210, CurrentStock: 150, MinThreshold: 50},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}

	base := time.Now().AddDate(0, 0, -days)
	for idx, p := range products {
		baseSales := 80 + idx*20
		records := make([]models.SalesRecord, 0, days)
		for i := 0; i < days; i++ {
			date := base.AddDate(0, 0, i)

			// 曜日効果: 週末は3割増
			sales := baseSales + (i%10)*5
			if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
				sales = sales * 13 / 10
			}
			// 異常な売上を意図的に挿入（検知デモ用）
			if i == days-5 {
				sales = baseSales * 3
			}
			if i == days-12 {
				sales = baseSales / 4
			}

			records = append(records, models.SalesRecord{
				Date:         date.Format(dateLayout),
				ProductID:    p.ID,
				StoreID:      "S01",
				QuantitySold: sales,
				Revenue:      float64(sales) * p.Price,
			})
		}
		s.sales[p.ID] = records
	}
}

// GetProduct は商品IDでカタログを引く。
func (s *InventoryStore) GetProduct(productID string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return models.Product{}, fmt.Errorf("商品が見つかりません (%s): %w", productID, ErrInvalidParameter)
	}
	return p, nil
}

// ListProducts は全商品をID順で返す。
func (s *InventoryStore) ListProducts() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

// SalesHistory は直近days日分の販売実績を返す。daysが0以下なら全件。
func (s *InventoryStore) SalesHistory(productID string, days int) []models.SalesRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.sales[productID]
	if days <= 0 {
		out := make([]models.SalesRecord, len(records))
		copy(out, records)
		return out
	}

	cutoff := time.Now().AddDate(0, 0, -days).Format(dateLayout)
	out := make([]models.SalesRecord, 0, len(records))
	for _, r := range records {
		if r.Date >= cutoff {
			out = append(out, r)
		}
	}
	return out
}

// AppendSales は販売実績を追記し、商品ごとの取り込み件数を返す。
// カタログに存在しない商品IDのレコードも受け入れる（商品は後から登録されうる）。
func (s *InventoryStore) AppendSales(records []models.SalesRecord) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, r := range records {
		s.sales[r.ProductID] = append(s.sales[r.ProductID], r)
		counts[r.ProductID]++
	}
	return counts
}

// UpdateStock は商品の現在庫を更新する。
func (s *InventoryStore) UpdateStock(productID string, currentStock int) error {
	if currentStock < 0 {
		return fmt.Errorf("在庫数が負の値です (%d): %w", currentStock, ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("商品が見つかりません (%s): %w", productID, ErrInvalidParameter)
	}
	p.CurrentStock = currentStock
	s.products[productID] = p
	return nil
}
