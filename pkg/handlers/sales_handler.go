package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"shelfsense-api/pkg/models"
	"shelfsense-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// SalesHandler は販売実績の取り込み操作のハンドラです。
type SalesHandler struct {
	store *services.InventoryStore
}

// NewSalesHandler は新しいSalesHandlerを生成します。
func NewSalesHandler(store *services.InventoryStore) *SalesHandler {
	return &SalesHandler{
		store: store,
	}
}

// ImportSales はPOSエクスポート（.xlsx / .csv）から販売実績を取り込みます。
// ヘッダー行から日付・商品ID・販売数などの列を検出し、解析できた行のみを
// ストアに追記します。
func (h *SalesHandler) ImportSales(c *gin.Context) {
	c.Request.ParseMultipartForm(10 << 20) // 10MB limit

	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "ファイルの取得に失敗しました",
		})
		return
	}
	defer file.Close()

	var rows [][]string
	fileName := fileHeader.Filename

	if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		f, err := excelize.OpenReader(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Excelファイルの読み込みに失敗しました",
			})
			return
		}
		rows, err = f.GetRows(f.GetSheetName(0))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Excelシートの行取得に失敗しました",
			})
			return
		}
	} else if strings.HasSuffix(strings.ToLower(fileName), ".csv") {
		r := csv.NewReader(file)
		rows, err = r.ReadAll()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "CSVファイルの解析に失敗しました",
			})
			return
		}
	} else {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "サポートされていないファイル形式です。.xlsxまたは.csvをアップロードしてください",
		})
		return
	}

	if len(rows) < 2 { // ヘッダー行+最低1行のデータ
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "ファイルにはヘッダー行と少なくとも1行のデータが必要です",
		})
		return
	}

	header := rows[0]
	dataRows := rows[1:]

	// 列インデックスを検出
	dateColIdx := findIndex(header, "date", "日付")
	productIDColIdx := findIndex(header, "product_id", "product_code", "商品ID", "商品コード", "製品ID", "製品コード")
	quantityColIdx := findIndex(header, "quantity", "quantity_sold", "sales", "販売数", "数量")
	revenueColIdx := findIndex(header, "revenue", "amount", "売上金額", "売上")
	storeColIdx := findIndex(header, "store_id", "store", "店舗ID", "店舗")

	var missingCols []string
	if dateColIdx == -1 {
		missingCols = append(missingCols, "日付")
	}
	if productIDColIdx == -1 {
		missingCols = append(missingCols, "商品ID")
	}
	if quantityColIdx == -1 {
		missingCols = append(missingCols, "販売数")
	}
	if len(missingCols) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("必要な列が見つかりませんでした: %s。ファイルのヘッダー行を確認してください", strings.Join(missingCols, ", ")),
		})
		return
	}

	records := make([]models.SalesRecord, 0, len(dataRows))
	skipped := 0
	for _, row := range dataRows {
		if len(row) <= dateColIdx || len(row) <= productIDColIdx || len(row) <= quantityColIdx {
			skipped++
			continue
		}

		dateStr := strings.TrimSpace(row[dateColIdx])
		productID := strings.TrimSpace(row[productIDColIdx])
		quantityStr := strings.TrimSpace(row[quantityColIdx])

		t, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			t, err = time.Parse("2006/1/2", dateStr)
		}

		quantity, convErr := strconv.Atoi(quantityStr)
		if productID == "" || err != nil || convErr != nil || quantity < 0 {
			skipped++
			continue
		}

		record := models.SalesRecord{
			Date:         t.Format("2006-01-02"),
			ProductID:    productID,
			QuantitySold: quantity,
		}
		if revenueColIdx != -1 && len(row) > revenueColIdx {
			if revenue, err := strconv.ParseFloat(strings.TrimSpace(row[revenueColIdx]), 64); err == nil && revenue >= 0 {
				record.Revenue = revenue
			}
		}
		if storeColIdx != -1 && len(row) > storeColIdx {
			record.StoreID = strings.TrimSpace(row[storeColIdx])
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "解析できる販売データが1行もありませんでした",
		})
		return
	}

	counts := h.store.AppendSales(records)

	products := make([]string, 0, len(counts))
	for p := range counts {
		products = append(products, p)
	}
	sort.Strings(products)

	log.Printf("[販売取込] %s: %d行中%d件を取り込みました（スキップ%d件、商品%d種）",
		fileName, len(dataRows), len(records), skipped, len(products))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": models.SalesImportSummary{
			FileName:      fileName,
			RowsRead:      len(dataRows),
			RecordsLoaded: len(records),
			SkippedRows:   skipped,
			Products:      products,
		},
	})
}
