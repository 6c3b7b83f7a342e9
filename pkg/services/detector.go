package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"shelfsense-api/pkg/models"
)

// ProductDetector は外部の商品検出器（画像から商品数を数えるサービス）の
// 契約。どのプロバイダが応答したかにこのエンジンは依存せず、この形だけを
// 消費する。
type ProductDetector interface {
	Detect(ctx context.Context, image []byte) (models.DetectionResult, error)
}

// HTTPProductDetector はHTTP経由で検出器を呼び出す実装。
// 外部呼び出しは必ずタイムアウト付きで行う。
type HTTPProductDetector struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

// NewHTTPProductDetector 新しいHTTPProductDetectorを作成
func NewHTTPProductDetector(endpoint string, timeout time.Duration) *HTTPProductDetector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProductDetector{
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}
}

// Detect は画像を検出器に送信し、検出数と信頼度を受け取る。
func (d *HTTPProductDetector) Detect(ctx context.Context, image []byte) (models.DetectionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(image))
	if err != nil {
		return models.DetectionResult{}, fmt.Errorf("検出リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return models.DetectionResult{}, fmt.Errorf("商品検出器の呼び出しに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.DetectionResult{}, fmt.Errorf("商品検出器がステータス%dを返しました", resp.StatusCode)
	}

	var result models.DetectionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.DetectionResult{}, fmt.Errorf("検出結果の解析に失敗: %w", err)
	}
	return result, nil
}
