package services

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogEntry は単一のAPIリクエストの記録です。
type RequestLogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
}

// MonitoringService は分析APIのリクエストモニタリング機能を提供します。
type MonitoringService struct {
	logs []RequestLogEntry
	mu   sync.RWMutex
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService() *MonitoringService {
	return &MonitoringService{
		logs: make([]RequestLogEntry, 0),
	}
}

// LogRequest はリクエストを記録します。
func (s *MonitoringService) LogRequest(entry RequestLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// モニタリング・管理系のアクセスは集計対象から除外
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/monitoring") || strings.HasPrefix(path, "/api/v1/admin") {
			return
		}

		s.LogRequest(RequestLogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: time.Since(start),
		})
	}
}

// MonitoringSummary は指定期間のリクエストを集計したデータです。
type MonitoringSummary struct {
	TotalRequests     int               `json:"total_requests"`
	Endpoints         map[string]int    `json:"endpoints"`
	StatusCodes       map[string]int    `json:"status_codes"`
	AvgResponseTimeMs float64           `json:"avg_response_time_ms"`
	RecentErrors      []RequestLogEntry `json:"recent_errors"`
}

// GetSummary は直近periodHours時間のログを集計して返します。
func (s *MonitoringService) GetSummary(periodHours int) MonitoringSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := time.Now().Add(-time.Duration(periodHours) * time.Hour)
	summary := MonitoringSummary{
		Endpoints:    make(map[string]int),
		StatusCodes:  make(map[string]int),
		RecentErrors: make([]RequestLogEntry, 0),
	}

	var totalResponseTime time.Duration
	for _, entry := range s.logs {
		if entry.Timestamp.Before(since) {
			continue
		}
		summary.TotalRequests++
		summary.Endpoints[entry.Method+" "+entry.Path]++
		switch {
		case entry.StatusCode >= 500:
			summary.StatusCodes["5xx"]++
		case entry.StatusCode >= 400:
			summary.StatusCodes["4xx"]++
		default:
			summary.StatusCodes["2xx"]++
		}
		totalResponseTime += entry.ResponseTime

		if entry.StatusCode >= 400 {
			summary.RecentErrors = append(summary.RecentErrors, entry)
		}
	}

	if summary.TotalRequests > 0 {
		summary.AvgResponseTimeMs = float64(totalResponseTime.Milliseconds()) / float64(summary.TotalRequests)
	}
	// 直近のエラーは最大10件
	if len(summary.RecentErrors) > 10 {
		summary.RecentErrors = summary.RecentErrors[len(summary.RecentErrors)-10:]
	}

	return summary
}
