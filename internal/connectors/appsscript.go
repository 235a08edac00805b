package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/domain"
	"github.com/xela07ax/kpi-dashboard/internal/infra"
)

const (
	// DefaultSubmitContentType - Apps Script не разбирает application/json в doPost без preflight,
	// поэтому тело уходит как текст.
	DefaultSubmitContentType = "text/plain;charset=utf-8"

	cacheBustParam = "_cacheBust"
	maxBodyBytes   = 16 << 20
)

// AppsScriptClient - клиент веб-приложения Google Apps Script, которое отдает DashboardData
// из таблицы и принимает новые записи.
type AppsScriptClient struct {
	endpoint    string
	httpClient  *http.Client
	contentType string
	logger      *zap.Logger
	now         func() time.Time
}

type ClientOption func(*AppsScriptClient)

func WithSubmitContentType(ct string) ClientOption {
	return func(c *AppsScriptClient) {
		if ct != "" {
			c.contentType = ct
		}
	}
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *AppsScriptClient) { c.now = now }
}

// NewAppsScriptClient создает клиент. Таймауты задаются контекстом запроса (см. engine.ReliabilityWrapper).
func NewAppsScriptClient(endpoint string, httpClient *http.Client, logger *zap.Logger, opts ...ClientOption) *AppsScriptClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &AppsScriptClient{
		endpoint:    strings.TrimSpace(endpoint),
		httpClient:  httpClient,
		contentType: DefaultSubmitContentType,
		logger:      logger.Named("apps-script"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDashboard забирает текущий снимок дашборда. Эндпоинт сам выбирает самые свежие
// значения по каждому показателю - клиент ничего не пересчитывает.
func (c *AppsScriptClient) FetchDashboard(ctx context.Context) (*domain.DashboardData, error) {
	if c.endpoint == "" {
		return nil, ErrRemoteNotConfigured
	}

	// 1. Cache-busting: уникальный параметр, чтобы промежуточные кэши не отдали старый JSON
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, &RemoteServiceError{Message: "invalid endpoint url", Cause: err}
	}
	q := u.Query()
	q.Set(cacheBustParam, strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &RemoteServiceError{Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(infra.TraceHeader, infra.TraceID(ctx))

	c.logger.Debug("fetching dashboard", zap.String("host", u.Host), zap.String("trace_id", infra.TraceID(ctx)))

	// 2. Транспорт
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteServiceError{Message: "dashboard request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &RemoteServiceError{StatusCode: resp.StatusCode, Message: "failed to read dashboard response", Cause: err}
	}

	// 3. Не-2xx: пытаемся достать поле error из тела
	if !isSuccess(resp.StatusCode) {
		svcErr := &RemoteServiceError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status from apps script: %s", resp.Status),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		var eb struct {
			Error any `json:"error"`
		}
		if json.Unmarshal(body, &eb) == nil && truthy(eb.Error) {
			svcErr.Message = fmt.Sprintf("apps script error: %v (status %d)", eb.Error, resp.StatusCode)
		}
		return nil, svcErr
	}

	// 4. Разбор и проверка структуры
	return decodeDashboard(body)
}

// SubmitRecord отправляет одну запись. Ответ всегда JSON вида {status, message}.
func (c *AppsScriptClient) SubmitRecord(ctx context.Context, entry domain.FormDataEntry) (*domain.SubmissionResult, error) {
	if c.endpoint == "" {
		return nil, ErrRemoteNotConfigured
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, &SubmissionError{Message: "failed to encode record", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &SubmissionError{Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", c.contentType)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(infra.TraceHeader, infra.TraceID(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SubmissionError{Message: "record submission failed", Cause: err}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &SubmissionError{StatusCode: resp.StatusCode, Message: "failed to read submission response", Cause: err}
	}
	c.logger.Debug("apps script submission response",
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", text),
		zap.String("indicator_id", entry.IndicatorID))

	var result domain.SubmissionResult
	if err := json.Unmarshal(text, &result); err != nil {
		if !isSuccess(resp.StatusCode) {
			return nil, newSubmissionError(resp.StatusCode, fmt.Sprintf("submission failed: %s", resp.Status), nil)
		}
		return nil, &SubmissionError{StatusCode: resp.StatusCode, Message: "invalid submission response", Cause: err}
	}

	if !isSuccess(resp.StatusCode) || strings.EqualFold(result.Status, "error") {
		msg := result.Message
		if msg == "" {
			msg = fmt.Sprintf("submission failed: %s", resp.Status)
		}
		return nil, newSubmissionError(resp.StatusCode, msg, nil)
	}

	return &result, nil
}

type dashboardPayload struct {
	Title       *string          `json:"title"`
	LastUpdated json.RawMessage  `json:"lastUpdated"`
	Sectors     *[]domain.Sector `json:"sectors"`
	Error       any              `json:"error"`
}

func decodeDashboard(body []byte) (*domain.DashboardData, error) {
	var p dashboardPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &RemoteFormatError{Cause: err}
	}

	// Поле error побеждает любой статус
	if truthy(p.Error) {
		return nil, &RemoteServiceError{StatusCode: http.StatusOK, Message: fmt.Sprintf("apps script returned error: %v", p.Error)}
	}

	var missing []string
	if p.Sectors == nil {
		missing = append(missing, "sectors")
	}
	lastUpdated, hasLastUpdated, err := parseTimestamp(p.LastUpdated)
	if !hasLastUpdated {
		missing = append(missing, "lastUpdated")
	}
	if p.Title == nil || *p.Title == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return nil, &RemoteFormatError{Missing: missing}
	}
	if err != nil {
		return nil, &RemoteFormatError{Cause: err}
	}

	return &domain.DashboardData{
		Title:       *p.Title,
		Sectors:     *p.Sectors,
		LastUpdated: lastUpdated,
	}, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// parseTimestamp приводит lastUpdated к UTC. Принимает ISO-8601, форматы таблицы и epoch в мс.
func parseTimestamp(raw json.RawMessage) (time.Time, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false, nil
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		if ms == 0 {
			return time.Time{}, false, nil
		}
		return time.UnixMilli(int64(ms)).UTC(), true, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, true, fmt.Errorf("lastUpdated: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, true, fmt.Errorf("lastUpdated: unsupported timestamp %q", s)
}

// truthy повторяет семантику проверки `if (data.error)` на стороне скрипта
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	default:
		return true
	}
}

func isSuccess(code int) bool { return code >= 200 && code < 300 }

func parseRetryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
