package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/domain"
	"github.com/xela07ax/kpi-dashboard/internal/infra"
)

const validDashboard = `{
	"title": "Planilha",
	"lastUpdated": "2024-05-02T13:45:00.000Z",
	"sectors": [{
		"id": "marketing",
		"name": "MARKETING",
		"indicators": [
			{"id": "marketing_a", "name": "A", "value": 155, "format": "number"},
			{"id": "marketing_b", "name": "B", "value": "N/D", "format": "percentage", "isMandatory": false}
		]
	}]
}`

func newTestClient(t *testing.T, h http.HandlerFunc) (*AppsScriptClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAppsScriptClient(srv.URL+"/exec", srv.Client(), zap.NewNop()), srv
}

func TestFetchDashboard_Success(t *testing.T) {
	fixed := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	var gotReq *http.Request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		_, _ = io.WriteString(w, validDashboard)
	})
	WithClock(func() time.Time { return fixed })(client)

	ctx := infra.WithTraceID(context.Background(), "trace-1")
	data, err := client.FetchDashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, gotReq.Method)
	assert.Equal(t, "1714644000000", gotReq.URL.Query().Get("_cacheBust"))
	assert.Equal(t, "no-cache", gotReq.Header.Get("Cache-Control"))
	assert.Equal(t, "trace-1", gotReq.Header.Get(infra.TraceHeader))

	assert.Equal(t, "Planilha", data.Title)
	assert.Equal(t, time.Date(2024, 5, 2, 13, 45, 0, 0, time.UTC), data.LastUpdated)
	require.Len(t, data.Sectors, 1)
	require.Len(t, data.Sectors[0].Indicators, 2)
	assert.Equal(t, domain.Number(155), data.Sectors[0].Indicators[0].Value)
	assert.True(t, data.Sectors[0].Indicators[0].IsMandatory)
	assert.Equal(t, domain.Text("N/D"), data.Sectors[0].Indicators[1].Value)
	assert.False(t, data.Sectors[0].Indicators[1].IsMandatory)
}

func TestFetchDashboard_MissingFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"title": "x"}`)
	})

	_, err := client.FetchDashboard(context.Background())
	var formatErr *RemoteFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, []string{"sectors", "lastUpdated"}, formatErr.Missing)
}

func TestFetchDashboard_InvalidJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>login</html>`)
	})

	_, err := client.FetchDashboard(context.Background())
	var formatErr *RemoteFormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestFetchDashboard_TopLevelErrorField(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error": "Planilha não encontrada", "title": "x", "sectors": [], "lastUpdated": "2024-01-01"}`)
	})

	_, err := client.FetchDashboard(context.Background())
	var svcErr *RemoteServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Contains(t, svcErr.Error(), "Planilha não encontrada")
	assert.False(t, svcErr.Temporary())
}

func TestFetchDashboard_Non2xx(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error": "quota"}`)
	})

	_, err := client.FetchDashboard(context.Background())
	var svcErr *RemoteServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusServiceUnavailable, svcErr.StatusCode)
	assert.Equal(t, 3*time.Second, svcErr.RetryAfter)
	assert.Contains(t, svcErr.Error(), "quota")
	assert.True(t, svcErr.Temporary())
}

func TestFetchDashboard_NotConfigured(t *testing.T) {
	client := NewAppsScriptClient("  ", nil, zap.NewNop())
	_, err := client.FetchDashboard(context.Background())
	assert.ErrorIs(t, err, ErrRemoteNotConfigured)
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]time.Time{
		`"2024-05-02T13:45:00-03:00"`: time.Date(2024, 5, 2, 16, 45, 0, 0, time.UTC),
		`"2024-05-02 08:00:00"`:       time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC),
		`"02/05/2024"`:                time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		`1714644000000`:               time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		got, ok, err := parseTimestamp(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.True(t, ok, raw)
		assert.True(t, want.Equal(got), raw)
	}

	_, ok, _ := parseTimestamp(json.RawMessage(`""`))
	assert.False(t, ok)
	_, ok, err := parseTimestamp(json.RawMessage(`"ontem"`))
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestSubmitRecord(t *testing.T) {
	var (
		gotContentType string
		gotEntry       domain.FormDataEntry
	)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotEntry)
		_, _ = io.WriteString(w, `{"status": "success", "message": "Registro salvo", "row": 12}`)
	})

	entry := domain.FormDataEntry{
		SectorID:    "logstica",
		SectorName:  "LOGÍSTICA",
		IndicatorID: "logstica_-saída-rochavera",
		Date:        "2024-05-02",
		Value:       domain.Text("75"),
	}
	res, err := client.SubmitRecord(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, DefaultSubmitContentType, gotContentType)
	assert.Equal(t, entry, gotEntry)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "Registro salvo", res.Message)
	assert.JSONEq(t, `12`, string(res.Extra["row"]))
}

func TestSubmitRecord_Errors(t *testing.T) {
	t.Run("domain error status", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status": "error", "message": "Indicador inválido"}`)
		})
		_, err := client.SubmitRecord(context.Background(), domain.FormDataEntry{})
		var subErr *SubmissionError
		require.ErrorAs(t, err, &subErr)
		assert.Equal(t, "Indicador inválido", subErr.DisplayMessage())
		assert.False(t, IsDuplicate(err))
	})

	t.Run("duplicate marker", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status": "error", "message": "DUPLICATE_ENTRY: Já existe um registro para esta data"}`)
		})
		_, err := client.SubmitRecord(context.Background(), domain.FormDataEntry{})
		require.Error(t, err)
		assert.True(t, IsDuplicate(err))

		var subErr *SubmissionError
		require.True(t, errors.As(err, &subErr))
		assert.Equal(t, "Já existe um registro para esta data", DisplayMessage(err))
	})

	t.Run("non-2xx without json", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := client.SubmitRecord(context.Background(), domain.FormDataEntry{})
		var subErr *SubmissionError
		require.ErrorAs(t, err, &subErr)
		assert.Equal(t, http.StatusBadGateway, subErr.StatusCode)
	})

	t.Run("custom content type", func(t *testing.T) {
		var ct string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ct = r.Header.Get("Content-Type")
			_, _ = io.WriteString(w, `{"status": "success"}`)
		}))
		defer srv.Close()
		client := NewAppsScriptClient(srv.URL, srv.Client(), zap.NewNop(), WithSubmitContentType("application/json"))
		_, err := client.SubmitRecord(context.Background(), domain.FormDataEntry{})
		require.NoError(t, err)
		assert.Equal(t, "application/json", ct)
	})
}
