package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/kpi-dashboard/internal/audit"
	"github.com/xela07ax/kpi-dashboard/internal/connectors"
	"github.com/xela07ax/kpi-dashboard/internal/domain"
	"github.com/xela07ax/kpi-dashboard/internal/infra"
)

type recordingJournal struct {
	mu     sync.Mutex
	events []audit.SubmissionEvent
}

func (j *recordingJournal) Record(e audit.SubmissionEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
}

// sheetServer имитирует Apps Script: сохраняет записи и отвечает дубликатом для заданного показателя.
type sheetServer struct {
	mu        sync.Mutex
	persisted []string
	duplicate string
}

func (s *sheetServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var entry domain.FormDataEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		_, _ = io.WriteString(w, `{"status": "error", "message": "invalid body"}`)
		return
	}
	if entry.IndicatorID == s.duplicate {
		_, _ = io.WriteString(w, `{"status": "error", "message": "DUPLICATE_ENTRY: Já existe um registro para este indicador nesta data."}`)
		return
	}
	s.mu.Lock()
	s.persisted = append(s.persisted, entry.IndicatorID)
	s.mu.Unlock()
	_, _ = io.WriteString(w, `{"status": "success", "message": "ok"}`)
}

func entries(ids ...string) []domain.FormDataEntry {
	out := make([]domain.FormDataEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.FormDataEntry{
			SectorID:    "comercial",
			IndicatorID: id,
			Date:        "2024-05-02",
			Value:       domain.Number(10),
		})
	}
	return out
}

func TestBatchSubmitter_DuplicateInMiddle(t *testing.T) {
	sheet := &sheetServer{duplicate: "comercial_b"}
	srv := httptest.NewServer(sheet)
	defer srv.Close()

	client := connectors.NewAppsScriptClient(srv.URL, srv.Client(), zap.NewNop())
	sink := NewReliabilityWrapper(client, testReliability(), nil, zap.NewNop())
	journal := &recordingJournal{}
	sub := NewBatchSubmitter(sink, time.Millisecond, journal, nil, zap.NewNop())

	ctx := infra.WithUserID(infra.WithTraceID(context.Background(), "trace-7"), "operator-1")
	status := sub.Submit(ctx, entries("comercial_a", "comercial_b", "comercial_c"))

	assert.Equal(t, domain.BatchError, status.Type)
	assert.Equal(t, 3, status.Total)
	assert.Equal(t, 1, status.Failed)
	assert.Equal(t, 2, status.Succeeded)
	assert.NotContains(t, status.Message, connectors.DuplicateMarker)
	assert.Equal(t, "Falha ao enviar 1 registro. Já existe um registro para este indicador nesta data.", status.Message)

	require.Len(t, status.Items, 3)
	assert.True(t, status.Items[0].OK)
	assert.True(t, status.Items[1].Duplicate)
	assert.True(t, status.Items[2].OK)

	// Записи 1 и 3 дошли до таблицы
	assert.Equal(t, []string{"comercial_a", "comercial_c"}, sheet.persisted)

	require.Len(t, journal.events, 3)
	assert.Equal(t, audit.StatusDuplicate, journal.events[1].Status)
	for _, e := range journal.events {
		assert.Equal(t, status.BatchID, e.BatchID)
		assert.Equal(t, "trace-7", e.TraceID)
		assert.Equal(t, "operator-1", e.Submitter)
	}
}

func TestBatchSubmitter_LastDuplicateMessageWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var entry domain.FormDataEntry
		_ = json.NewDecoder(r.Body).Decode(&entry)
		_, _ = io.WriteString(w, `{"status": "error", "message": "DUPLICATE_ENTRY: Registro de `+entry.IndicatorID+` já existe."}`)
	}))
	defer srv.Close()

	client := connectors.NewAppsScriptClient(srv.URL, srv.Client(), zap.NewNop())
	sub := NewBatchSubmitter(client, 0, nil, nil, zap.NewNop())

	status := sub.Submit(context.Background(), entries("a", "b", "c"))
	assert.Equal(t, 3, status.Failed)
	assert.Equal(t, "Falha ao enviar 3 de 3 registros. Registro de c já existe.", status.Message)
}

func TestBatchSubmitter_AllSucceed(t *testing.T) {
	srv := httptest.NewServer(&sheetServer{})
	defer srv.Close()

	client := connectors.NewAppsScriptClient(srv.URL, srv.Client(), zap.NewNop())
	sub := NewBatchSubmitter(client, 0, nil, nil, zap.NewNop())

	status := sub.Submit(context.Background(), entries("a", "b"))
	assert.Equal(t, domain.BatchSuccess, status.Type)
	assert.Equal(t, "2 registro(s) do setor foram salvos com sucesso!", status.Message)
}

func TestBatchSubmitter_FirstErrorAndCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status": "error", "message": "Planilha bloqueada"}`)
	}))
	defer srv.Close()

	client := connectors.NewAppsScriptClient(srv.URL, srv.Client(), zap.NewNop())
	sub := NewBatchSubmitter(client, 0, nil, nil, zap.NewNop())

	status := sub.Submit(context.Background(), entries("a", "b", "c"))
	assert.Equal(t, 3, status.Failed)
	assert.Equal(t, "Falha ao enviar 3 de 3 registros. Planilha bloqueada", status.Message)
}

func TestBatchSubmitter_PacingBetweenItems(t *testing.T) {
	srv := httptest.NewServer(&sheetServer{})
	defer srv.Close()

	client := connectors.NewAppsScriptClient(srv.URL, srv.Client(), zap.NewNop())
	sub := NewBatchSubmitter(client, 30*time.Millisecond, nil, nil, zap.NewNop())

	start := time.Now()
	status := sub.Submit(context.Background(), entries("a", "b", "c"))
	assert.Equal(t, 3, status.Succeeded)
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestBatchSubmitter_EdgeCases(t *testing.T) {
	notConfigured := NewBatchSubmitter(nil, 0, nil, nil, zap.NewNop())
	assert.False(t, notConfigured.Configured())
	status := notConfigured.Submit(context.Background(), entries("a"))
	assert.Equal(t, domain.BatchError, status.Type)
	assert.Equal(t, msgSubmitNotConfigured, status.Message)

	srv := httptest.NewServer(&sheetServer{})
	defer srv.Close()
	sheet := connectors.NewAppsScriptClient(srv.URL, srv.Client(), zap.NewNop())
	sub := NewBatchSubmitter(sheet, 0, nil, nil, zap.NewNop())

	status = sub.Submit(context.Background(), nil)
	assert.Equal(t, domain.BatchInfo, status.Type)
	assert.Equal(t, msgSubmitEmpty, status.Message)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status = sub.Submit(ctx, entries("a", "b"))
	assert.Equal(t, 2, status.Failed)
	assert.Contains(t, status.Items[0].Error, "not sent")
}
