package domain

import "encoding/json"

// FormDataEntry - запись, которую пользователь вводит в форме и отправляем в таблицу.
// Локально не хранится: создали, отправили, забыли.
type FormDataEntry struct {
	SectorID      string `json:"sectorId"`
	SectorName    string `json:"sectorName"`
	IndicatorID   string `json:"indicatorId"`
	IndicatorName string `json:"indicatorName"`
	Date          string `json:"date"` // YYYY-MM-DD
	Value         Value  `json:"value"`
	Observation   string `json:"observation,omitempty"`
	FilesLink     string `json:"filesLink,omitempty"`
}

// SubmissionResult - ответ Apps Script на POST. Остальные поля непрозрачны и сохраняются как есть.
type SubmissionResult struct {
	Status  string                     `json:"status"` // "success" | "error"
	Message string                     `json:"message,omitempty"`
	Extra   map[string]json.RawMessage `json:"-"`
}

func (r *SubmissionResult) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	if raw, ok := all["status"]; ok {
		_ = json.Unmarshal(raw, &r.Status)
		delete(all, "status")
	}
	if raw, ok := all["message"]; ok {
		_ = json.Unmarshal(raw, &r.Message)
		delete(all, "message")
	}
	r.Extra = all
	return nil
}

type BatchStatusType string

const (
	BatchSuccess BatchStatusType = "success"
	BatchError   BatchStatusType = "error"
	BatchInfo    BatchStatusType = "info"
)

// BatchStatus - агрегированный итог отправки пачки записей.
type BatchStatus struct {
	BatchID   string          `json:"batch_id,omitempty"`
	Type      BatchStatusType `json:"type"`
	Message   string          `json:"message"`
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Items     []ItemOutcome   `json:"items,omitempty"`
}

type ItemOutcome struct {
	IndicatorID string `json:"indicator_id"`
	Date        string `json:"date"`
	OK          bool   `json:"ok"`
	Duplicate   bool   `json:"duplicate,omitempty"`
	Error       string `json:"error,omitempty"`
}
