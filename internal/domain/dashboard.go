package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Format определяет правило отображения значения показателя
type Format string

const (
	FormatCurrency   Format = "currency"
	FormatPercentage Format = "percentage"
	FormatNumber     Format = "number" // По умолчанию
)

// ParseFormat приводит произвольную строку из таблицы к известному формату.
// Все неизвестное отображается как число.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCurrency:
		return FormatCurrency
	case FormatPercentage:
		return FormatPercentage
	default:
		return FormatNumber
	}
}

func (f *Format) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// null или мусор - формат по умолчанию
		*f = FormatNumber
		return nil
	}
	*f = ParseFormat(s)
	return nil
}

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

type DashboardData struct {
	Title       string    `json:"title"`
	Sectors     []Sector  `json:"sectors"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Sector - группа показателей (отдел компании). ID выводится из имени.
type Sector struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Description       string      `json:"description,omitempty"`
	Indicators        []Indicator `json:"indicators"`
	SectorObservation string      `json:"sectorObservation,omitempty"`
	SectorFilesLink   string      `json:"sectorFilesLink,omitempty"`
}

// Indicator - отслеживаемая метрика. ID уникален внутри сектора: "<sector>_<slug(name)>".
type Indicator struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Value         Value  `json:"value"`
	Unit          string `json:"unit,omitempty"`
	Format        Format `json:"format"`
	Target        Value  `json:"target,omitzero"`
	Average7Days  Value  `json:"average7Days,omitzero"`
	Average30Days Value  `json:"average30Days,omitzero"`
	Sum7Days      Value  `json:"sum7Days,omitzero"`
	Sum30Days     Value  `json:"sum30Days,omitzero"`
	Trend         Trend  `json:"trend,omitempty"`
	Description   string `json:"description,omitempty"`

	// Данные последней записи (таблица сама выбирает самую свежую)
	LastRecordObservation string `json:"lastRecordObservation,omitempty"`
	LastRecordFilesLink   string `json:"lastRecordFilesLink,omitempty"`

	OriginalID  string            `json:"originalId,omitempty"` // Ключ для политики суммирования
	IsMandatory bool              `json:"isMandatory"`
	History     []HistoricalPoint `json:"historicalData,omitempty"` // От новых к старым
}

type HistoricalPoint struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Value Value  `json:"value"`
}

// UnmarshalJSON выставляет isMandatory=true, если поле не пришло.
func (i *Indicator) UnmarshalJSON(data []byte) error {
	type plain Indicator
	aux := struct {
		*plain
		IsMandatory *bool `json:"isMandatory"`
	}{plain: (*plain)(i)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.IsMandatory = aux.IsMandatory == nil || *aux.IsMandatory
	if i.Format == "" {
		i.Format = FormatNumber
	}
	return nil
}

// FindIndicator ищет показатель по паре идентификаторов.
func (d *DashboardData) FindIndicator(sectorID, indicatorID string) (*Sector, *Indicator, bool) {
	if d == nil {
		return nil, nil, false
	}
	for si := range d.Sectors {
		s := &d.Sectors[si]
		if s.ID != sectorID {
			continue
		}
		for ii := range s.Indicators {
			if s.Indicators[ii].ID == indicatorID {
				return s, &s.Indicators[ii], true
			}
		}
	}
	return nil, nil, false
}
