package service

import (
	"math"
	"time"

	"github.com/xela07ax/kpi-dashboard/internal/domain"
	"github.com/xela07ax/kpi-dashboard/internal/engine"
	"github.com/xela07ax/kpi-dashboard/internal/format"
	"github.com/xela07ax/kpi-dashboard/internal/policy"
)

const (
	observationPreviewRunes = 60
	lastUpdatedLayout       = "02/01/2006, 15:04:05"
	historyDateLayout       = "2006-01-02"
	chartDateLayout         = "02/01"

	labelLastRecord = "Último Registro"
	labelTarget     = "Meta"
	notAvailable    = "N/D"
)

// DashboardView - готовая к отрисовке модель дашборда (плитки по секторам)
type DashboardView struct {
	Title         string            `json:"title"`
	LastUpdated   string            `json:"last_updated"`
	Source        engine.DataSource `json:"source"`
	SourceMessage string            `json:"source_message,omitempty"`
	Warning       string            `json:"warning,omitempty"`
	Sectors       []SectorView      `json:"sectors"`
}

type SectorView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Observation string     `json:"observation,omitempty"`
	FilesLink   string     `json:"files_link,omitempty"`
	Tiles       []TileView `json:"tiles"`
}

type TileView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Value       string       `json:"value"`
	Target      string       `json:"target,omitempty"`
	Label7      string       `json:"label_7d"`
	Value7      string       `json:"value_7d"`
	Label30     string       `json:"label_30d"`
	Value30     string       `json:"value_30d"`
	Trend       domain.Trend `json:"trend,omitempty"`
	Observation string       `json:"observation,omitempty"` // Превью, не длиннее 60 символов
	FilesLink   string       `json:"files_link,omitempty"`
	IsMandatory bool         `json:"is_mandatory"`
}

// DetailView - карточка показателя: метрики, график истории и полосы значение/цель
type DetailView struct {
	SectorID    string       `json:"sector_id"`
	SectorName  string       `json:"sector_name"`
	IndicatorID string       `json:"indicator_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Metrics     []MetricView `json:"metrics"`
	Observation string       `json:"observation,omitempty"`
	FilesLink   string       `json:"files_link,omitempty"`
	Chart       ChartView    `json:"chart"`
	Bars        *BarsView    `json:"bars,omitempty"`
}

type MetricView struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ChartView - числовая история от старых к новым. Renderable=false, если точек меньше двух.
type ChartView struct {
	Renderable bool         `json:"renderable"`
	Points     []ChartPoint `json:"points"`
	YDomain    [2]float64   `json:"y_domain"`
}

type ChartPoint struct {
	Date      string  `json:"date"`
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

// BarsView - полосы в общей шкале (максимум модулей цели и значений)
type BarsView struct {
	Target        string    `json:"target"`
	TargetPercent float64   `json:"target_percent"`
	Scale         float64   `json:"scale"`
	Items         []BarView `json:"items"`
}

type BarView struct {
	Label       string  `json:"label"`
	Value       string  `json:"value"`
	Numeric     bool    `json:"numeric"`
	Percent     float64 `json:"percent"`
	MeetsTarget bool    `json:"meets_target"`
}

// ViewBuilder собирает view-модели из снимка состояния. Не хранит состояния кроме часового пояса.
type ViewBuilder struct {
	loc *time.Location
}

func NewViewBuilder(loc *time.Location) *ViewBuilder {
	if loc == nil {
		loc = time.UTC
	}
	return &ViewBuilder{loc: loc}
}

func (b *ViewBuilder) Dashboard(st engine.AppState) *DashboardView {
	d := st.Data
	v := &DashboardView{
		Title:         d.Title,
		LastUpdated:   b.timestamp(d.LastUpdated),
		Source:        st.Source,
		SourceMessage: st.SourceMessage,
		Warning:       st.Warning,
		Sectors:       make([]SectorView, 0, len(d.Sectors)),
	}

	for _, s := range d.Sectors {
		sv := SectorView{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Observation: s.SectorObservation,
			FilesLink:   s.SectorFilesLink,
			Tiles:       make([]TileView, 0, len(s.Indicators)),
		}
		for _, ind := range s.Indicators {
			sv.Tiles = append(sv.Tiles, tile(ind))
		}
		v.Sectors = append(v.Sectors, sv)
	}
	return v
}

func (b *ViewBuilder) timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(b.loc).Format(lastUpdatedLayout)
}

func tile(ind domain.Indicator) TileView {
	f := format.Tile
	agg := policy.AggregateFor(ind)

	t := TileView{
		ID:          ind.ID,
		Name:        ind.Name,
		Value:       f.Format(ind.Value, ind.Format, ind.Unit),
		Label7:      agg.Label7,
		Value7:      f.Format(agg.Value7, ind.Format, ind.Unit),
		Label30:     agg.Label30,
		Value30:     f.Format(agg.Value30, ind.Format, ind.Unit),
		Trend:       ind.Trend,
		Observation: preview(ind.LastRecordObservation),
		FilesLink:   ind.LastRecordFilesLink,
		IsMandatory: ind.IsMandatory,
	}
	if !ind.Target.IsZero() {
		t.Target = f.Format(ind.Target, ind.Format, ind.Unit)
	}
	return t
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= observationPreviewRunes {
		return s
	}
	return string(r[:observationPreviewRunes]) + "..."
}

func (b *ViewBuilder) Detail(sector domain.Sector, ind domain.Indicator) *DetailView {
	f := format.Detail
	agg := policy.AggregateFor(ind)

	v := &DetailView{
		SectorID:    sector.ID,
		SectorName:  sector.Name,
		IndicatorID: ind.ID,
		Name:        ind.Name,
		Description: ind.Description,
		Metrics: []MetricView{
			{Label: labelLastRecord, Value: f.Format(ind.Value, ind.Format, ind.Unit)},
			{Label: agg.Label7, Value: f.Format(agg.Value7, ind.Format, ind.Unit)},
			{Label: agg.Label30, Value: f.Format(agg.Value30, ind.Format, ind.Unit)},
			{Label: labelTarget, Value: f.Format(ind.Target, ind.Format, ind.Unit)},
		},
		Observation: ind.LastRecordObservation,
		FilesLink:   ind.LastRecordFilesLink,
		Chart:       chart(ind),
		Bars:        bars(ind, agg),
	}
	return v
}

func chart(ind domain.Indicator) ChartView {
	// 1. Только числовые точки; история приходит от новых к старым
	points := make([]ChartPoint, 0, len(ind.History))
	for i := len(ind.History) - 1; i >= 0; i-- {
		p := ind.History[i]
		n, ok := p.Value.Float()
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			continue
		}
		points = append(points, ChartPoint{
			Date:      p.Date,
			Label:     chartLabel(p.Date),
			Value:     n,
			Formatted: format.Detail.Format(p.Value, ind.Format, ind.Unit),
		})
	}

	// 2. Ось Y: диапазон плюс 10% (или 1 для плоской линии)
	c := ChartView{Renderable: len(points) > 1, Points: points, YDomain: [2]float64{0, 100}}
	if len(points) == 0 {
		return c
	}
	lo, hi := points[0].Value, points[0].Value
	for _, p := range points[1:] {
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	c.YDomain = [2]float64{math.Floor(lo - pad), math.Ceil(hi + pad)}
	return c
}

func chartLabel(date string) string {
	t, err := time.Parse(historyDateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(chartDateLayout)
}

func bars(ind domain.Indicator, agg policy.Aggregate) *BarsView {
	target, ok := ind.Target.Float()
	if !ok {
		return nil
	}

	series := []struct {
		label string
		value domain.Value
	}{
		{labelLastRecord, ind.Value},
		{agg.Label7, agg.Value7},
		{agg.Label30, agg.Value30},
	}

	// Панель строится, только если хотя бы одно значение пришло числом
	anyNumeric := false
	for _, s := range series {
		if _, ok := s.value.Float(); ok {
			anyNumeric = true
		}
	}
	if !anyNumeric {
		return nil
	}

	// Отдельная полоса читает и строки ("56,40") так же, как форматтер
	scale := math.Abs(target)
	for _, s := range series {
		if n, ok := format.Number(s.value); ok {
			scale = math.Max(scale, math.Abs(n))
		}
	}

	f := format.Detail
	v := &BarsView{
		Target:        f.Format(ind.Target, ind.Format, ind.Unit),
		TargetPercent: percentOf(target, scale),
		Scale:         scale,
		Items:         make([]BarView, 0, len(series)),
	}
	for _, s := range series {
		bar := BarView{Label: s.label, Value: notAvailable}
		if !s.value.IsZero() {
			bar.Value = f.Format(s.value, ind.Format, ind.Unit)
		}
		if n, ok := format.Number(s.value); ok {
			bar.Numeric = true
			bar.Percent = percentOf(n, scale)
			bar.MeetsTarget = n >= target
		}
		v.Items = append(v.Items, bar)
	}
	return v
}

func percentOf(v, scale float64) float64 {
	if scale == 0 {
		return 0
	}
	return math.Max(0, math.Min(100, v/scale*100))
}
