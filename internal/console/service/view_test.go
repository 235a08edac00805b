package service

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/kpi-dashboard/internal/domain"
	"github.com/xela07ax/kpi-dashboard/internal/engine"
	"github.com/xela07ax/kpi-dashboard/internal/policy"
)

func indicator() domain.Indicator {
	return domain.Indicator{
		ID:            "vendas_ticket",
		Name:          "Ticket",
		Value:         domain.Number(80),
		Unit:          "dias",
		Format:        domain.FormatNumber,
		Target:        domain.Number(100),
		Average7Days:  domain.Number(120),
		Average30Days: domain.Text("N/D"),
		IsMandatory:   true,
		History: []domain.HistoricalPoint{
			{Date: "2024-05-03", Value: domain.Number(30)},
			{Date: "2024-05-02", Value: domain.Text("N/A")},
			{Date: "2024-05-01", Value: domain.Number(10)},
		},
	}
}

func TestDashboardView(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	ind := indicator()
	ind.LastRecordObservation = strings.Repeat("á", 70)

	st := engine.AppState{
		Status:        engine.StatusLoaded,
		Source:        engine.SourceSample,
		SourceMessage: "info",
		Data: &domain.DashboardData{
			Title:       "Indicadores Seven",
			LastUpdated: time.Date(2024, 5, 3, 15, 0, 0, 0, time.UTC),
			Sectors:     []domain.Sector{{ID: "vendas", Name: "Vendas", Indicators: []domain.Indicator{ind}}},
		},
	}

	v := NewViewBuilder(loc).Dashboard(st)
	assert.Equal(t, "03/05/2024, 12:00:00", v.LastUpdated)
	require.Len(t, v.Sectors, 1)
	require.Len(t, v.Sectors[0].Tiles, 1)

	tile := v.Sectors[0].Tiles[0]
	assert.Equal(t, "80 dias", tile.Value)
	assert.Equal(t, "100 dias", tile.Target)
	assert.Equal(t, "Média 7 Dias", tile.Label7)
	assert.Equal(t, "120 dias", tile.Value7)
	assert.Equal(t, "N/A", tile.Value30)
	assert.True(t, tile.IsMandatory)
	assert.True(t, strings.HasSuffix(tile.Observation, "..."))
	assert.Equal(t, 63, utf8.RuneCountInString(tile.Observation))
}

func TestTileWithoutTarget(t *testing.T) {
	ind := indicator()
	ind.Target = domain.Value{}
	ind.LastRecordObservation = "curta"

	tv := tile(ind)
	assert.Empty(t, tv.Target)
	assert.Equal(t, "curta", tv.Observation)
}

func TestDetailSummationLabels(t *testing.T) {
	ind := indicator()
	ind.OriginalID = "venda-tg"
	ind.Sum7Days = domain.Number(700)
	ind.Sum30Days = domain.Number(3000)

	d := NewViewBuilder(nil).Detail(domain.Sector{ID: "vendas", Name: "Vendas"}, ind)
	want := []MetricView{
		{Label: "Último Registro", Value: "80 dias"},
		{Label: "Soma 7 Dias", Value: "700 dias"},
		{Label: "Soma 30 Dias", Value: "3.000 dias"},
		{Label: "Meta", Value: "100 dias"},
	}
	if diff := cmp.Diff(want, d.Metrics); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestChart(t *testing.T) {
	c := chart(indicator())
	assert.True(t, c.Renderable)
	require.Len(t, c.Points, 2)

	// Старые точки первыми, нечисловые пропущены
	assert.Equal(t, "01/05", c.Points[0].Label)
	assert.Equal(t, 10.0, c.Points[0].Value)
	assert.Equal(t, "03/05", c.Points[1].Label)

	// Диапазон 10..30, отступ 2
	assert.Equal(t, [2]float64{8, 32}, c.YDomain)
}

func TestChartEdgeCases(t *testing.T) {
	ind := indicator()
	ind.History = nil
	c := chart(ind)
	assert.False(t, c.Renderable)
	assert.Equal(t, [2]float64{0, 100}, c.YDomain)

	// Одна точка: отступ 1, но график не рисуется
	ind.History = []domain.HistoricalPoint{{Date: "2024-05-01", Value: domain.Number(5.5)}}
	c = chart(ind)
	assert.False(t, c.Renderable)
	assert.Equal(t, [2]float64{4, 7}, c.YDomain)
}

func TestBars(t *testing.T) {
	ind := indicator()
	d := NewViewBuilder(nil).Detail(domain.Sector{}, ind)
	require.NotNil(t, d.Bars)

	b := d.Bars
	assert.Equal(t, 120.0, b.Scale)
	assert.InDelta(t, 83.33, b.TargetPercent, 0.01)
	require.Len(t, b.Items, 3)

	assert.InDelta(t, 66.67, b.Items[0].Percent, 0.01)
	assert.False(t, b.Items[0].MeetsTarget)
	assert.Equal(t, 100.0, b.Items[1].Percent)
	assert.True(t, b.Items[1].MeetsTarget)

	// Текстовое значение - серая полоса без процента
	assert.False(t, b.Items[2].Numeric)
	assert.Equal(t, "-", b.Items[2].Value)
	assert.Zero(t, b.Items[2].Percent)
}

func TestBarsSkipped(t *testing.T) {
	ind := indicator()
	ind.Target = domain.Text("N/D")
	assert.Nil(t, bars(ind, policy.AggregateFor(ind)))

	ind = indicator()
	ind.Value = domain.Text("N/A")
	ind.Average7Days = domain.Value{}
	ind.Average30Days = domain.Text("N/D")
	assert.Nil(t, bars(ind, policy.AggregateFor(ind)))
}

func TestBarsUndefinedAverage(t *testing.T) {
	ind := indicator()
	ind.Average30Days = domain.Value{}
	b := bars(ind, policy.AggregateFor(ind))
	require.NotNil(t, b)
	assert.Equal(t, "N/D", b.Items[2].Value)
}

func TestBarsParseTextValues(t *testing.T) {
	ind := indicator()
	ind.Value = domain.Text("56,40")
	ind.Target = domain.Number(50)
	ind.Average7Days = domain.Number(48)
	ind.Average30Days = domain.Text("N/D")

	b := bars(ind, policy.AggregateFor(ind))
	require.NotNil(t, b)
	assert.Equal(t, 56.4, b.Scale)

	require.Len(t, b.Items, 3)
	assert.True(t, b.Items[0].Numeric)
	assert.Equal(t, 100.0, b.Items[0].Percent)
	assert.True(t, b.Items[0].MeetsTarget)
	assert.Equal(t, "56,40 dias", b.Items[0].Value)

	assert.False(t, b.Items[1].MeetsTarget)
	assert.False(t, b.Items[2].Numeric)
}
