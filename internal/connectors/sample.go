package connectors

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/xela07ax/kpi-dashboard/internal/domain"
)

// SampleTitle - заголовок встроенного набора данных
const SampleTitle = "Indicadores Seven"

// SampleConnector отдает встроенный набор секторов. Используется как запасной источник,
// когда Apps Script не настроен или недоступен, и как шаблон формы ввода.
type SampleConnector struct {
	latency time.Duration
	now     func() time.Time
	sectors []domain.Sector
}

// NewSampleConnector. latency имитирует сетевую задержку (0 - без задержки).
func NewSampleConnector(latency time.Duration) *SampleConnector {
	return &SampleConnector{
		latency: latency,
		now:     time.Now,
		sectors: buildSampleSectors(sampleSectors),
	}
}

func (c *SampleConnector) FetchDashboard(ctx context.Context) (*domain.DashboardData, error) {
	if c.latency > 0 {
		timer := time.NewTimer(c.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
			// Имитация работы
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &domain.DashboardData{
		Title:       SampleTitle,
		Sectors:     c.Sectors(),
		LastUpdated: c.now().UTC(),
	}, nil
}

// Sectors возвращает копию секторов: вызывающий код может менять срезы без последствий.
func (c *SampleConnector) Sectors() []domain.Sector {
	out := make([]domain.Sector, len(c.sectors))
	for i, s := range c.sectors {
		s.Indicators = append([]domain.Indicator(nil), s.Indicators...)
		out[i] = s
	}
	return out
}

var (
	reSpaces    = regexp.MustCompile(`\s+`)
	reNonWord   = regexp.MustCompile(`[^\w-]+`)
	reMultiDash = regexp.MustCompile(`--+`)
)

// Slugify строит ID из имени. Не-ASCII буквы выбрасываются ("NÚMERO" → "nmero"),
// на этих ID завязана политика суммирования, так что правило менять нельзя.
func Slugify(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	s = reSpaces.ReplaceAllString(s, "-")
	s = reNonWord.ReplaceAllString(s, "")
	return reMultiDash.ReplaceAllString(s, "-")
}

type sampleIndicator struct {
	name        string
	value       domain.Value
	format      domain.Format
	unit        string
	trend       domain.Trend
	target      *float64
	observation string
	filesLink   string
	optional    bool
}

type sampleSector struct {
	name        string
	description string
	observation string
	filesLink   string
	indicators  []sampleIndicator
}

func buildSampleSectors(defs []sampleSector) []domain.Sector {
	sectors := make([]domain.Sector, 0, len(defs))
	for _, def := range defs {
		sectorID := Slugify(def.name)
		seen := make(map[string]struct{}, len(def.indicators))
		indicators := make([]domain.Indicator, 0, len(def.indicators))
		for _, d := range def.indicators {
			ind := buildSampleIndicator(sectorID, d)
			if _, dup := seen[ind.ID]; dup {
				continue
			}
			seen[ind.ID] = struct{}{}
			indicators = append(indicators, ind)
		}
		sectors = append(sectors, domain.Sector{
			ID:                sectorID,
			Name:              def.name,
			Description:       def.description,
			Indicators:        indicators,
			SectorObservation: def.observation,
			SectorFilesLink:   def.filesLink,
		})
	}
	return sectors
}

func buildSampleIndicator(sectorID string, d sampleIndicator) domain.Indicator {
	slug := Slugify(d.name)
	format := d.format
	if format == "" {
		format = domain.FormatNumber
	}

	unit := d.unit
	if unit == "" {
		switch format {
		case domain.FormatPercentage:
			unit = "%"
		case domain.FormatCurrency:
			unit = "BRL"
		}
	}

	trend := d.trend
	if trend == "" {
		trend = domain.TrendStable
	}

	ind := domain.Indicator{
		ID:                    sectorID + "_" + slug,
		Name:                  d.name,
		Value:                 d.value,
		Unit:                  unit,
		Format:                format,
		Trend:                 trend,
		Description:           "Descrição para " + d.name,
		LastRecordObservation: d.observation,
		LastRecordFilesLink:   d.filesLink,
		OriginalID:            slug,
		IsMandatory:           !d.optional,
		Average7Days:          domain.Text("N/D"),
		Average30Days:         domain.Text("N/D"),
	}

	// Производные значения считаются только от чисел
	if v, ok := d.value.Float(); ok {
		ind.Target = domain.Number(roundHalfUp(v * 1.1))
		ind.Average7Days = domain.Number(roundHalfUp(v * 0.95))
		ind.Average30Days = domain.Number(roundHalfUp(v * 0.9))
	}
	if d.target != nil {
		ind.Target = domain.Number(*d.target)
	}
	return ind
}

// roundHalfUp округляет .5 вверх, в том числе для отрицательных (-2.5 → -2)
func roundHalfUp(v float64) float64 { return math.Floor(v + 0.5) }

func target(v float64) *float64 { return &v }

var sampleSectors = []sampleSector{
	{
		name:        "MARKETING",
		description: "Indicadores relacionados às estratégias e resultados de Marketing.",
		observation: "Campanha de Páscoa impulsionou as vendas. O bot esteve em manutenção, impactando sua conversão.",
		filesLink:   "https://example.com/marketing_reports_folder",
		indicators: []sampleIndicator{
			{name: "NÚMERO DE VENDAS TOTAIS", value: domain.Number(155), target: target(7), observation: "Aumento devido à campanha de Páscoa. Ver anexo para detalhes sobre a performance e ROI.", filesLink: "https://example.com/pascoa_report.pdf"},
		},
	},
	{
		name:        "PRÉ-VENDAS CONVERSÃO",
		description: "Indicadores de conversão da equipe de pré-vendas.",
		observation: "Fila de prospects alta pós-feriado. Equipe focada na redução. Número de indevidos ainda é um ponto de atenção.",
		indicators: []sampleIndicator{
			{name: "NÚMERO FILA PROSPECT (INÍCIO DE DIA)", value: domain.Number(150), trend: domain.TrendDown, target: target(10), observation: "Fila alta devido ao feriado prolongado. Equipe focada em reduzir nas próximas 48h."},
			{name: "NÚMERO DE FILA TREBLE", value: domain.Number(0), trend: domain.TrendDown, target: target(5), observation: "Novo indicador de fila Treble."},
			{name: "NÚMERO DE VENDAS HUMANO", value: domain.Number(15), format: domain.FormatPercentage, target: target(1350), filesLink: "https://example.com/human_sales_overview.docx", observation: "Vendas humanas estáveis, mas com potencial de crescimento."},
			{name: "CONVERSÃO HUMANO", value: domain.Number(24), format: domain.FormatPercentage, trend: domain.TrendUp, target: target(14), observation: "Melhoria na conversão de 2% após treinamento da equipe em novas técnicas de abordagem."},
		},
	},
	{
		name:        "PRÉ VENDAS COMPARECIMENTO",
		description: "Indicadores de comparecimento relacionados à pré-venda.",
		observation: "Nenhuma atividade de agendamento recente. Monitorar os próximos dias.",
		filesLink:   "https://example.com/prevendas_comparecimento_docs",
		indicators: []sampleIndicator{
			{name: "NÚMERO AGENDADO", value: domain.Number(0), format: domain.FormatPercentage, target: target(6550), observation: "Nenhum agendamento realizado no último dia."},
			{name: "% COMPARECIMENTO", value: domain.Number(0), format: domain.FormatPercentage, trend: domain.TrendUp, target: target(85), observation: "Sem agendamentos, sem taxa de comparecimento. Monitorar próximos eventos.", filesLink: "https://example.com/event_schedule.ics"},
		},
	},
	{
		name:        "COMERCIAL",
		description: "Indicadores de desempenho da equipe comercial.",
		observation: "Desempenho comercial estável. Sinais pendentes e outras pendências em redução, o que é positivo.",
		indicators: []sampleIndicator{
			{name: "VENDAS TRATAMENTO", value: domain.Number(0), trend: domain.TrendDown},
			{name: "VENDA TG", value: domain.Number(0), trend: domain.TrendDown},
			{name: "VENDA TG ASSISTIDO", value: domain.Number(0), format: domain.FormatCurrency, unit: "BRL", observation: "Valor de Teste de Genotipagem (TG) de vendas assistidas."},
			{name: "%TG", value: domain.Number(0), format: domain.FormatPercentage, target: target(40), filesLink: "https://example.com/tg_details.csv"},
			{name: "CONVERSÃO NO DIA", value: domain.Number(0), format: domain.FormatPercentage, target: target(60), observation: "Meta de conversão para o dia."},
			{name: "SINAIS PENDENTES (ACUMULADO)", value: domain.Number(0), trend: domain.TrendDown, observation: "Redução no número de sinais pendentes."},
			{name: "PENDÊNCIA PACIENTE/ASSINATURA (ACUMULADO)", value: domain.Number(0), trend: domain.TrendDown, filesLink: "https://example.com/pending_signatures.csv", observation: "Acompanhamento de assinaturas pendentes está em dia."},
		},
	},
	{
		name:        "PRÉ VENDAS: AGENDAMENTO COM NUTRIÇÃO",
		description: "Indicadores de agendamento com a equipe de nutrição.",
		observation: "Volume de leads e agendamentos dentro do esperado. Pendências de agendamento em queda.",
		filesLink:   "https://example.com/nutricao_agendamento_recursos",
		indicators: []sampleIndicator{
			{name: "NÚMERO QUE SUBIU EM LISTA", value: domain.Number(0), observation: "Volume de leads para nutrição dentro do esperado."},
			{name: "AGENDAMENTOS REALIZADOS", value: domain.Number(0), observation: "Agendamentos realizados pela equipe de nutrição."},
			{name: "AGENDAMENTOS REALIZADOS COM PRIORIDADE", value: domain.Number(0)},
			{name: "PENDÊNCIAS DE AGENDAMENTO (ACUMULADO MÊS)", value: domain.Number(0), trend: domain.TrendDown, filesLink: "https://example.com/nutri_scheduling_backlog.xlsx"},
		},
	},
	{
		name:        "NUTRIÇÃO",
		description: "Indicadores de desempenho e satisfação da equipe de nutrição.",
		observation: "Equipe de nutrição performando bem, com baixo absenteísmo e NPS alto. Nenhuma queixa registrada.",
		indicators: []sampleIndicator{
			{name: "% ABSENTEÍSMO", value: domain.Number(0), format: domain.FormatPercentage, trend: domain.TrendDown, target: target(20), observation: "Taxa de absenteísmo baixa, equipe completa."},
			{name: "PRIMEIRA CONSULTA (TRAT ANTIGO)", value: domain.Number(0)},
			{name: "INDICAÇÕES DE SUPLEMENTOS (TRAT ANTIGO)", value: domain.Number(0)},
			{name: "% INDICAÇÃO EM INÍCIO", value: domain.Number(0), format: domain.FormatPercentage, trend: domain.TrendUp, target: target(90), filesLink: "https://example.com/suplement_indication_rate.png"},
			{name: "QUEIXA DE CLIENTES/NPS", value: domain.Number(0), trend: domain.TrendDown, target: target(1), observation: "Nenhuma queixa registrada para a equipe de nutrição."},
			{name: "NOTA SATISFAÇÃO", value: domain.Number(0), unit: "/10", trend: domain.TrendUp, target: target(8.5)},
			{name: "NOTA NPS", value: domain.Number(0), trend: domain.TrendUp, target: target(900), observation: "NPS da nutrição se mantém alto."},
		},
	},
	{
		name:        "PÓS-VENDAS",
		description: "Indicadores do setor de pós-vendas.",
		indicators: []sampleIndicator{
			{name: "TOTAL DE OPORTUNIDADES", value: domain.Number(0), observation: "Total de oportunidades geradas no pós-vendas."},
			{name: "CONVERSÃO NO DIA", value: domain.Number(0), format: domain.FormatPercentage, observation: "Taxa de conversão do dia no pós-vendas."},
			{name: "TOTAL DE VENDAS R$", value: domain.Number(0), format: domain.FormatCurrency, unit: "BRL", observation: "Total de vendas em reais no pós-vendas."},
			{name: "NÚMERO PENDÊNCIAS PLANILHA (ACUMULADO)", value: domain.Number(0), observation: "Pendências acumuladas na planilha do pós-vendas."},
		},
	},
	{
		name:        "LOGÍSTICA",
		description: "Indicadores de operações logísticas.",
		observation: "Indicadores de performance logística atualizados. Monitoramento de entregas, custos e devoluções em andamento.",
		filesLink:   "https://example.com/logistica_procedimentos",
		indicators: []sampleIndicator{
			{name: "% De Entregas No Prazo - 30 dias", value: domain.Number(92), format: domain.FormatPercentage},
			{name: "% De Atraso - 30 dias", value: domain.Number(8), format: domain.FormatPercentage},
			{name: "Total De Devolução Nos Últimos - 30 dias", value: domain.Number(10)},
			{name: "Tempo Médio De Entrega - 30 dias", value: domain.Number(10), unit: "dias"},
			{name: "% De Divergentes - 30 dias", value: domain.Number(2), format: domain.FormatPercentage},
			{name: "% Saída Rochavera", value: domain.Number(75), format: domain.FormatPercentage},
			{name: "Custo Logístico (R$)", value: domain.Number(12.50), format: domain.FormatCurrency, unit: "BRL", optional: true},
			{name: "Custo De Retrabalho (R$)", value: domain.Number(12.50), format: domain.FormatCurrency, unit: "BRL", optional: true},
		},
	},
	{
		name:        "FINANCEIRO",
		description: "Indicadores financeiros da operação.",
		observation: "Controle de estornos eficiente, com pendências zeradas.",
		indicators: []sampleIndicator{
			{name: "NÚMERO DE ESTORNOS TRATAMENTOS/ATEND.", value: domain.Number(0), trend: domain.TrendDown, observation: "Controle de estornos de tratamentos efetivo."},
			{name: "NÚMERO DE ESTORNOS SUPLEMENTOS", value: domain.Number(0), trend: domain.TrendDown},
			{name: "ESTORNOS REALIZADOS/DIA (R$)", value: domain.Number(0), format: domain.FormatCurrency, unit: "BRL", trend: domain.TrendDown, filesLink: "https://example.com/daily_refunds.csv"},
			{name: "PENDÊNCIA DE ESTORNOS", value: domain.Number(0), trend: domain.TrendDown, observation: "Fila de pendências de estorno zerada."},
			{name: "TOTAL DE VENDAS (R$)", value: domain.Number(0), format: domain.FormatCurrency, unit: "BRL", target: target(4200000), observation: "Total de vendas em valor monetário."},
		},
	},
	{
		name:        "JORNADA CLIENTE",
		description: "Indicadores relacionados à experiência e satisfação do cliente.",
		observation: "Baixo volume de chamados SAC e queixas. Sem casos em aberto no Reclame Aqui.",
		filesLink:   "https://example.com/jornada_cliente_faq",
		indicators: []sampleIndicator{
			{name: "SAC: NÚMERO EM ABERTO", value: domain.Number(0), trend: domain.TrendDown, observation: "Poucos chamados SAC em aberto."},
			{name: "RETENÇÃO: NÚMERO EM ABERTO", value: domain.Number(0), trend: domain.TrendDown},
			{name: "SOLICITAÇÕES DE CANCELAMENTO DE AVALIAÇÕES", value: domain.Number(0), trend: domain.TrendDown},
			{name: "SOLICITAÇÃO DE CANCELAMENTO DE SUPLEMENTOS", value: domain.Number(0), trend: domain.TrendDown, observation: "Baixo número de solicitações de cancelamento de suplementos."},
			{name: "SOLICITAÇÕES DE CANCELAMENTO DE TRATAMENTOS", value: domain.Number(0), trend: domain.TrendDown},
			{name: "RECLAME AQUI: NOVOS CASOS", value: domain.Number(0), trend: domain.TrendDown},
			{name: "RECLAME AQUI: CASOS EM ABERTO", value: domain.Number(0), trend: domain.TrendDown, observation: "Nenhum caso em aberto no Reclame Aqui atualmente."},
		},
	},
}
