package policy

import "github.com/xela07ax/kpi-dashboard/internal/domain"

// summedIndicators - originalId показателей, у которых агрегаты за 7/30 дней суммируются,
// а не усредняются. Чтобы показатель суммировался, достаточно добавить сюда его ID из таблицы.
var summedIndicators = map[string]struct{}{
	"nmero-de-vendas-totais":             {},
	"vendas-tratamento":                  {},
	"venda-tg":                           {},
	"nmero-de-vendas-humano":             {},
	"nmero-agendado":                     {},
	"total-de-vendas-r":                  {}, // Пост-продажи
	"nmero-de-estornos-tratamentosatend": {},
	"nmero-de-estornos-suplementos":      {},
	"estornos-realizadosdia-r":           {},
}

// ShouldSum решает, сумма или среднее. Пустой ID - среднее.
func ShouldSum(originalID string) bool {
	if originalID == "" {
		return false
	}
	_, ok := summedIndicators[originalID]
	return ok
}

// Aggregate - выбранная политикой пара значений и подписей для окон 7 и 30 дней
type Aggregate struct {
	Summed  bool
	Label7  string
	Value7  domain.Value
	Label30 string
	Value30 domain.Value
}

func AggregateFor(ind domain.Indicator) Aggregate {
	if ShouldSum(ind.OriginalID) {
		return Aggregate{
			Summed:  true,
			Label7:  "Soma 7 Dias",
			Value7:  ind.Sum7Days,
			Label30: "Soma 30 Dias",
			Value30: ind.Sum30Days,
		}
	}
	return Aggregate{
		Label7:  "Média 7 Dias",
		Value7:  ind.Average7Days,
		Label30: "Média 30 Dias",
		Value30: ind.Average30Days,
	}
}
