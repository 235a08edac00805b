package engine

import "github.com/xela07ax/kpi-dashboard/internal/domain"

// uniqueBy оставляет первое вхождение каждого ключа. Пустые ключи выбрасываются.
func uniqueBy[T any](items []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

// normalize: принудительный заголовок и дедупликация секторов и показателей.
// Возвращает новый объект, исходный не меняется.
func normalize(d *domain.DashboardData, title string) *domain.DashboardData {
	out := *d
	if title != "" {
		out.Title = title
	}

	sectors := uniqueBy(d.Sectors, func(s domain.Sector) string { return s.ID })
	for i := range sectors {
		sectors[i].Indicators = uniqueBy(sectors[i].Indicators, func(ind domain.Indicator) string { return ind.ID })
	}
	out.Sectors = sectors
	return &out
}
