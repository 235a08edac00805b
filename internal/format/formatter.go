// Package format превращает сырые значения показателей в строки для отображения
// по правилам pt-BR: валюта, проценты и обычные числа.
package format

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/xela07ax/kpi-dashboard/internal/domain"
)

const (
	// DefaultCurrency используется, если unit не похож на ISO-код
	DefaultCurrency = "BRL"

	// maxNumberDecimals - потолок для формата number (точность источника сохраняется до него)
	maxNumberDecimals = 10
	fixedDecimals     = 2
)

// Точные совпадения. Пустая строка и "#NUM!" проверяются отдельно.
var sentinels = map[string]struct{}{
	"N/A": {},
	"N/D": {},
	"-":   {},
}

// IsSentinel сообщает, что значение означает «нет данных» и не должно парситься.
func IsSentinel(v domain.Value) bool {
	if v.IsZero() {
		return true
	}
	if !v.IsText() {
		return false
	}
	raw := v.Raw()
	if _, ok := sentinels[raw]; ok {
		return true
	}
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || strings.ToUpper(trimmed) == "#NUM!"
}

// Formatter форматирует значения. Placeholder различается по месту вызова:
// плитки списка показывают "N/A", детальная карточка и графики - "-".
type Formatter struct {
	Placeholder string
	Lang        language.Tag
}

var (
	Tile   = Formatter{Placeholder: "N/A", Lang: language.BrazilianPortuguese}
	Detail = Formatter{Placeholder: "-", Lang: language.BrazilianPortuguese}
)

// Format никогда не падает и всегда возвращает строку для отображения.
func (f Formatter) Format(v domain.Value, kind domain.Format, unit string) string {
	if IsSentinel(v) {
		return f.Placeholder
	}

	n, decimals, ok := numeric(v)
	if !ok {
		raw := v.Raw()
		if unit != "" && !strings.Contains(raw, unit) {
			return raw + " " + unit
		}
		return raw
	}

	p := message.NewPrinter(f.lang())

	switch kind {
	case domain.FormatCurrency:
		return f.currency(p, n, unit)
	case domain.FormatPercentage:
		s := decimal(p, n, fixedDecimals)
		if unit == "" || unit == "%" {
			return s + "%"
		}
		return s + " " + unit
	default:
		if decimals > maxNumberDecimals {
			decimals = maxNumberDecimals
		}
		s := decimal(p, n, decimals)
		if unit != "" && !strings.HasSuffix(s, unit) {
			s += " " + unit
		}
		return s
	}
}

func (f Formatter) lang() language.Tag {
	if f.Lang == language.Und {
		return language.BrazilianPortuguese
	}
	return f.Lang
}

func (f Formatter) currency(p *message.Printer, n float64, unit string) string {
	code := DefaultCurrency
	if len(unit) == 3 {
		code = strings.ToUpper(unit)
	}
	cur, err := currency.ParseISO(code)
	if err != nil {
		cur = currency.BRL
	}

	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	// Символ и число печатаем раздельно: разделители берем из number, символ - из currency
	return sign + p.Sprint(currency.Symbol(cur)) + "\u00a0" + decimal(p, n, fixedDecimals)
}

func decimal(p *message.Printer, n float64, digits int) string {
	return p.Sprint(number.Decimal(n,
		number.MinFractionDigits(digits),
		number.MaxFractionDigits(digits),
	))
}

// Number читает значение как число: числа как есть, строки в бразильской нотации.
// Сентинелы числом не считаются.
func Number(v domain.Value) (float64, bool) {
	if IsSentinel(v) {
		return 0, false
	}
	n, _, ok := numeric(v)
	return n, ok
}

// numeric извлекает число и количество знаков после запятой в источнике.
// Строки читаются в бразильской нотации: первая запятая - десятичный разделитель.
// Хвост без цифр после числа ("75%", "12,5x") отбрасывается.
func numeric(v domain.Value) (float64, int, bool) {
	if n, ok := v.Float(); ok {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, 0, false
		}
		return n, sourceDecimals(strconv.FormatFloat(n, 'f', -1, 64)), true
	}

	raw := strings.TrimSpace(v.Raw())
	s := strings.Replace(raw, ",", ".", 1)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, 0, false
		}
		return n, sourceDecimals(s), true
	}

	// Точка из самой строки перед хвостом - разделитель тысяч ("1.234 dias"), такое не читаем
	end := leadingNumber(s)
	if end == 0 || strings.Contains(raw[:end], ".") || strings.ContainsAny(s[end:], "0123456789") {
		return 0, 0, false
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsInf(n, 0) {
		return 0, 0, false
	}
	return n, sourceDecimals(s[:end]), true
}

// leadingNumber возвращает длину десятичного числа в начале s, 0 - числа нет.
func leadingNumber(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}
	return end
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func sourceDecimals(s string) int {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	frac := s[i+1:]
	if j := strings.IndexAny(frac, "eE"); j >= 0 {
		frac = frac[:j]
	}
	return len(frac)
}
