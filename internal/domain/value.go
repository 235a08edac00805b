package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type valueKind uint8

const (
	kindAbsent valueKind = iota
	kindNumber
	kindText
)

// Value - значение показателя из таблицы: число, строка-заглушка ("N/A", "N/D", "-", "#NUM!")
// или отсутствие значения. Таблица отдает оба типа вперемешку, поэтому храним исходный вид.
type Value struct {
	kind valueKind
	num  float64
	text string
}

func Number(f float64) Value { return Value{kind: kindNumber, num: f} }

func Text(s string) Value { return Value{kind: kindText, text: s} }

// IsZero нужен для `omitzero`: отсутствующее значение не попадает в JSON.
func (v Value) IsZero() bool { return v.kind == kindAbsent }

func (v Value) IsNumber() bool { return v.kind == kindNumber }

func (v Value) IsText() bool { return v.kind == kindText }

// Float возвращает число только для числовых значений. Строки здесь не парсятся -
// это работа форматтера.
func (v Value) Float() (float64, bool) {
	if v.kind != kindNumber {
		return 0, false
	}
	return v.num, true
}

func (v Value) Raw() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.text
	default:
		return ""
	}
}

func (v Value) String() string { return v.Raw() }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return json.Marshal(v.num)
	case kindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Value{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case data[0] == 't' || data[0] == 'f':
		// Apps Script иногда отдает булевы ячейки - показываем как текст
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Text(strconv.FormatBool(b))
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("indicator value: %w", err)
		}
		*v = Number(f)
	}
	return nil
}
