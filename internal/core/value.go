package core

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindNumber
	kindText
	kindRaw
)

// Value is a single metric value: a number, a short category string, or
// an opaque JSON value a schemaless source handed over.
type Value struct {
	kind valueKind
	num  float64
	text string
	raw  json.RawMessage
}

// Number wraps a numeric value.
func Number(f float64) Value {
	return Value{kind: kindNumber, num: f}
}

// Text wraps a string value.
func Text(s string) Value {
	return Value{kind: kindText, text: s}
}

// Raw wraps any other JSON value verbatim.
func Raw(b []byte) Value {
	return Value{kind: kindRaw, raw: append(json.RawMessage(nil), b...)}
}

// Null is the JSON null value.
func Null() Value {
	return Value{}
}

// Float returns the numeric value and whether the value is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == kindNumber
}

// IsNumeric reports whether the value is a finite number.
func (v Value) IsNumeric() bool {
	return v.kind == kindNumber && isFinite(v.num)
}

// IsText reports whether the value is a string.
func (v Value) IsText() bool {
	return v.kind == kindText
}

// String returns the text value, or the formatted number.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.text
	case kindRaw:
		return string(v.raw)
	default:
		return ""
	}
}

// Equal reports whether two values hold the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case kindNumber:
		return v.num == o.num
	case kindText:
		return v.text == o.text
	case kindRaw:
		return bytes.Equal(v.raw, o.raw)
	default:
		return true
	}
}

func (v Value) clone() Value {
	if v.kind == kindRaw {
		v.raw = append(json.RawMessage(nil), v.raw...)
	}
	return v
}

// MarshalJSON encodes numbers without trailing zeros. Non-finite numbers
// have no JSON form and encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		if !isFinite(v.num) {
			return []byte("null"), nil
		}
		return strconv.AppendFloat(nil, v.num, 'f', -1, 64), nil
	case kindText:
		return json.Marshal(v.text)
	case kindRaw:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a single JSON value.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*v = Null()
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Text(s)
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return err
		}
		*v = Number(f)
	default:
		*v = Raw(b)
	}
	return nil
}

// ValueOf converts a Go value decoded by a driver into a Value.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return Text(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return Text(t.String())
	case Value:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Null()
		}
		return Raw(b)
	}
}

// Interface returns the value as a plain Go value: float64, string, nil,
// or whatever the raw JSON decodes to.
func (v Value) Interface() any {
	switch v.kind {
	case kindNumber:
		return v.num
	case kindText:
		return v.text
	case kindRaw:
		var x any
		if err := json.Unmarshal(v.raw, &x); err != nil {
			return string(v.raw)
		}
		return x
	default:
		return nil
	}
}
