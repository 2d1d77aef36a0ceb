package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind is the storage type of a Value, and the inferred type of a column.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindBoolean Kind = "boolean"
	KindString  Kind = "string"
	KindMissing Kind = "missing"
)

// Value is a typed cell. The zero Value is the missing-value marker. The
// payload is held by value, so a copied Value shares nothing with the table
// it came from.
type Value struct {
	Kind Kind
	num  float64
	str  string
	b    bool
}

// Number creates a numeric value. NaN is stored as missing.
func Number(n float64) Value {
	if math.IsNaN(n) {
		return Missing()
	}
	return Value{Kind: KindNumeric, num: n}
}

// String creates a categorical value. The empty string is stored as missing.
func String(s string) Value {
	if s == "" {
		return Missing()
	}
	return Value{Kind: KindString, str: s}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	return Value{Kind: KindBoolean, b: b}
}

// Missing returns the missing-value marker.
func Missing() Value {
	return Value{Kind: KindMissing}
}

// IsMissing reports whether v carries no value.
func (v Value) IsMissing() bool {
	switch v.Kind {
	case KindNumeric, KindString, KindBoolean:
		return false
	}
	return true
}

func (v Value) IsNumeric() bool { return v.Kind == KindNumeric }
func (v Value) IsString() bool  { return v.Kind == KindString }
func (v Value) IsBoolean() bool { return v.Kind == KindBoolean }

// AsFloat64 returns the numeric value, 1/0 for booleans, or 0 otherwise.
func (v Value) AsFloat64() float64 {
	switch {
	case v.IsNumeric():
		return v.num
	case v.IsBoolean() && v.b:
		return 1
	}
	return 0
}

// AsString returns the categorical value or the empty string.
func (v Value) AsString() string {
	if v.IsString() {
		return v.str
	}
	return ""
}

// AsBoolean returns the boolean value or false.
func (v Value) AsBoolean() bool {
	return v.IsBoolean() && v.b
}

// Interface returns the plain Go value: float64, string, bool or nil.
func (v Value) Interface() any {
	switch {
	case v.IsNumeric():
		return v.num
	case v.IsString():
		return v.str
	case v.IsBoolean():
		return v.b
	}
	return nil
}

// Equal compares kind and payload.
func (v Value) Equal(o Value) bool {
	if v.IsMissing() || o.IsMissing() {
		return v.IsMissing() && o.IsMissing()
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumeric:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindBoolean:
		return v.b == o.b
	}
	return false
}

// String renders the value for display and form fields.
func (v Value) String() string {
	switch {
	case v.IsNumeric():
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case v.IsString():
		return v.str
	case v.IsBoolean():
		return strconv.FormatBool(v.b)
	}
	return "<missing>"
}

// MarshalJSON encodes the value as a bare JSON scalar, null when missing.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts a bare JSON scalar.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// FromAny converts a plain Go value into a Value. Strings are kept verbatim
// as categories; callers that need type inference use the coercer instead.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Missing(), nil
	case Value:
		return t, nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}
