// Package form derives the dashboard's input controls from the dataset and
// turns submitted values back into an input record.
package form

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"incomedash/domain/table"
	"incomedash/internal/errors"
	"incomedash/internal/profiling"
)

// Field types
const (
	TypeNumber = "number"
	TypeSelect = "select"
)

// Targets are never offered as inputs
var Targets = []string{"renda", "renda_log"}

// IntegerColumns always use whole-number steps
var IntegerColumns = []string{"idade", "qt_pessoas_residencia", "qtd_filhos"}

// Field is one input control
type Field struct {
	Name    string     `json:"name"`
	Label   string     `json:"label"`
	Type    string     `json:"type"`
	Kind    table.Kind `json:"kind"`
	Integer bool       `json:"integer,omitempty"`

	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Default float64 `json:"default"`

	Options       []string `json:"options,omitempty"`
	DefaultOption string   `json:"default_option,omitempty"`
}

// Build returns one field per input column, in dataset order. Numeric columns
// become number fields ranging over the observed values with the median as
// default; categorical and boolean columns become selects over their distinct
// values in first-seen order. Columns with no values are skipped.
func Build(t *table.Table) []Field {
	profiler := profiling.NewDataProfiler()
	excluded := make(map[string]bool, len(Targets))
	for _, name := range Targets {
		excluded[name] = true
	}

	var fields []Field
	for _, name := range t.Columns() {
		if excluded[name] {
			continue
		}
		kind := t.Kind(name)
		field := Field{Name: name, Label: Label(name), Kind: kind}

		switch kind {
		case table.KindNumeric:
			s, ok := profiler.ProfileColumn(t, name)
			if !ok {
				continue
			}
			field.Type = TypeNumber
			field.Min, field.Max = s.Min, s.Max
			field.Integer = isIntegerColumn(name) || s.Integral
			if field.Integer {
				field.Min, field.Max = math.Floor(s.Min), math.Ceil(s.Max)
				field.Step = 1
				field.Default = math.Round(s.Median)
			} else {
				field.Step = (s.Max - s.Min) / 100
				if field.Step == 0 {
					field.Step = 0.01
				}
				field.Default = s.Median
			}
		default:
			options := distinct(t.Column(name))
			if len(options) == 0 {
				continue
			}
			field.Type = TypeSelect
			field.Options = options
			field.DefaultOption = options[0]
		}
		fields = append(fields, field)
	}
	return fields
}

// InputStep is the step attribute of the field's number input. Only integer
// fields are pinned to a grid, since a median need not be a multiple of Step
// away from Min and browsers refuse off-grid values.
func (f Field) InputStep() string {
	if f.Integer {
		return strconv.FormatFloat(f.Step, 'f', -1, 64)
	}
	return "any"
}

// ParseRecord reads submitted values into an input record. Fields absent from
// values, or submitted empty, are left out of the record.
func ParseRecord(fields []Field, values url.Values) (table.Record, error) {
	record := make(table.Record, len(fields))
	for _, f := range fields {
		raw := strings.TrimSpace(values.Get(f.Name))
		if raw == "" {
			continue
		}
		v, err := f.Parse(raw)
		if err != nil {
			return nil, err
		}
		record[f.Name] = v
	}
	return record, nil
}

// Parse converts one submitted value. Failures are VALIDATION_ERROR.
func (f Field) Parse(raw string) (table.Value, error) {
	switch f.Type {
	case TypeNumber:
		x, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return table.Value{}, errors.ValidationError(fmt.Sprintf("%s: %q is not a number", f.Label, raw))
		}
		if f.Integer {
			x = math.Round(x)
		}
		if x < f.Min || x > f.Max {
			return table.Value{}, errors.ValidationError(fmt.Sprintf("%s must be between %s and %s", f.Label, formatBound(f.Min), formatBound(f.Max)))
		}
		return table.Number(x), nil
	case TypeSelect:
		if !f.hasOption(raw) {
			return table.Value{}, errors.ValidationError(fmt.Sprintf("%s: %q is not one of the options", f.Label, raw))
		}
		if f.Kind == table.KindBoolean {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return table.Value{}, errors.ValidationError(fmt.Sprintf("%s: %q is not a boolean", f.Label, raw))
			}
			return table.Bool(b), nil
		}
		return table.String(raw), nil
	}
	return table.Value{}, errors.ValidationError("unknown field type " + f.Type)
}

// Label turns a column name into a display label
func Label(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	if len(words) == 0 {
		return name
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ")
}

func (f Field) hasOption(raw string) bool {
	for _, o := range f.Options {
		if o == raw {
			return true
		}
	}
	return false
}

func isIntegerColumn(name string) bool {
	for _, c := range IntegerColumns {
		if c == name {
			return true
		}
	}
	return false
}

func distinct(values []table.Value) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		s := v.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func formatBound(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
