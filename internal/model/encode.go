package model

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"incomedash/domain/table"
)

var (
	// ErrMissingValue is returned for a missing value in a column without an
	// impute step
	ErrMissingValue = stderrors.New("missing value")
	// ErrUnknownCategory is returned for a category the encoder has not seen
	// when handle_unknown is not "ignore"
	ErrUnknownCategory = stderrors.New("unknown category")
	// ErrTypeMismatch is returned when a value cannot be read as the step type
	ErrTypeMismatch = stderrors.New("type mismatch")
)

// encoder turns a row into the encoded feature vector
type encoder struct {
	steps []Step
	index []map[string]int // category -> offset, per categorical step
	width int
}

func newEncoder(p Preprocessor) *encoder {
	e := &encoder{steps: p.Steps, index: make([]map[string]int, len(p.Steps)), width: p.EncodedWidth()}
	for i, s := range p.Steps {
		if s.Type != StepCategorical {
			continue
		}
		e.index[i] = make(map[string]int, len(s.Categories))
		for j, c := range s.Categories {
			e.index[i][c] = j
		}
	}
	return e
}

// encode fills a fresh vector. A column absent from the row is treated as
// missing.
func (e *encoder) encode(row table.Row) ([]float64, error) {
	out := make([]float64, e.width)
	offset := 0
	for i, step := range e.steps {
		v, ok := row[step.Column]
		if !ok || v.IsMissing() {
			if step.Impute == nil {
				return nil, fmt.Errorf("%w in column %q", ErrMissingValue, step.Column)
			}
			v = *step.Impute
		}

		switch step.Type {
		case StepNumeric:
			x, err := numericOf(v)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", step.Column, err)
			}
			if step.Scale != nil {
				x = (x - *step.Mean) / *step.Scale
			}
			out[offset] = x
		case StepBoolean:
			b, err := booleanOf(v)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", step.Column, err)
			}
			if b {
				out[offset] = 1
			}
		case StepCategorical:
			category := v.String()
			j, known := e.index[i][category]
			switch {
			case known:
				out[offset+j] = 1
			case step.HandleUnknown == "ignore":
			default:
				return nil, fmt.Errorf("%w %q in column %q", ErrUnknownCategory, category, step.Column)
			}
		}
		offset += step.Width()
	}
	return out, nil
}

func numericOf(v table.Value) (float64, error) {
	switch {
	case v.IsNumeric(), v.IsBoolean():
		return v.AsFloat64(), nil
	case v.IsString():
		x, err := strconv.ParseFloat(strings.TrimSpace(v.AsString()), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrTypeMismatch, v.AsString())
		}
		return x, nil
	}
	return 0, fmt.Errorf("%w: %s value", ErrTypeMismatch, v.Kind)
}

func booleanOf(v table.Value) (bool, error) {
	switch {
	case v.IsBoolean():
		return v.AsBoolean(), nil
	case v.IsNumeric():
		switch v.AsFloat64() {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, fmt.Errorf("%w: %v is not 0 or 1", ErrTypeMismatch, v.AsFloat64())
	case v.IsString():
		b, err := strconv.ParseBool(strings.TrimSpace(v.AsString()))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrTypeMismatch, v.AsString())
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: %s value", ErrTypeMismatch, v.Kind)
}
