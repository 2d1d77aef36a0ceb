// Package inference reprojects a user-built record onto a model's feature
// schema and runs a single prediction.
package inference

import (
	"context"
	"fmt"
	"math"
	"time"

	"incomedash/domain/core"
	"incomedash/domain/table"
	"incomedash/internal"
	"incomedash/internal/errors"
	"incomedash/internal/model"
)

// Prediction is the outcome of one inference call
type Prediction struct {
	Value     float64        `json:"prediction"`
	RequestID core.RequestID `json:"request_id"`
	// Row is the reprojected row handed to the model
	Row table.Row `json:"row"`
	// Missing lists expected columns the record did not carry
	Missing []string `json:"missing"`
	// Dropped lists record columns the model does not use
	Dropped []string `json:"dropped"`
}

type requestIDKey struct{}

// WithRequestID returns a context whose predictions carry id instead of a
// generated request ID
func WithRequestID(ctx context.Context, id core.RequestID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) core.RequestID {
	if id, ok := ctx.Value(requestIDKey{}).(core.RequestID); ok && id != "" {
		return id
	}
	return core.NewRequestID()
}

// Adapter runs predictions. It holds no state besides its logger and is safe
// for concurrent use.
type Adapter struct {
	logger *internal.Logger
}

// NewAdapter creates an inference adapter
func NewAdapter() *Adapter {
	return &Adapter{logger: internal.DefaultLogger.With("Inference")}
}

// Predict coerces input to one row, reprojects it onto m.FeatureNames() and
// returns the model's single prediction. input may be a table.Row (or
// table.Record), a map[string]any or a one-row *table.Table.
//
// Missing markers are passed to the model unchanged; whether they are imputed
// or rejected is the model's decision. Every failure is PREDICTION_ERROR.
func (a *Adapter) Predict(ctx context.Context, m model.Model, input any) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, errors.Prediction("prediction cancelled", err)
	}
	if m == nil {
		return Prediction{}, errors.Prediction("no model loaded", nil)
	}

	record, err := toRow(input)
	if err != nil {
		return Prediction{}, errors.Prediction("invalid input record", err)
	}

	schema := m.FeatureNames()
	if len(schema) == 0 {
		return Prediction{}, errors.Prediction("model has no usable feature names", nil)
	}

	requestID := requestIDFrom(ctx)
	row := Reproject(record, schema)
	missing, dropped := Diff(record, schema)
	if len(missing) > 0 {
		a.logger.Debug("request %s: missing columns %v passed to model", requestID, missing)
	}

	start := time.Now()
	values, err := m.Predict([]table.Row{row})
	if err != nil {
		a.logger.Warn("request %s: model rejected row: %v", requestID, err)
		return Prediction{}, errors.Prediction("model rejected the input", err)
	}
	if len(values) != 1 {
		return Prediction{}, errors.Prediction(fmt.Sprintf("model returned %d values for one row", len(values)), nil)
	}
	value := values[0]
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Prediction{}, errors.Prediction(fmt.Sprintf("model returned non-finite value %v", value), nil)
	}

	a.logger.Debug("request %s: predicted %.2f in %s", requestID, value, time.Since(start))
	return Prediction{
		Value:     value,
		RequestID: requestID,
		Row:       row,
		Missing:   missing,
		Dropped:   dropped,
	}, nil
}

// Reproject returns a new row holding exactly the schema columns. Shared
// columns are carried over, absent ones are set to the missing marker and
// extra ones are dropped. record is not modified.
func Reproject(record table.Row, schema []string) table.Row {
	out := make(table.Row, len(schema))
	for _, name := range schema {
		if v, ok := record[name]; ok {
			out[name] = v
		} else {
			out[name] = table.Missing()
		}
	}
	return out
}

// Diff lists schema columns absent from record, in schema order, and record
// columns outside the schema, sorted
func Diff(record table.Row, schema []string) (missing, dropped []string) {
	expected := make(map[string]bool, len(schema))
	for _, name := range schema {
		expected[name] = true
		if _, ok := record[name]; !ok {
			missing = append(missing, name)
		}
	}
	for _, name := range record.Columns() {
		if !expected[name] {
			dropped = append(dropped, name)
		}
	}
	return missing, dropped
}

func toRow(input any) (table.Row, error) {
	switch v := input.(type) {
	case nil:
		return nil, fmt.Errorf("input is nil")
	case table.Row:
		return v, nil
	case map[string]table.Value:
		return table.Row(v), nil
	case *table.Table:
		if v == nil || v.Len() != 1 {
			n := 0
			if v != nil {
				n = v.Len()
			}
			return nil, fmt.Errorf("expected a single-row table, got %d rows", n)
		}
		return v.Row(0), nil
	case map[string]any:
		row := make(table.Row, len(v))
		for name, raw := range v {
			val, err := table.FromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			row[name] = val
		}
		return row, nil
	default:
		return nil, fmt.Errorf("unsupported input type %T", input)
	}
}
