// Package dataset loads the exploratory dataset behind the dashboard.
package dataset

import (
	"context"
	"strings"
	"time"

	"incomedash/adapters/datareadiness/coercer"
	"incomedash/adapters/excel"
	"incomedash/adapters/sqltable"
	"incomedash/domain/table"
	"incomedash/internal"
	"incomedash/internal/errors"
)

// DroppedColumns are identifier and bookkeeping columns that carry no signal.
// An empty header is the stray index written by some CSV exporters.
var DroppedColumns = []string{"id_cliente", "data_ref", "Unnamed: 0", ""}

// Options control how a source is read
type Options struct {
	// Encoding of delimited files: utf-8 (default) or latin1
	Encoding string
	// Sheet of a workbook, first sheet when empty
	Sheet string
}

// Loader turns a file path or SQL URL into a typed table
type Loader struct {
	options Options
	coercer *coercer.TypeCoercer
	logger  *internal.Logger
}

// NewLoader creates a loader with the default coercion rules
func NewLoader(options Options) *Loader {
	return &Loader{
		options: options,
		coercer: coercer.NewTypeCoercer(coercer.DefaultCoercionConfig()),
		logger:  internal.DefaultLogger.With("DatasetLoader"),
	}
}

// Load reads source with default options
func Load(ctx context.Context, source string) (*table.Table, error) {
	return NewLoader(Options{}).Load(ctx, source)
}

// Load reads the source, drops the denylisted columns and coerces every cell.
// All failures are DATA_ACCESS_ERROR.
func (l *Loader) Load(ctx context.Context, source string) (*table.Table, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.DataAccess("dataset source is empty", nil)
	}
	start := time.Now()

	raw, err := l.read(ctx, source)
	if err != nil {
		return nil, errors.DataAccess("failed to read dataset "+source, err)
	}

	t, err := l.build(raw)
	if err != nil {
		return nil, errors.DataAccess("failed to build dataset "+source, err)
	}

	l.logger.Info("loaded %s: %d rows, %d columns in %s", source, t.Len(), len(t.Columns()), time.Since(start))
	return t, nil
}

func (l *Loader) read(ctx context.Context, source string) (*table.RawData, error) {
	if sqltable.IsURL(source) {
		src, err := sqltable.ParseURL(source)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("reading table %s via %s", src.Table, src.Driver)
		return sqltable.NewReader(src).ReadData(ctx)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := excel.DefaultReaderConfig()
	if l.options.Encoding != "" {
		cfg.Encoding = l.options.Encoding
	}
	cfg.Sheet = l.options.Sheet
	return excel.NewDataReader(source, cfg).ReadData()
}

func (l *Loader) build(raw *table.RawData) (*table.Table, error) {
	denied := make(map[string]bool, len(DroppedColumns))
	for _, c := range DroppedColumns {
		denied[c] = true
	}

	var (
		columns []string
		indexes []int
	)
	kinds := make(map[string]table.Kind)
	for i, header := range raw.Headers {
		if denied[header] {
			l.logger.Debug("dropping column %q", header)
			continue
		}
		columns = append(columns, header)
		indexes = append(indexes, i)
		kinds[header] = l.coercer.InferKind(raw.Column(i))
	}

	rows := make([]table.Row, len(raw.Rows))
	for r, cells := range raw.Rows {
		row := make(table.Row, len(columns))
		for j, name := range columns {
			row[name] = l.coercer.CoerceAs(cells[indexes[j]], kinds[name])
		}
		rows[r] = row
	}

	return table.New(columns, kinds, rows)
}
