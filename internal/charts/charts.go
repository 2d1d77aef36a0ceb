// Package charts builds the exploratory chart specs shown on the dashboard.
// A chart is plain data (traces plus precomputed statistics); drawing is left
// to the browser.
package charts

import (
	stderrors "errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"incomedash/domain/table"
	"incomedash/internal/profiling"
)

// Target is the income column every chart plots against
const Target = "renda"

// Chart kinds
const (
	KindScatter = "scatter"
	KindBox     = "box"
	KindHeatmap = "heatmap"
)

// ErrUnavailable is returned when the dataset lacks the columns a chart needs
var ErrUnavailable = stderrors.New("chart unavailable for this dataset")

// safePalette is the colorblind-safe qualitative palette used for groups
var safePalette = []string{
	"#88CCEE", "#CC6677", "#DDCC77", "#117733", "#332288", "#AA4499",
	"#44AA99", "#999933", "#882255", "#661100", "#6699CC", "#888888",
}

// Chart is a renderable chart spec
type Chart struct {
	Name   string  `json:"name"`
	Kind   string  `json:"kind"`
	Title  string  `json:"title"`
	XLabel string  `json:"x_label"`
	YLabel string  `json:"y_label"`
	Traces []Trace `json:"traces"`
}

// Trace is one series. Scatter traces carry points and, when it can be fit,
// an OLS trendline y = Intercept + Slope*x; box traces carry one summary per
// category; heatmap traces carry a matrix whose undefined cells are null.
type Trace struct {
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`

	X         []float64 `json:"x,omitempty"`
	Y         []float64 `json:"y,omitempty"`
	Slope     *float64  `json:"slope,omitempty"`
	Intercept *float64  `json:"intercept,omitempty"`

	Categories []string            `json:"categories,omitempty"`
	Boxes      []profiling.Summary `json:"boxes,omitempty"`

	Z [][]*float64 `json:"z,omitempty"`
}

// IncomeByTenure plots income against employment time, per sex
func IncomeByTenure(t *table.Table) (*Chart, error) {
	return scatter(t, "renda_tempo_emprego", "tempo_emprego", "Renda por Tempo de Emprego")
}

// IncomeByAge plots income against age, per sex
func IncomeByAge(t *table.Table) (*Chart, error) {
	return scatter(t, "renda_idade", "idade", "Renda por Idade")
}

// IncomeByHousehold summarizes income per household size
func IncomeByHousehold(t *table.Table) (*Chart, error) {
	return box(t, "renda_qt_pessoas_residencia", "qt_pessoas_residencia", "Renda por Qt Pessoas na Residência", "#EF553B")
}

// IncomeByChildren summarizes income per number of children
func IncomeByChildren(t *table.Table) (*Chart, error) {
	return box(t, "renda_qtd_filhos", "qtd_filhos", "Renda por Quantidade de Filhos", "#00CC96")
}

// IncomeByVehicle summarizes income by vehicle ownership. Older extracts name
// the column possui_veiculo.
func IncomeByVehicle(t *table.Table) (*Chart, error) {
	column := "posse_de_veiculo"
	if !t.HasColumn(column) {
		column = "possui_veiculo"
	}
	return box(t, "renda_veiculo", column, "Renda por Posse de Veículo", "#FFA15A")
}

// Correlation is the Pearson correlation matrix of the numeric columns,
// computed pairwise over rows where both values are present
func Correlation(t *table.Table) (*Chart, error) {
	columns := t.ColumnsOfKind(table.KindNumeric)
	if len(columns) < 2 {
		return nil, fmt.Errorf("%w: need at least two numeric columns", ErrUnavailable)
	}

	z := make([][]*float64, len(columns))
	for i := range columns {
		z[i] = make([]*float64, len(columns))
	}
	for i, a := range columns {
		for j := i; j < len(columns); j++ {
			x, y := pairs(t, a, columns[j])
			if len(x) < 2 {
				continue
			}
			r := stat.Correlation(x, y, nil)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				continue
			}
			z[i][j], z[j][i] = &r, &r
		}
	}

	return &Chart{
		Name:   "correlacao",
		Kind:   KindHeatmap,
		Title:  "Correlação entre Variáveis Numéricas",
		XLabel: "Variável",
		YLabel: "Variável",
		Traces: []Trace{{Name: "Correlação", Categories: columns, Z: z}},
	}, nil
}

func scatter(t *table.Table, name, column, title string) (*Chart, error) {
	if !t.HasColumn(Target) || !t.HasColumn(column) {
		return nil, fmt.Errorf("%w: need %s and %s", ErrUnavailable, Target, column)
	}

	// Without sexo every point falls into one unnamed group
	groupBy := "sexo"
	if !t.HasColumn(groupBy) {
		groupBy = ""
	}

	var order []string
	groups := make(map[string]*Trace)
	for i := 0; i < t.Len(); i++ {
		x, y := t.Value(i, column), t.Value(i, Target)
		if !isPlottable(x) || !isPlottable(y) {
			continue
		}
		key := ""
		if groupBy != "" {
			g := t.Value(i, groupBy)
			if g.IsMissing() {
				continue
			}
			key = g.String()
		}
		tr, ok := groups[key]
		if !ok {
			tr = &Trace{Name: key}
			groups[key] = tr
			order = append(order, key)
		}
		tr.X = append(tr.X, x.AsFloat64())
		tr.Y = append(tr.Y, y.AsFloat64())
	}

	sort.Strings(order)
	traces := make([]Trace, 0, len(order))
	for i, key := range order {
		tr := groups[key]
		tr.Color = safePalette[i%len(safePalette)]
		if alpha, beta, ok := trendline(tr.X, tr.Y); ok {
			tr.Intercept, tr.Slope = &alpha, &beta
		}
		traces = append(traces, *tr)
	}

	return &Chart{
		Name:   name,
		Kind:   KindScatter,
		Title:  title,
		XLabel: column,
		YLabel: Target,
		Traces: traces,
	}, nil
}

// trendline fits y = alpha + beta*x by ordinary least squares. It needs two
// distinct x values.
func trendline(x, y []float64) (alpha, beta float64, ok bool) {
	if len(x) < 2 || stat.Variance(x, nil) == 0 {
		return 0, 0, false
	}
	alpha, beta = stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return 0, 0, false
	}
	return alpha, beta, true
}

func box(t *table.Table, name, column, title, color string) (*Chart, error) {
	if !t.HasColumn(Target) || !t.HasColumn(column) {
		return nil, fmt.Errorf("%w: need %s and %s", ErrUnavailable, Target, column)
	}

	byGroup := make(map[string][]float64)
	numeric := make(map[string]float64)
	for i := 0; i < t.Len(); i++ {
		g, y := t.Value(i, column), t.Value(i, Target)
		if g.IsMissing() || !isPlottable(y) {
			continue
		}
		key := g.String()
		byGroup[key] = append(byGroup[key], y.AsFloat64())
		if g.IsNumeric() || g.IsBoolean() {
			numeric[key] = g.AsFloat64()
		}
	}

	categories := make([]string, 0, len(byGroup))
	for key := range byGroup {
		categories = append(categories, key)
	}
	sortCategories(categories, numeric)

	analyzer := profiling.NewDistributionAnalyzer()
	boxes := make([]profiling.Summary, len(categories))
	for i, key := range categories {
		s, err := analyzer.Summarize(byGroup[key])
		if err != nil {
			return nil, fmt.Errorf("summarize %s=%s: %w", column, key, err)
		}
		boxes[i] = s
	}

	return &Chart{
		Name:   name,
		Kind:   KindBox,
		Title:  title,
		XLabel: column,
		YLabel: Target,
		Traces: []Trace{{Name: column, Color: color, Categories: categories, Boxes: boxes}},
	}, nil
}

// sortCategories orders numeric groups by value and the rest lexically
func sortCategories(keys []string, numeric map[string]float64) {
	sort.Slice(keys, func(i, j int) bool {
		a, aok := numeric[keys[i]]
		b, bok := numeric[keys[j]]
		if aok && bok {
			return a < b
		}
		if aok != bok {
			return aok
		}
		return keys[i] < keys[j]
	})
}

func pairs(t *table.Table, a, b string) (x, y []float64) {
	for i := 0; i < t.Len(); i++ {
		va, vb := t.Value(i, a), t.Value(i, b)
		if isPlottable(va) && isPlottable(vb) {
			x = append(x, va.AsFloat64())
			y = append(y, vb.AsFloat64())
		}
	}
	return x, y
}

func isPlottable(v table.Value) bool {
	return v.IsNumeric() && !math.IsInf(v.AsFloat64(), 0)
}
