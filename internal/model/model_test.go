package model

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incomedash/domain/table"
	"incomedash/internal/errors"
)

func ptr(f float64) *float64 { return &f }

func imputed(v table.Value) *table.Value { return &v }

// linearArtifact predicts renda = 100*idade + 500*qtd_filhos + 1000*[sexo=M] + 50
func linearArtifact() *Artifact {
	return &Artifact{
		FormatVersion:  FormatVersion,
		Name:           "renda-linear",
		Description:    "# Renda\nRegressão linear.",
		FeatureNamesIn: []string{"idade", "qtd_filhos", "sexo"},
		Preprocessor: Preprocessor{Steps: []Step{
			{Column: "idade", Type: StepNumeric},
			{Column: "qtd_filhos", Type: StepNumeric, Impute: imputed(table.Number(0))},
			{Column: "sexo", Type: StepCategorical, Categories: []string{"F", "M"}},
		}},
		Regressor: RegressorSpec{Kind: RegressorLinear, Coefficients: []float64{100, 500, 0, 1000}, Intercept: 50},
	}
}

func writeArtifact(t *testing.T, a *Artifact) string {
	t.Helper()
	data, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "modelo_pipeline.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadLinear(t *testing.T) {
	m, err := Load(writeArtifact(t, linearArtifact()))
	require.NoError(t, err)

	assert.Equal(t, []string{"idade", "qtd_filhos", "sexo"}, m.FeatureNames())

	out, err := m.Predict([]table.Row{
		{"idade": table.Number(30), "qtd_filhos": table.Number(2), "sexo": table.String("M")},
		{"idade": table.Number(40), "qtd_filhos": table.Number(0), "sexo": table.String("F")},
	})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{30*100 + 2*500 + 1000 + 50, 40*100 + 50}, out, 1e-9)

	d, ok := m.(Describer)
	require.True(t, ok)
	assert.Equal(t, "renda-linear", d.Name())
	assert.Contains(t, d.Description(), "Regressão")
	assert.Len(t, d.Fingerprint().String(), 64)
}

func TestFeatureNamesIsCopy(t *testing.T) {
	m, err := Load(writeArtifact(t, linearArtifact()))
	require.NoError(t, err)

	names := m.FeatureNames()
	names[0] = "changed"
	assert.Equal(t, "idade", m.FeatureNames()[0])
}

func TestPredictMissingValues(t *testing.T) {
	m, err := Load(writeArtifact(t, linearArtifact()))
	require.NoError(t, err)

	out, err := m.Predict([]table.Row{{"idade": table.Number(30), "qtd_filhos": table.Missing(), "sexo": table.String("F")}})
	require.NoError(t, err, "qtd_filhos has an impute step")
	assert.InDelta(t, 3050.0, out[0], 1e-9)

	_, err = m.Predict([]table.Row{{"idade": table.Missing(), "qtd_filhos": table.Number(1), "sexo": table.String("F")}})
	assert.ErrorIs(t, err, ErrMissingValue)

	_, err = m.Predict([]table.Row{{"idade": table.Number(30), "qtd_filhos": table.Number(1)}})
	assert.ErrorIs(t, err, ErrMissingValue, "absent column is missing")
}

func TestPredictUnknownCategory(t *testing.T) {
	a := linearArtifact()
	m, err := Load(writeArtifact(t, a))
	require.NoError(t, err)

	row := table.Row{"idade": table.Number(30), "qtd_filhos": table.Number(0), "sexo": table.String("X")}
	_, err = m.Predict([]table.Row{row})
	assert.ErrorIs(t, err, ErrUnknownCategory)

	a.Preprocessor.Steps[2].HandleUnknown = "ignore"
	m, err = Load(writeArtifact(t, a))
	require.NoError(t, err)
	out, err := m.Predict([]table.Row{row})
	require.NoError(t, err)
	assert.InDelta(t, 3050.0, out[0], 1e-9)
}

func TestPredictTypeMismatch(t *testing.T) {
	m, err := Load(writeArtifact(t, linearArtifact()))
	require.NoError(t, err)

	_, err = m.Predict([]table.Row{{"idade": table.String("trinta"), "qtd_filhos": table.Number(0), "sexo": table.String("F")}})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	out, err := m.Predict([]table.Row{{"idade": table.String("30"), "qtd_filhos": table.Number(0), "sexo": table.String("F")}})
	require.NoError(t, err)
	assert.InDelta(t, 3050.0, out[0], 1e-9)
}

func TestPredictScalingAndBoolean(t *testing.T) {
	a := &Artifact{
		FormatVersion:  FormatVersion,
		FeatureNamesIn: []string{"tempo_emprego", "posse_de_imovel"},
		Preprocessor: Preprocessor{Steps: []Step{
			{Column: "tempo_emprego", Type: StepNumeric, Mean: ptr(5), Scale: ptr(2)},
			{Column: "posse_de_imovel", Type: StepBoolean, Impute: imputed(table.Bool(false))},
		}},
		Regressor: RegressorSpec{Kind: RegressorLinear, Coefficients: []float64{1, 0.5}, Intercept: 8},
	}
	m, err := Load(writeArtifact(t, a))
	require.NoError(t, err)

	out, err := m.Predict([]table.Row{
		{"tempo_emprego": table.Number(9), "posse_de_imovel": table.Bool(true)},
		{"tempo_emprego": table.Number(5), "posse_de_imovel": table.Missing()},
		{"tempo_emprego": table.Number(5), "posse_de_imovel": table.String("True")},
	})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10.5, 8, 8.5}, out, 1e-9)
}

func TestPredictDecisionTreeAndForest(t *testing.T) {
	tree := []Node{
		{FeatureIdx: 0, Threshold: 30, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, Value: 1000},
		{IsLeaf: true, Value: 3000},
	}
	a := &Artifact{
		FormatVersion:  FormatVersion,
		FeatureNamesIn: []string{"idade"},
		Preprocessor:   Preprocessor{Steps: []Step{{Column: "idade", Type: StepNumeric}}},
		Regressor:      RegressorSpec{Kind: RegressorDecisionTree, Nodes: tree},
	}
	m, err := Load(writeArtifact(t, a))
	require.NoError(t, err)
	out, err := m.Predict([]table.Row{{"idade": table.Number(25)}, {"idade": table.Number(45)}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 3000}, out)

	stump := []Node{{IsLeaf: true, Value: 2000}}
	a.Regressor = RegressorSpec{Kind: RegressorRandomForest, Trees: [][]Node{tree, stump}}
	m, err = Load(writeArtifact(t, a))
	require.NoError(t, err)
	out, err = m.Predict([]table.Row{{"idade": table.Number(25)}, {"idade": table.Number(45)}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1500, 2500}, out)
}

func TestTargetTransform(t *testing.T) {
	a := &Artifact{
		FormatVersion:   FormatVersion,
		FeatureNamesIn:  []string{"idade"},
		Preprocessor:    Preprocessor{Steps: []Step{{Column: "idade", Type: StepNumeric}}},
		Regressor:       RegressorSpec{Kind: RegressorLinear, Coefficients: []float64{0}, Intercept: math.Log(5000)},
		TargetTransform: TransformLog,
	}
	m, err := Load(writeArtifact(t, a))
	require.NoError(t, err)
	out, err := m.Predict([]table.Row{{"idade": table.Number(30)}})
	require.NoError(t, err)
	assert.InDelta(t, 5000, out[0], 1e-6)

	a.TargetTransform = TransformLog1p
	a.Regressor.Intercept = math.Log1p(5000)
	m, err = Load(writeArtifact(t, a))
	require.NoError(t, err)
	out, err = m.Predict([]table.Row{{"idade": table.Number(30)}})
	require.NoError(t, err)
	assert.InDelta(t, 5000, out[0], 1e-6)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "modelo_pipeline.json"))
		require.Error(t, err)
		assert.True(t, errors.IsModelLoad(err))
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "modelo_pipeline.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, errors.IsModelLoad(err))
	})

	tests := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{"unsupported version", func(a *Artifact) { a.FormatVersion = 2 }},
		{"empty features", func(a *Artifact) { a.FeatureNamesIn = nil; a.Preprocessor.Steps = nil }},
		{"duplicate feature", func(a *Artifact) { a.FeatureNamesIn = []string{"idade", "idade", "sexo"} }},
		{"feature without step", func(a *Artifact) { a.Preprocessor.Steps = a.Preprocessor.Steps[:2] }},
		{"step for unknown column", func(a *Artifact) { a.Preprocessor.Steps[0].Column = "renda" }},
		{"coefficient width", func(a *Artifact) { a.Regressor.Coefficients = []float64{1, 2} }},
		{"unknown regressor", func(a *Artifact) { a.Regressor.Kind = "svm" }},
		{"unknown transform", func(a *Artifact) { a.TargetTransform = "sqrt" }},
		{"unknown step type", func(a *Artifact) { a.Preprocessor.Steps[0].Type = "date" }},
		{"zero scale", func(a *Artifact) { a.Preprocessor.Steps[0].Mean = ptr(1); a.Preprocessor.Steps[0].Scale = ptr(0) }},
		{"tree feature out of range", func(a *Artifact) {
			a.Regressor = RegressorSpec{Kind: RegressorDecisionTree, Nodes: []Node{
				{FeatureIdx: 9, LeftChild: 1, RightChild: 2}, {IsLeaf: true}, {IsLeaf: true},
			}}
		}},
		{"tree child cycle", func(a *Artifact) {
			a.Regressor = RegressorSpec{Kind: RegressorDecisionTree, Nodes: []Node{
				{FeatureIdx: 0, LeftChild: 0, RightChild: 1}, {IsLeaf: true},
			}}
		}},
		{"empty forest", func(a *Artifact) { a.Regressor = RegressorSpec{Kind: RegressorRandomForest} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := linearArtifact()
			tt.mutate(a)
			_, err := Load(writeArtifact(t, a))
			require.Error(t, err)
			assert.True(t, errors.IsModelLoad(err), "got %v", err)
		})
	}
}

func TestBundledArtifact(t *testing.T) {
	m, err := Load(filepath.Join("..", "..", "modelo_pipeline.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"sexo", "posse_de_veiculo", "posse_de_imovel", "qtd_filhos", "idade", "tempo_emprego", "qt_pessoas_residencia"}, m.FeatureNames())

	row := table.Row{
		"sexo":                  table.String("F"),
		"posse_de_veiculo":      table.Bool(false),
		"posse_de_imovel":       table.Bool(true),
		"qtd_filhos":            table.Number(0),
		"idade":                 table.Number(43.8),
		"tempo_emprego":         table.Missing(),
		"qt_pessoas_residencia": table.Number(2),
	}
	out, err := m.Predict([]table.Row{row})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Greater(t, out[0], 0.0)
	assert.False(t, math.IsInf(out[0], 0))
}
