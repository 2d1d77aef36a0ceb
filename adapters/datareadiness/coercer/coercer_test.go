package coercer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"incomedash/domain/table"
)

func TestNumericParsing(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	tests := []struct {
		in   string
		want float64
	}{
		{"8060.34", 8060.34},
		{"1,5", 1.5},
		{"1.234,56", 1234.56},
		{"R$ 1.234,56", 1234.56},
		{"1,234.5", 1234.5},
		{"(12)", -12},
		{" 43 ", 43},
	}
	for _, tt := range tests {
		v := c.CoerceAs(tt.in, table.KindNumeric)
		if assert.True(t, v.IsNumeric(), tt.in) {
			assert.InDelta(t, tt.want, v.AsFloat64(), 1e-9, tt.in)
		}
	}

	assert.True(t, c.CoerceAs("abc", table.KindNumeric).IsMissing())
	assert.True(t, c.CoerceAs("Inf", table.KindNumeric).IsMissing())
}

func TestMissingTokens(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())
	for _, tok := range []string{"", "  ", "NA", "nan", "NULL", "None", "<NA>"} {
		assert.True(t, c.IsMissingToken(tok), tok)
		assert.True(t, c.CoerceAs(tok, table.KindString).IsMissing(), tok)
	}
	assert.False(t, c.IsMissingToken("0"))
}

func TestInferKind(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	assert.Equal(t, table.KindNumeric, c.InferKind([]string{"1", "2.5", "", "NA"}))
	assert.Equal(t, table.KindNumeric, c.InferKind([]string{"0", "1", "1"}), "0/1 columns are numbers")
	assert.Equal(t, table.KindBoolean, c.InferKind([]string{"True", "False", "", "true"}))
	assert.Equal(t, table.KindString, c.InferKind([]string{"F", "M", "F"}))
	assert.Equal(t, table.KindString, c.InferKind([]string{"", "nan"}), "all-missing columns fall back to string")
	assert.Equal(t, table.KindNumeric, c.InferKind([]string{"1", "2", "3", "4", "x"}), "80% numeric is enough")
	assert.Equal(t, table.KindString, c.InferKind([]string{"1", "2", "x", "y"}))
}

func TestStringsKeepCase(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	v := c.CoerceAs("  Ensino   Superior\tcompleto ", table.KindString)
	assert.Equal(t, "Ensino Superior completo", v.AsString())

	assert.Equal(t, table.Bool(false), c.CoerceAs("Não", table.KindBoolean))
	assert.True(t, c.CoerceAs("maybe", table.KindBoolean).IsMissing())
}
