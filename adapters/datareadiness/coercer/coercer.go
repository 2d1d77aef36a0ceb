package coercer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"incomedash/domain/table"
)

// TypeCoercer turns raw text cells into typed values with deterministic rules
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold float64  `json:"numeric_threshold"` // share of non-missing cells that must parse as numbers
	BooleanThreshold float64  `json:"boolean_threshold"` // share of non-missing cells that must parse as booleans
	MissingTokens    []string `json:"missing_tokens"`    // case-insensitive tokens read as missing
	NormalizeStrings bool     `json:"normalize_strings"` // collapse whitespace in categories
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold: 0.8,
		BooleanThreshold: 0.9,
		MissingTokens:    []string{"na", "n/a", "nan", "null", "none", "<na>"},
		NormalizeStrings: true,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

var whitespace = regexp.MustCompile(`\s+`)

// IsMissingToken reports whether a raw cell denotes "no value"
func (c *TypeCoercer) IsMissingToken(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return true
	}
	lower := strings.ToLower(s)
	for _, tok := range c.config.MissingTokens {
		if lower == tok {
			return true
		}
	}
	return false
}

// InferKind picks the column kind from its raw cells
func (c *TypeCoercer) InferKind(raw []string) table.Kind {
	analysis := c.AnalyzeTypeDistribution(raw)
	return analysis.RecommendedType
}

// AnalyzeTypeDistribution counts how many cells parse as each type
func (c *TypeCoercer) AnalyzeTypeDistribution(raw []string) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(raw)}

	for _, cell := range raw {
		if c.IsMissingToken(cell) {
			continue
		}
		analysis.ValidCount++
		if _, ok := c.tryParseNumeric(cell); ok {
			analysis.NumericCount++
		}
		if _, ok := c.tryParseBoolean(cell); ok {
			analysis.BooleanCount++
		}
	}

	if analysis.ValidCount > 0 {
		analysis.NumericRatio = float64(analysis.NumericCount) / float64(analysis.ValidCount)
		analysis.BooleanRatio = float64(analysis.BooleanCount) / float64(analysis.ValidCount)
	}
	analysis.RecommendedType = c.determineRecommendedType(analysis)
	return analysis
}

// CoerceAs converts a raw cell into a value of the given column kind. Cells
// that do not parse as that kind become missing.
func (c *TypeCoercer) CoerceAs(raw string, kind table.Kind) table.Value {
	if c.IsMissingToken(raw) {
		return table.Missing()
	}
	switch kind {
	case table.KindNumeric:
		if v, ok := c.tryParseNumeric(raw); ok {
			return table.Number(v)
		}
		return table.Missing()
	case table.KindBoolean:
		if v, ok := c.tryParseBoolean(raw); ok {
			return table.Bool(v)
		}
		return table.Missing()
	default:
		return c.coerceToString(raw)
	}
}

func (c *TypeCoercer) coerceToString(raw string) table.Value {
	s := strings.TrimSpace(raw)
	if c.config.NormalizeStrings {
		s = c.normalizeString(s)
	}
	return table.String(s)
}

// tryParseNumeric attempts to parse as numeric with strict rules
// Handles parentheses for negatives, decimal commas and currency symbols
func (c *TypeCoercer) tryParseNumeric(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	for _, symbol := range []string{"R$", "$", "€", "£", "BRL", "USD", "EUR"} {
		cleanVal = strings.ReplaceAll(cleanVal, symbol, "")
	}
	cleanVal = strings.TrimSpace(cleanVal)

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	// 1.234,56 and 1 234,56: comma is the decimal separator when it is last
	// and followed by at most three digits
	if hasComma && (hasPeriod || hasSpace) {
		commaIdx := strings.LastIndex(cleanVal, ",")
		afterComma := cleanVal[commaIdx+1:]
		if len(afterComma) <= 3 && isDigits(afterComma) && commaIdx > strings.LastIndex(cleanVal, ".") {
			cleanVal = strings.ReplaceAll(cleanVal, ".", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
			cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
		} else {
			cleanVal = strings.ReplaceAll(cleanVal, ",", "")
			cleanVal = strings.ReplaceAll(cleanVal, " ", "")
		}
	} else if hasComma {
		cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// tryParseBoolean accepts word forms only; 0 and 1 are numbers
func (c *TypeCoercer) tryParseBoolean(strVal string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(strVal)) {
	case "true", "yes", "y", "sim", "verdadeiro":
		return true, true
	case "false", "no", "n", "nao", "não", "falso":
		return false, true
	}
	return false, false
}

// normalizeString collapses whitespace and strips control characters. Case is
// preserved: categories must match the model's encoder exactly.
func (c *TypeCoercer) normalizeString(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// determineRecommendedType chooses the best type based on analysis
func (c *TypeCoercer) determineRecommendedType(analysis TypeAnalysis) table.Kind {
	if analysis.ValidCount == 0 {
		return table.KindString
	}
	if analysis.NumericRatio >= c.config.NumericThreshold {
		return table.KindNumeric
	}
	if analysis.BooleanRatio >= c.config.BooleanThreshold {
		return table.KindBoolean
	}
	return table.KindString
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int        `json:"total_count"`
	ValidCount      int        `json:"valid_count"`
	NumericCount    int        `json:"numeric_count"`
	BooleanCount    int        `json:"boolean_count"`
	NumericRatio    float64    `json:"numeric_ratio"`
	BooleanRatio    float64    `json:"boolean_ratio"`
	RecommendedType table.Kind `json:"recommended_type"`
}
