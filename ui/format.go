package ui

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatCurrency renders an amount in reais, e.g. R$ 1.234,56
func FormatCurrency(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "R$ -"
	}
	if x < 0 {
		return "-R$ " + brl.Sprintf("%.2f", -x)
	}
	return "R$ " + brl.Sprintf("%.2f", x)
}
