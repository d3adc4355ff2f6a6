package export

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySymbol prefixes formatted amounts in human-facing exports.
const CurrencySymbol = "₹"

var printer = message.NewPrinter(language.English)

// FormatAmount renders money with digit grouping, e.g. ₹12,500.00.
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + CurrencySymbol + printer.Sprintf("%.2f", d.Abs().InexactFloat64())
	}
	return CurrencySymbol + printer.Sprintf("%.2f", d.InexactFloat64())
}

// FormatCount renders an integer with digit grouping.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatPercent renders a percentage with one decimal place and an explicit sign.
func FormatPercent(v float64) string {
	return printer.Sprintf("%+.1f%%", v)
}

func plain(d decimal.Decimal) string {
	return d.StringFixed(2)
}
