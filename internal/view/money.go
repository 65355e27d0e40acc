package view

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatCoins renders an amount with English digit grouping and two
// decimals, e.g. 96,000.00.
func FormatCoins(v float64) string {
	return message.NewPrinter(language.English).Sprintf("%.2f", v)
}

// FormatCount renders an integer with English digit grouping.
func FormatCount(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}
