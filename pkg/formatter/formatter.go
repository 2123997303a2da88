// Package formatter renders amounts and counts for the admin dashboard.
package formatter

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.TraditionalChinese)

// Currency renders an amount of cents as a display price, e.g. "NT$19.99".
func Currency(cents int64) string {
	return printer.Sprintf("NT$%.2f", float64(cents)/100)
}

// Number renders a count with locale digit grouping.
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}
