package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is an ISO 4217 code supported by the storefront.
type Currency string

const (
	GBP Currency = "GBP"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// DefaultCurrency is used when a caller supplies no or an unsupported code.
const DefaultCurrency = GBP

var currencies = map[Currency]struct {
	symbol string
	tag    language.Tag
}{
	GBP: {symbol: "£", tag: language.BritishEnglish},
	USD: {symbol: "$", tag: language.AmericanEnglish},
	EUR: {symbol: "€", tag: language.English},
}

// ParseCurrency normalises code, falling back to DefaultCurrency.
func ParseCurrency(code string) Currency {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := currencies[c]; ok {
		return c
	}
	return DefaultCurrency
}

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	return currencies[ParseCurrency(string(c))].symbol
}

// Format renders amount with a symbol prefix, thousands separators and exactly
// two fractional digits, e.g. "£1,234.50".
func Format(amount decimal.Decimal, code string) string {
	cur := ParseCurrency(code)
	info := currencies[cur]
	rounded := Round(amount)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	whole := rounded.IntPart()
	fraction := rounded.Sub(decimal.NewFromInt(whole)).Shift(Scale).IntPart()
	printer := message.NewPrinter(info.tag)
	return fmt.Sprintf("%s%s%s.%02d", sign, info.symbol, printer.Sprintf("%d", whole), fraction)
}
