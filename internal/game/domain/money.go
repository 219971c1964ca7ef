package domain

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount of currency in cents. All ledger arithmetic happens in
// integer cents; floats exist only at the boundary and are rounded exactly
// once on the way in.
type Money int64

// MoneyFromFloat converts a dollar amount to cents, rounding half away from
// zero to two decimals.
func MoneyFromFloat(amount float64) Money {
	return Money(math.Round(amount * 100))
}

// Float returns the dollar value of the amount.
func (m Money) Float() float64 {
	return float64(m) / 100
}

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// Format renders the amount as a player-facing dollar string with grouping,
// e.g. "$1,234.56".
func (m Money) Format() string {
	return moneyPrinter.Sprintf("$%.2f", m.Float())
}
