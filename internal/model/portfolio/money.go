package portfolio

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyINR is the reporting currency of Kite holdings.
const CurrencyINR = money.INR

// FormatMoney renders a major-unit amount in the given currency, e.g. "₹1,234.50".
func FormatMoney(amount decimal.Decimal, code string) string {
	// money.New is the only way to get a never nil currency
	cur := *money.New(0, code).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatINR renders a rupee amount.
func FormatINR(amount float64) string {
	return FormatMoney(decimal.NewFromFloat(amount), CurrencyINR)
}
