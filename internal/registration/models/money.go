package models

import "fmt"

// Money is an integer amount in the currency's lowest denomination (e.g.
// cents) plus an ISO 4217 currency code. Integer arithmetic avoids
// floating-point money errors.
type Money struct {
	Amount   int64
	Currency string
}

func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

func (m Money) Add(amount int64) Money {
	return Money{Amount: m.Amount + amount, Currency: m.Currency}
}

func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }

// currencyInfo covers the currencies the fee schedule commonly uses.
// Unknown codes fall back to two subunit digits and the code itself.
var currencyInfo = map[string]struct {
	Name   string
	Digits int
}{
	"USD": {"US Dollar", 2},
	"EUR": {"Euro", 2},
	"GBP": {"British Pound", 2},
	"AUD": {"Australian Dollar", 2},
	"CAD": {"Canadian Dollar", 2},
	"JPY": {"Japanese Yen", 0},
	"KRW": {"South Korean Won", 0},
	"BRL": {"Brazilian Real", 2},
}

// CurrencyName returns the display name of the currency, defaulting to the
// code when unknown.
func (m Money) CurrencyName() string {
	if info, ok := currencyInfo[m.Currency]; ok {
		return info.Name
	}
	return m.Currency
}

// Format renders the amount in major units, e.g. "USD 10.00" or "JPY 500".
func (m Money) Format() string {
	digits := 2
	if info, ok := currencyInfo[m.Currency]; ok {
		digits = info.Digits
	}
	if digits == 0 {
		return fmt.Sprintf("%s %d", m.Currency, m.Amount)
	}
	divisor := int64(1)
	for i := 0; i < digits; i++ {
		divisor *= 10
	}
	amount := m.Amount
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s %s%d.%0*d", m.Currency, sign, amount/divisor, digits, amount%divisor)
}

// HumanReadable renders the amount with the currency's display name, as
// shown in the admin payment panel.
func (m Money) HumanReadable() string {
	return fmt.Sprintf("%s (%s)", m.Format(), m.CurrencyName())
}
