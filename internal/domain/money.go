package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits kept for amounts.
const MoneyScale = 2

// oneCent is the smallest amount kept.
var oneCent = decimal.New(1, -MoneyScale)

// Cents converts an amount to integer cents. Callers keep d within
// MaxLineAmount times MaxEntryLines so the result fits in an int64.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(MoneyScale).Round(0).IntPart()
}

// FromCents converts integer cents back to an amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -MoneyScale)
}

// RoundMoney rounds an amount to cent precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// HasCentPrecision reports whether d has at most two fraction digits.
func HasCentPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// WithinCent reports whether a and b differ by at most one cent.
func WithinCent(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(oneCent)
}

// EqualMoney reports whether a and b agree at cent precision.
func EqualMoney(a, b decimal.Decimal) bool {
	return RoundMoney(a).Equal(RoundMoney(b))
}

// IsZeroMoney reports whether d rounds to zero cents.
func IsZeroMoney(d decimal.Decimal) bool {
	return RoundMoney(d).IsZero()
}

// SignedBalance returns debit-credit relative to the normal side.
func SignedBalance(normal Side, debit, credit decimal.Decimal) decimal.Decimal {
	if normal == SideCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// SplitSigned places a signed balance on a debit/credit pair. Negative
// balances move to the side opposite the normal balance.
func SplitSigned(normal Side, signed decimal.Decimal) (debit, credit decimal.Decimal) {
	side := normal
	if signed.IsNegative() {
		side = normal.Opposite()
		signed = signed.Neg()
	}

	if side == SideDebit {
		return signed, decimal.Zero
	}
	return decimal.Zero, signed
}

// NormalizeDate truncates t to a calendar date in UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// YearStart returns January 1st of t's year.
func YearStart(t time.Time) time.Time {
	return Date(t.Year(), time.January, 1)
}

// YearEnd returns December 31st of year.
func YearEnd(year int) time.Time {
	return Date(year, time.December, 31)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"
