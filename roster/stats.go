package roster

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Average returns the arithmetic mean of the record's grades.
// Valid is false when there are no grades.
func (r *Record) Average() decimal.NullDecimal {
	if len(r.Grades) == 0 {
		return decimal.NullDecimal{}
	}
	values := make([]decimal.Decimal, len(r.Grades))
	for i, g := range r.Grades {
		values[i] = decimal.NewFromFloat(g)
	}
	return Mean(values)
}

// AttendancePercent returns Present/Total as a percentage.
// Valid is false when no session has been recorded.
func (r *Record) AttendancePercent() decimal.NullDecimal {
	if r.Total == 0 {
		return decimal.NullDecimal{}
	}
	pct := decimal.NewFromInt(int64(r.Present)).
		Div(decimal.NewFromInt(int64(r.Total))).
		Mul(hundred)
	return decimal.NullDecimal{Decimal: pct, Valid: true}
}

// Mean is the unweighted mean of values. Valid is false for no values.
func Mean(values []decimal.Decimal) decimal.NullDecimal {
	if len(values) == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{
		Decimal: decimal.Sum(values[0], values[1:]...).Div(decimal.NewFromInt(int64(len(values)))),
		Valid:   true,
	}
}

// FormatRounded renders d rounded half away from zero to two places,
// without trailing zeros, or NotAvailable when d is not valid.
func FormatRounded(d decimal.NullDecimal) string {
	if !d.Valid {
		return NotAvailable
	}
	return d.Decimal.Round(2).String()
}
