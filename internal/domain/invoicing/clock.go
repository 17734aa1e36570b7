package invoicing

import "time"

// Clock supplies the current instant.
// Date defaults (performance date, payment date) and audit timestamps are
// derived from it so that they are reproducible in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time {
	return f()
}

// FixedClock returns a clock that always reports t
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DefaultPerformanceDate returns the first day of the month preceding now
func DefaultPerformanceDate(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m-1, 1, 0, 0, 0, 0, now.Location())
}

// DefaultPaymentDate returns the invoice date plus the payment term
func DefaultPaymentDate(invoiceDate time.Time, termDays int) time.Time {
	return StartOfDay(invoiceDate).AddDate(0, 0, termDays)
}
