package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MinorUnitsPerMajor is the number of minor units (cents) in one nominal currency unit
const MinorUnitsPerMajor = 100

// CurrencyCode is an ISO 4217 currency code
type CurrencyCode string

// ParseCurrencyCode validates and normalizes an ISO 4217 code
func ParseCurrencyCode(code string) (CurrencyCode, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("invalid currency code %q: %w", code, err)
	}
	return CurrencyCode(unit.String()), nil
}

// String returns the code
func (c CurrencyCode) String() string {
	return string(c)
}

// Money is an amount in integer minor units of a currency.
// It is immutable - all operations return new Money instances.
type Money struct {
	minor    int64
	currency CurrencyCode
}

// NewMoney creates Money from minor units
func NewMoney(minor int64, code CurrencyCode) (Money, error) {
	if code == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{minor: minor, currency: code}, nil
}

// Zero returns zero money in the given currency
func Zero(code CurrencyCode) Money {
	return Money{currency: code}
}

// MinorUnits returns the amount in minor units
func (m Money) MinorUnits() int64 {
	return m.minor
}

// Currency returns the currency code
func (m Money) Currency() CurrencyCode {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.minor == 0
}

// Add adds two Money values of the same currency
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{minor: m.minor + other.minor, currency: m.currency}, nil
}

// Major returns the amount in nominal units as a decimal
func (m Money) Major() decimal.Decimal {
	return decimal.New(m.minor, 0).Shift(-2)
}

// String returns the amount with two decimals followed by the currency code
func (m Money) String() string {
	return m.Major().StringFixed(2) + " " + string(m.currency)
}

// Format renders the amount for display in the given locale, e.g. "HUF 1,234.50" for en.
func (m Money) Format(tag language.Tag) string {
	p := message.NewPrinter(tag)
	unit, err := currency.ParseISO(string(m.currency))
	if err != nil {
		return p.Sprintf("%.2f %s", m.Major().InexactFloat64(), m.currency)
	}
	return p.Sprintf("%v", currency.Symbol(unit.Amount(m.Major().InexactFloat64())))
}

type moneyJSON struct {
	MinorUnits int64  `json:"minor_units"`
	Currency   string `json:"currency"`
	Display    string `json:"display,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		MinorUnits: m.minor,
		Currency:   string(m.currency),
		Display:    m.Major().StringFixed(2),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid money JSON: %w", err)
	}
	code, err := ParseCurrencyCode(raw.Currency)
	if err != nil {
		return err
	}
	m.minor = raw.MinorUnits
	m.currency = code
	return nil
}

// Value implements driver.Valuer, storing only the minor units.
// The currency lives in its own column.
func (m Money) Value() (driver.Value, error) {
	return m.minor, nil
}

// Scan implements sql.Scanner
func (m *Money) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		m.minor = 0
	case int64:
		m.minor = v
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("failed to scan money: %w", err)
		}
		m.minor = d.IntPart()
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("failed to scan money: %w", err)
		}
		m.minor = d.IntPart()
	default:
		return fmt.Errorf("cannot scan type %T into Money", value)
	}
	return nil
}
