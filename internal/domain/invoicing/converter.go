package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConversionContext is the invoice side of a conversion
type ConversionContext struct {
	InvoiceDate       time.Time
	OrganisationID    uuid.UUID
	InvoiceCurrencyID uuid.UUID
}

// LineAmounts is the result of converting one rate line into the invoice currency.
// All amounts are integer minor units.
type LineAmounts struct {
	RateLineID          uuid.UUID
	LineCurrencyRate    int64
	InvoiceCurrencyRate int64
	VatRateBasisPoints  int64
	Quantity            decimal.Decimal
	NetUnit             int64
	NetLine             int64
	VatValue            int64
	GrossValue          int64
}

// Conversion is a LineAmounts plus the recoverable problems met while computing it
type Conversion struct {
	Amounts  LineAmounts
	Warnings []*ComputationError
}

// ComputeLineAmounts is the invoice arithmetic, with rates already resolved.
//
//	netUnit  = round(rate * lineRate / invoiceRate)
//	netLine  = netUnit * quantity
//	vatValue = round(netLine * vatBasisPoints / 10000)
//	gross    = netLine + vatValue
//
// Rounding is half away from zero. netLine is exact for integral quantities and
// rounded once for fractional ones. invoiceRate must be positive.
func ComputeLineAmounts(rateMinorUnits, lineRate, invoiceRate int64, quantity decimal.Decimal, vatBasisPoints int64) LineAmounts {
	netUnit := decimal.NewFromInt(rateMinorUnits).
		Mul(decimal.NewFromInt(lineRate)).
		DivRound(decimal.NewFromInt(invoiceRate), 0).
		IntPart()

	netLine := decimal.NewFromInt(netUnit).Mul(quantity).Round(0).IntPart()

	vatValue := decimal.NewFromInt(netLine).
		Mul(decimal.NewFromInt(vatBasisPoints)).
		DivRound(decimal.NewFromInt(BasisPointsPerUnit), 0).
		IntPart()

	return LineAmounts{
		LineCurrencyRate:    lineRate,
		InvoiceCurrencyRate: invoiceRate,
		VatRateBasisPoints:  vatBasisPoints,
		Quantity:            quantity,
		NetUnit:             netUnit,
		NetLine:             netLine,
		VatValue:            vatValue,
		GrossValue:          netLine + vatValue,
	}
}

// RateConverter converts rate lines into an invoice's currency.
// It holds no mutable state; Convert is a pure function of its inputs and lookups.
type RateConverter struct {
	rates    CurrencyRateLookup
	vatRates VatRateLookup
}

// NewRateConverter creates a converter over the given lookups
func NewRateConverter(rates CurrencyRateLookup, vatRates VatRateLookup) *RateConverter {
	if vatRates == nil {
		vatRates = VatRateTable{}
	}
	return &RateConverter{rates: rates, vatRates: vatRates}
}

// Convert converts one rate line.
// Missing currency rates fall back to 1.00 and a missing VAT rate falls back to 0;
// both are reported in Conversion.Warnings. A malformed line returns a
// *ComputationError of kind KindMalformedRateLine.
func (c *RateConverter) Convert(line *RateLine, cc ConversionContext) (Conversion, error) {
	if line == nil {
		return Conversion{}, newMalformedRateLine(uuid.Nil, "rate line is nil")
	}
	if err := line.Validate(); err != nil {
		return Conversion{}, err
	}
	if cc.InvoiceCurrencyID == uuid.Nil {
		return Conversion{}, newMalformedRateLine(line.ID, "invoice currency is required")
	}

	var warnings []*ComputationError

	lineRate, ok := c.lookupRate(cc, line.CurrencyID)
	if !ok {
		warnings = append(warnings, newMissingCurrencyRate(line.ID, line.CurrencyID))
	}
	invoiceRate := lineRate
	if cc.InvoiceCurrencyID != line.CurrencyID {
		invoiceRate, ok = c.lookupRate(cc, cc.InvoiceCurrencyID)
		if !ok {
			warnings = append(warnings, newMissingCurrencyRate(line.ID, cc.InvoiceCurrencyID))
		}
	}
	if lineRate <= 0 || invoiceRate <= 0 {
		return Conversion{}, newMalformedRateLine(line.ID, "currency rates must be positive, got %d and %d", lineRate, invoiceRate)
	}

	var vatBasisPoints int64
	if line.VatRateID != nil {
		bp, found := c.vatRates.FindBasisPoints(*line.VatRateID)
		if found {
			vatBasisPoints = bp
		} else {
			warnings = append(warnings, newMissingVatRate(line.ID, line.VatRateID))
		}
	} else {
		warnings = append(warnings, newMissingVatRate(line.ID, nil))
	}

	amounts := ComputeLineAmounts(line.RateMinorUnits, lineRate, invoiceRate, line.Quantity, vatBasisPoints)
	amounts.RateLineID = line.ID

	return Conversion{Amounts: amounts, Warnings: warnings}, nil
}

func (c *RateConverter) lookupRate(cc ConversionContext, currencyID uuid.UUID) (int64, bool) {
	if c.rates == nil {
		return FallbackCurrencyRate, false
	}
	return c.rates.FindRate(cc.InvoiceDate, cc.OrganisationID, currencyID)
}
