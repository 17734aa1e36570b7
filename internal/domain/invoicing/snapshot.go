package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceRateSnapshot freezes the computed amounts of one rate line on a
// finalized invoice. Snapshots are written once and only ever replaced as a
// whole set.
type InvoiceRateSnapshot struct {
	ID                            uuid.UUID
	TenantID                      uuid.UUID
	InvoiceID                     uuid.UUID
	RateLineID                    uuid.UUID
	Position                      int // line order within the invoice
	CurrencyRateMinorUnits        int64
	InvoiceCurrencyRateMinorUnits int64
	VatRateBasisPoints            int64
	Quantity                      decimal.Decimal
	NetUnitMinorUnits             int64
	NetLineMinorUnits             int64
	VatValueMinorUnits            int64
	GrossValueMinorUnits          int64
	CreatedAt                     time.Time
}

// NewSnapshots builds one snapshot per computed line, numbered in line order
func NewSnapshots(inv *Invoice, lines []LineAmounts, now time.Time) []InvoiceRateSnapshot {
	snaps := make([]InvoiceRateSnapshot, 0, len(lines))
	for i, l := range lines {
		snaps = append(snaps, InvoiceRateSnapshot{
			ID:                            uuid.New(),
			TenantID:                      inv.TenantID,
			InvoiceID:                     inv.ID,
			RateLineID:                    l.RateLineID,
			Position:                      i,
			CurrencyRateMinorUnits:        l.LineCurrencyRate,
			InvoiceCurrencyRateMinorUnits: l.InvoiceCurrencyRate,
			VatRateBasisPoints:            l.VatRateBasisPoints,
			Quantity:                      l.Quantity,
			NetUnitMinorUnits:             l.NetUnit,
			NetLineMinorUnits:             l.NetLine,
			VatValueMinorUnits:            l.VatValue,
			GrossValueMinorUnits:          l.GrossValue,
			CreatedAt:                     now,
		})
	}
	return snaps
}

// Amounts returns the frozen line result
func (s *InvoiceRateSnapshot) Amounts() LineAmounts {
	return LineAmounts{
		RateLineID:          s.RateLineID,
		LineCurrencyRate:    s.CurrencyRateMinorUnits,
		InvoiceCurrencyRate: s.InvoiceCurrencyRateMinorUnits,
		VatRateBasisPoints:  s.VatRateBasisPoints,
		Quantity:            s.Quantity,
		NetUnit:             s.NetUnitMinorUnits,
		NetLine:             s.NetLineMinorUnits,
		VatValue:            s.VatValueMinorUnits,
		GrossValue:          s.GrossValueMinorUnits,
	}
}

// ComputationFromSnapshots rebuilds a Computation from frozen rows
func ComputationFromSnapshots(snaps []InvoiceRateSnapshot) *Computation {
	lines := make([]LineAmounts, 0, len(snaps))
	for i := range snaps {
		lines = append(lines, snaps[i].Amounts())
	}
	return &Computation{Lines: lines, Totals: SumLineAmounts(lines)}
}
