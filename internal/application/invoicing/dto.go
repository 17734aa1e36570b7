package invoicing

import (
	"time"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                    uuid.UUID  `json:"id"`
	TenantID              uuid.UUID  `json:"tenant_id"`
	Number                string     `json:"number"`
	CustomerID            *uuid.UUID `json:"customer_id,omitempty"`
	OrganisationID        *uuid.UUID `json:"organisation_id,omitempty"`
	CurrencyID            *uuid.UUID `json:"currency_id,omitempty"`
	Date                  *time.Time `json:"date,omitempty"`
	PerformanceDate       *time.Time `json:"performance_date,omitempty"`
	PaymentDate           *time.Time `json:"payment_date,omitempty"`
	Status                string     `json:"status"`
	AmountMinorUnits      int64      `json:"amount_minor_units"`
	AmountWoVatMinorUnits int64      `json:"amount_wo_vat_minor_units"`
	VatAmountMinorUnits   int64      `json:"vat_amount_minor_units"`
	Remarks               string     `json:"remarks,omitempty"`
	FinalizedAt           *time.Time `json:"finalized_at,omitempty"`
	PaidAt                *time.Time `json:"paid_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	Version               int        `json:"version"`
}

// UpdateInvoiceRequest populates a draft invoice.
// Zero dates are replaced with defaults derived from the service clock.
type UpdateInvoiceRequest struct {
	CustomerID      uuid.UUID
	OrganisationID  uuid.UUID
	CurrencyID      uuid.UUID
	Date            *time.Time
	PerformanceDate *time.Time
	PaymentDate     *time.Time
	Remarks         string
	Version         *int // when set, must match the stored version
}

// AttachRatesRequest attaches existing rate lines to an invoice
type AttachRatesRequest struct {
	RateIDs []uuid.UUID
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	Status     string
	CustomerID *uuid.UUID
	FromDate   *time.Time
	ToDate     *time.Time
	Page       int
	PageSize   int
}

// Computation sources reported in ComputationResponse.Source
const (
	SourceSnapshot = "snapshot"
	SourceLive     = "live"
)

// LineAmountsResponse is one converted rate line
type LineAmountsResponse struct {
	RateLineID          uuid.UUID       `json:"rate_line_id"`
	LineCurrencyRate    int64           `json:"line_currency_rate"`
	InvoiceCurrencyRate int64           `json:"invoice_currency_rate"`
	VatRateBasisPoints  int64           `json:"vat_rate_basis_points"`
	Quantity            decimal.Decimal `json:"quantity"`
	NetUnit             int64           `json:"net_unit"`
	NetLine             int64           `json:"net_line"`
	VatValue            int64           `json:"vat_value"`
	GrossValue          int64           `json:"gross_value"`
}

// WarningResponse is a recoverable computation problem
type WarningResponse struct {
	Kind        string     `json:"kind"`
	RateLineID  uuid.UUID  `json:"rate_line_id"`
	Reference   string     `json:"reference,omitempty"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"`
	Message     string     `json:"message"`
}

// ComputationResponse carries per-line amounts and totals for an invoice
type ComputationResponse struct {
	InvoiceID   uuid.UUID             `json:"invoice_id"`
	Source      string                `json:"source"`
	Lines       []LineAmountsResponse `json:"lines"`
	AmountWoVat int64                 `json:"amount_wo_vat"`
	VatAmount   int64                 `json:"vat_amount"`
	Amount      int64                 `json:"amount"`
	Warnings    []WarningResponse     `json:"warnings,omitempty"`
}

// TotalsDisplay holds locale-formatted invoice totals
type TotalsDisplay struct {
	Currency    string `json:"currency"`
	Locale      string `json:"locale"`
	AmountWoVat string `json:"amount_wo_vat"`
	VatAmount   string `json:"vat_amount"`
	Amount      string `json:"amount"`
}

// FinalizeResponse is returned by finalize and recompute
type FinalizeResponse struct {
	Invoice     InvoiceResponse     `json:"invoice"`
	Computation ComputationResponse `json:"computation"`
}

// RateLineResponse represents a rate line in API responses
type RateLineResponse struct {
	ID             uuid.UUID       `json:"id"`
	ServiceID      uuid.UUID       `json:"service_id"`
	ShipmentID     *uuid.UUID      `json:"shipment_id,omitempty"`
	RouteID        *uuid.UUID      `json:"route_id,omitempty"`
	RateMinorUnits int64           `json:"rate_minor_units"`
	CurrencyID     uuid.UUID       `json:"currency_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	VatRateID      *uuid.UUID      `json:"vat_rate_id,omitempty"`
	InvoiceNumber  string          `json:"invoice_number,omitempty"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CreateRateLineRequest creates a rate line
type CreateRateLineRequest struct {
	ServiceID      uuid.UUID
	ShipmentID     *uuid.UUID
	RouteID        *uuid.UUID
	RateMinorUnits int64
	CurrencyID     uuid.UUID
	Quantity       decimal.Decimal
	VatRateID      *uuid.UUID
	Description    string
}

// ConvertRequest converts a rate line that is not persisted, e.g. for a form estimate
type ConvertRequest struct {
	RateMinorUnits    int64
	CurrencyID        uuid.UUID
	Quantity          decimal.Decimal
	VatRateID         *uuid.UUID
	OrganisationID    uuid.UUID
	InvoiceCurrencyID uuid.UUID
	Date              *time.Time
}

// ConvertResponse is the result of an ad-hoc conversion
type ConvertResponse struct {
	Amounts  LineAmountsResponse `json:"amounts"`
	Warnings []WarningResponse   `json:"warnings,omitempty"`
}

// CurrencyResponse represents a currency in API responses
type CurrencyResponse struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

// CurrencyRateResponse represents a currency rate record in API responses
type CurrencyRateResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganisationID uuid.UUID `json:"organisation_id"`
	CurrencyID     uuid.UUID `json:"currency_id"`
	RateMinorUnits int64     `json:"rate_minor_units"`
	Date           time.Time `json:"date"`
}

// RecordCurrencyRateRequest records a currency rate
type RecordCurrencyRateRequest struct {
	OrganisationID uuid.UUID
	CurrencyID     uuid.UUID
	RateMinorUnits int64
	Date           time.Time
}

// CurrencyRateListFilter defines filtering options for currency rate list queries
type CurrencyRateListFilter struct {
	OrganisationID *uuid.UUID
	CurrencyID     *uuid.UUID
	Page           int
	PageSize       int
}

// RateLookupResponse is the effective rate for a date
type RateLookupResponse struct {
	OrganisationID uuid.UUID `json:"organisation_id"`
	CurrencyID     uuid.UUID `json:"currency_id"`
	Date           time.Time `json:"date"`
	RateMinorUnits int64     `json:"rate_minor_units"`
	Fallback       bool      `json:"fallback"`
}

// VatRateResponse represents a VAT rate in API responses
type VatRateResponse struct {
	ID              uuid.UUID `json:"id"`
	NameEng         string    `json:"name_eng"`
	RateBasisPoints int64     `json:"rate_basis_points"`
}

// CreateVatRateRequest creates a VAT rate
type CreateVatRateRequest struct {
	NameEng         string
	RateBasisPoints int64
}

func toInvoiceResponse(inv *invoicing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:                    inv.ID,
		TenantID:              inv.TenantID,
		Number:                inv.Number,
		CustomerID:            inv.CustomerID,
		OrganisationID:        inv.OrganisationID,
		CurrencyID:            inv.CurrencyID,
		Date:                  inv.Date,
		PerformanceDate:       inv.PerformanceDate,
		PaymentDate:           inv.PaymentDate,
		Status:                string(inv.Status),
		AmountMinorUnits:      inv.AmountMinorUnits,
		AmountWoVatMinorUnits: inv.AmountWoVatMinorUnits,
		VatAmountMinorUnits:   inv.VatAmountMinorUnits,
		Remarks:               inv.Remarks,
		FinalizedAt:           inv.FinalizedAt,
		PaidAt:                inv.PaidAt,
		CreatedAt:             inv.CreatedAt,
		UpdatedAt:             inv.UpdatedAt,
		Version:               inv.Version,
	}
}

func toLineAmountsResponse(l invoicing.LineAmounts) LineAmountsResponse {
	return LineAmountsResponse{
		RateLineID:          l.RateLineID,
		LineCurrencyRate:    l.LineCurrencyRate,
		InvoiceCurrencyRate: l.InvoiceCurrencyRate,
		VatRateBasisPoints:  l.VatRateBasisPoints,
		Quantity:            l.Quantity,
		NetUnit:             l.NetUnit,
		NetLine:             l.NetLine,
		VatValue:            l.VatValue,
		GrossValue:          l.GrossValue,
	}
}

func toWarningResponses(warnings []*invoicing.ComputationError) []WarningResponse {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]WarningResponse, 0, len(warnings))
	for _, w := range warnings {
		resp := WarningResponse{
			Kind:       string(w.Kind),
			RateLineID: w.RateLineID,
			Reference:  string(w.Reference),
			Message:    w.Message,
		}
		if w.ReferenceID != uuid.Nil {
			id := w.ReferenceID
			resp.ReferenceID = &id
		}
		out = append(out, resp)
	}
	return out
}

func toComputationResponse(invoiceID uuid.UUID, source string, c *invoicing.Computation) ComputationResponse {
	lines := make([]LineAmountsResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, toLineAmountsResponse(l))
	}
	return ComputationResponse{
		InvoiceID:   invoiceID,
		Source:      source,
		Lines:       lines,
		AmountWoVat: c.Totals.AmountWoVat,
		VatAmount:   c.Totals.VatAmount,
		Amount:      c.Totals.Amount,
		Warnings:    toWarningResponses(c.Warnings),
	}
}

func toRateLineResponse(l *invoicing.RateLine) RateLineResponse {
	return RateLineResponse{
		ID:             l.ID,
		ServiceID:      l.ServiceID,
		ShipmentID:     l.ShipmentID,
		RouteID:        l.RouteID,
		RateMinorUnits: l.RateMinorUnits,
		CurrencyID:     l.CurrencyID,
		Quantity:       l.Quantity,
		VatRateID:      l.VatRateID,
		InvoiceNumber:  l.InvoiceNumber,
		Description:    l.Description,
		CreatedAt:      l.CreatedAt,
	}
}

func toCurrencyResponse(c *invoicing.Currency) CurrencyResponse {
	return CurrencyResponse{ID: c.ID, Code: c.Code.String(), Name: c.Name}
}

func toCurrencyRateResponse(r *invoicing.CurrencyRate) CurrencyRateResponse {
	return CurrencyRateResponse{
		ID:             r.ID,
		OrganisationID: r.OrganisationID,
		CurrencyID:     r.CurrencyID,
		RateMinorUnits: r.RateMinorUnits,
		Date:           r.Date,
	}
}

func toVatRateResponse(v *invoicing.VatRate) VatRateResponse {
	return VatRateResponse{ID: v.ID, NameEng: v.NameEng, RateBasisPoints: v.RateBasisPoints}
}
