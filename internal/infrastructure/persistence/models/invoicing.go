package models

import (
	"time"

	"github.com/freightdesk/backend/internal/domain/invoicing"
	"github.com/freightdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	TenantID              uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_tenant_number,priority:1"`
	Number                string     `gorm:"type:varchar(16);not null;uniqueIndex:idx_invoice_tenant_number,priority:2"`
	CustomerID            *uuid.UUID `gorm:"type:uuid;index"`
	OrganisationID        *uuid.UUID `gorm:"type:uuid;index"`
	CurrencyID            *uuid.UUID `gorm:"type:uuid"`
	Date                  *time.Time `gorm:"type:date;index"`
	PerformanceDate       *time.Time `gorm:"type:date"`
	PaymentDate           *time.Time `gorm:"type:date"`
	Status                string     `gorm:"type:varchar(20);not null;default:'draft';index"`
	AmountMinorUnits      int64      `gorm:"not null;default:0"`
	AmountWoVatMinorUnits int64      `gorm:"not null;default:0"`
	VatAmountMinorUnits   int64      `gorm:"not null;default:0"`
	Remarks               string     `gorm:"type:text"`
	FinalizedAt           *time.Time
	PaidAt                *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	return &invoicing.Invoice{
		TenantAggregateRoot:   m.root(m.TenantID),
		Number:                m.Number,
		CustomerID:            m.CustomerID,
		OrganisationID:        m.OrganisationID,
		CurrencyID:            m.CurrencyID,
		Date:                  m.Date,
		PerformanceDate:       m.PerformanceDate,
		PaymentDate:           m.PaymentDate,
		Status:                invoicing.InvoiceStatus(m.Status),
		AmountMinorUnits:      m.AmountMinorUnits,
		AmountWoVatMinorUnits: m.AmountWoVatMinorUnits,
		VatAmountMinorUnits:   m.VatAmountMinorUnits,
		Remarks:               m.Remarks,
		FinalizedAt:           m.FinalizedAt,
		PaidAt:                m.PaidAt,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(i *invoicing.Invoice) {
	m.AggregateModel = aggregateModelOf(i.TenantAggregateRoot)
	m.TenantID = i.TenantID
	m.Number = i.Number
	m.CustomerID = i.CustomerID
	m.OrganisationID = i.OrganisationID
	m.CurrencyID = i.CurrencyID
	m.Date = i.Date
	m.PerformanceDate = i.PerformanceDate
	m.PaymentDate = i.PaymentDate
	m.Status = string(i.Status)
	m.AmountMinorUnits = i.AmountMinorUnits
	m.AmountWoVatMinorUnits = i.AmountWoVatMinorUnits
	m.VatAmountMinorUnits = i.VatAmountMinorUnits
	m.Remarks = i.Remarks
	m.FinalizedAt = i.FinalizedAt
	m.PaidAt = i.PaidAt
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(i *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(i)
	return m
}

// RateLineModel is the persistence model for the RateLine aggregate root.
type RateLineModel struct {
	AggregateModel
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_rate_line_tenant_invoice,priority:1"`
	ServiceID      uuid.UUID       `gorm:"type:uuid;not null"`
	ShipmentID     *uuid.UUID      `gorm:"type:uuid;index"`
	RouteID        *uuid.UUID      `gorm:"type:uuid"`
	RateMinorUnits int64           `gorm:"not null"`
	CurrencyID     uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	VatRateID      *uuid.UUID      `gorm:"type:uuid"`
	InvoiceNumber  string          `gorm:"type:varchar(16);index:idx_rate_line_tenant_invoice,priority:2"`
	Description    string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (RateLineModel) TableName() string {
	return "rate_lines"
}

// ToDomain converts the persistence model to a domain RateLine entity.
func (m *RateLineModel) ToDomain() *invoicing.RateLine {
	return &invoicing.RateLine{
		TenantAggregateRoot: m.root(m.TenantID),
		ServiceID:           m.ServiceID,
		ShipmentID:          m.ShipmentID,
		RouteID:             m.RouteID,
		RateMinorUnits:      m.RateMinorUnits,
		CurrencyID:          m.CurrencyID,
		Quantity:            m.Quantity,
		VatRateID:           m.VatRateID,
		InvoiceNumber:       m.InvoiceNumber,
		Description:         m.Description,
	}
}

// FromDomain populates the persistence model from a domain RateLine entity.
func (m *RateLineModel) FromDomain(l *invoicing.RateLine) {
	m.AggregateModel = aggregateModelOf(l.TenantAggregateRoot)
	m.TenantID = l.TenantID
	m.ServiceID = l.ServiceID
	m.ShipmentID = l.ShipmentID
	m.RouteID = l.RouteID
	m.RateMinorUnits = l.RateMinorUnits
	m.CurrencyID = l.CurrencyID
	m.Quantity = l.Quantity
	m.VatRateID = l.VatRateID
	m.InvoiceNumber = l.InvoiceNumber
	m.Description = l.Description
}

// RateLineModelFromDomain creates a new persistence model from a domain RateLine entity.
func RateLineModelFromDomain(l *invoicing.RateLine) *RateLineModel {
	m := &RateLineModel{}
	m.FromDomain(l)
	return m
}

// CurrencyModel is the persistence model for the Currency aggregate root.
type CurrencyModel struct {
	AggregateModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_currency_tenant_code,priority:1"`
	Code     string    `gorm:"type:char(3);not null;uniqueIndex:idx_currency_tenant_code,priority:2"`
	Name     string    `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (CurrencyModel) TableName() string {
	return "currencies"
}

// ToDomain converts the persistence model to a domain Currency entity.
func (m *CurrencyModel) ToDomain() *invoicing.Currency {
	return &invoicing.Currency{
		TenantAggregateRoot: m.root(m.TenantID),
		Code:                valueobject.CurrencyCode(m.Code),
		Name:                m.Name,
	}
}

// FromDomain populates the persistence model from a domain Currency entity.
func (m *CurrencyModel) FromDomain(c *invoicing.Currency) {
	m.AggregateModel = aggregateModelOf(c.TenantAggregateRoot)
	m.TenantID = c.TenantID
	m.Code = string(c.Code)
	m.Name = c.Name
}

// CurrencyRateModel is the persistence model for the CurrencyRate aggregate root.
type CurrencyRateModel struct {
	AggregateModel
	TenantID       uuid.UUID `gorm:"type:uuid;not null;index"`
	OrganisationID uuid.UUID `gorm:"type:uuid;not null;index:idx_currency_rate_lookup,priority:1"`
	CurrencyID     uuid.UUID `gorm:"type:uuid;not null;index:idx_currency_rate_lookup,priority:2"`
	RateMinorUnits int64     `gorm:"not null"`
	Date           time.Time `gorm:"type:date;not null;index:idx_currency_rate_lookup,priority:3"`
}

// TableName returns the table name for GORM
func (CurrencyRateModel) TableName() string {
	return "currency_rates"
}

// ToDomain converts the persistence model to a domain CurrencyRate entity.
func (m *CurrencyRateModel) ToDomain() *invoicing.CurrencyRate {
	return &invoicing.CurrencyRate{
		TenantAggregateRoot: m.root(m.TenantID),
		OrganisationID:      m.OrganisationID,
		CurrencyID:          m.CurrencyID,
		RateMinorUnits:      m.RateMinorUnits,
		Date:                m.Date,
	}
}

// FromDomain populates the persistence model from a domain CurrencyRate entity.
func (m *CurrencyRateModel) FromDomain(r *invoicing.CurrencyRate) {
	m.AggregateModel = aggregateModelOf(r.TenantAggregateRoot)
	m.TenantID = r.TenantID
	m.OrganisationID = r.OrganisationID
	m.CurrencyID = r.CurrencyID
	m.RateMinorUnits = r.RateMinorUnits
	m.Date = r.Date
}

// VatRateModel is the persistence model for the VatRate aggregate root.
type VatRateModel struct {
	AggregateModel
	TenantID        uuid.UUID `gorm:"type:uuid;not null;index"`
	NameEng         string    `gorm:"type:varchar(100);not null"`
	RateBasisPoints int64     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VatRateModel) TableName() string {
	return "vat_rates"
}

// ToDomain converts the persistence model to a domain VatRate entity.
func (m *VatRateModel) ToDomain() *invoicing.VatRate {
	return &invoicing.VatRate{
		TenantAggregateRoot: m.root(m.TenantID),
		NameEng:             m.NameEng,
		RateBasisPoints:     m.RateBasisPoints,
	}
}

// FromDomain populates the persistence model from a domain VatRate entity.
func (m *VatRateModel) FromDomain(v *invoicing.VatRate) {
	m.AggregateModel = aggregateModelOf(v.TenantAggregateRoot)
	m.TenantID = v.TenantID
	m.NameEng = v.NameEng
	m.RateBasisPoints = v.RateBasisPoints
}

// InvoiceRateSnapshotModel is the persistence model for frozen per-line amounts.
// Rows are immutable; a re-finalization deletes and reinserts the whole set.
type InvoiceRateSnapshotModel struct {
	ID                            uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID                      uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID                     uuid.UUID       `gorm:"type:uuid;not null;index"`
	RateLineID                    uuid.UUID       `gorm:"type:uuid;not null"`
	Position                      int             `gorm:"not null;default:0"`
	CurrencyRateMinorUnits        int64           `gorm:"not null"`
	InvoiceCurrencyRateMinorUnits int64           `gorm:"not null"`
	VatRateBasisPoints            int64           `gorm:"not null"`
	Quantity                      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NetUnitMinorUnits             int64           `gorm:"not null"`
	NetLineMinorUnits             int64           `gorm:"not null"`
	VatValueMinorUnits            int64           `gorm:"not null"`
	GrossValueMinorUnits          int64           `gorm:"not null"`
	CreatedAt                     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceRateSnapshotModel) TableName() string {
	return "invoice_rate_snapshots"
}

// ToDomain converts the persistence model to a domain InvoiceRateSnapshot.
func (m *InvoiceRateSnapshotModel) ToDomain() invoicing.InvoiceRateSnapshot {
	return invoicing.InvoiceRateSnapshot{
		ID:                            m.ID,
		TenantID:                      m.TenantID,
		InvoiceID:                     m.InvoiceID,
		RateLineID:                    m.RateLineID,
		Position:                      m.Position,
		CurrencyRateMinorUnits:        m.CurrencyRateMinorUnits,
		InvoiceCurrencyRateMinorUnits: m.InvoiceCurrencyRateMinorUnits,
		VatRateBasisPoints:            m.VatRateBasisPoints,
		Quantity:                      m.Quantity,
		NetUnitMinorUnits:             m.NetUnitMinorUnits,
		NetLineMinorUnits:             m.NetLineMinorUnits,
		VatValueMinorUnits:            m.VatValueMinorUnits,
		GrossValueMinorUnits:          m.GrossValueMinorUnits,
		CreatedAt:                     m.CreatedAt,
	}
}

// InvoiceRateSnapshotModelFromDomain creates a new persistence model from a domain snapshot.
func InvoiceRateSnapshotModelFromDomain(s *invoicing.InvoiceRateSnapshot) *InvoiceRateSnapshotModel {
	return &InvoiceRateSnapshotModel{
		ID:                            s.ID,
		TenantID:                      s.TenantID,
		InvoiceID:                     s.InvoiceID,
		RateLineID:                    s.RateLineID,
		Position:                      s.Position,
		CurrencyRateMinorUnits:        s.CurrencyRateMinorUnits,
		InvoiceCurrencyRateMinorUnits: s.InvoiceCurrencyRateMinorUnits,
		VatRateBasisPoints:            s.VatRateBasisPoints,
		Quantity:                      s.Quantity,
		NetUnitMinorUnits:             s.NetUnitMinorUnits,
		NetLineMinorUnits:             s.NetLineMinorUnits,
		VatValueMinorUnits:            s.VatValueMinorUnits,
		GrossValueMinorUnits:          s.GrossValueMinorUnits,
		CreatedAt:                     s.CreatedAt,
	}
}
