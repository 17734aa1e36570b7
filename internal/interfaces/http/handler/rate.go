package handler

import (
	invoicingapp "github.com/freightdesk/backend/internal/application/invoicing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateHandler handles rate line endpoints
type RateHandler struct {
	BaseHandler
	rateService *invoicingapp.RateLineService
}

// NewRateHandler creates a new RateHandler
func NewRateHandler(rateService *invoicingapp.RateLineService) *RateHandler {
	return &RateHandler{rateService: rateService}
}

// CreateRateRequest creates a rate line.
// Quantity accepts a JSON number or a decimal string such as "2.5".
type CreateRateRequest struct {
	ServiceID      string          `json:"service_id" binding:"required,uuid"`
	ShipmentID     string          `json:"shipment_id" binding:"omitempty,uuid"`
	RouteID        string          `json:"route_id" binding:"omitempty,uuid"`
	RateMinorUnits *int64          `json:"rate_minor_units" binding:"required"`
	CurrencyID     string          `json:"currency_id" binding:"required,uuid"`
	Quantity       decimal.Decimal `json:"quantity"`
	VatRateID      string          `json:"vat_rate_id" binding:"omitempty,uuid"`
	Description    string          `json:"description" binding:"max=500"`
}

// ConvertRateRequest converts an unsaved rate line into the invoice currency
type ConvertRateRequest struct {
	RateMinorUnits    *int64          `json:"rate_minor_units" binding:"required"`
	CurrencyID        string          `json:"currency_id" binding:"required,uuid"`
	Quantity          decimal.Decimal `json:"quantity"`
	VatRateID         string          `json:"vat_rate_id" binding:"omitempty,uuid"`
	OrganisationID    string          `json:"organisation_id" binding:"required,uuid"`
	InvoiceCurrencyID string          `json:"invoice_currency_id" binding:"required,uuid"`
	Date              string          `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// Create creates a rate line. Rate and quantity invariants are checked by the domain
// and reported as ERR_MALFORMED_RATE_LINE.
func (h *RateHandler) Create(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var req CreateRateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	appReq := invoicingapp.CreateRateLineRequest{
		ServiceID:      uuid.MustParse(req.ServiceID),
		RateMinorUnits: *req.RateMinorUnits,
		CurrencyID:     uuid.MustParse(req.CurrencyID),
		Quantity:       req.Quantity,
		Description:    req.Description,
	}
	appReq.ShipmentID, _ = parseOptionalUUID(req.ShipmentID)
	appReq.RouteID, _ = parseOptionalUUID(req.RouteID)
	appReq.VatRateID, _ = parseOptionalUUID(req.VatRateID)

	line, err := h.rateService.Create(c.Request.Context(), tenantID, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, line)
}

// GetByID returns a rate line
func (h *RateHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	rateID, ok := h.pathID(c, "id", "rate")
	if !ok {
		return
	}

	line, err := h.rateService.GetByID(c.Request.Context(), tenantID, rateID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, line)
}

// Convert runs the rate conversion without persisting anything
func (h *RateHandler) Convert(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var req ConvertRateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	appReq := invoicingapp.ConvertRequest{
		RateMinorUnits:    *req.RateMinorUnits,
		CurrencyID:        uuid.MustParse(req.CurrencyID),
		Quantity:          req.Quantity,
		OrganisationID:    uuid.MustParse(req.OrganisationID),
		InvoiceCurrencyID: uuid.MustParse(req.InvoiceCurrencyID),
	}
	appReq.VatRateID, _ = parseOptionalUUID(req.VatRateID)
	appReq.Date, _ = parseDate(req.Date)

	result, err := h.rateService.Convert(c.Request.Context(), tenantID, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
