package handler

import (
	invoicingapp "github.com/freightdesk/backend/internal/application/invoicing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the client's idempotency key on finalize
const IdempotencyKeyHeader = "Idempotency-Key"

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService   *invoicingapp.InvoiceService
	referenceService *invoicingapp.ReferenceDataService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *invoicingapp.InvoiceService, referenceService *invoicingapp.ReferenceDataService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:   invoiceService,
		referenceService: referenceService,
	}
}

// UpdateInvoiceRequest populates a draft invoice.
// Omitted dates are defaulted by the service.
type UpdateInvoiceRequest struct {
	CustomerID      string `json:"customer_id" binding:"required,uuid"`
	OrganisationID  string `json:"organisation_id" binding:"required,uuid"`
	CurrencyID      string `json:"currency_id" binding:"required,uuid"`
	Date            string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	PerformanceDate string `json:"performance_date" binding:"omitempty,datetime=2006-01-02"`
	PaymentDate     string `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	Remarks         string `json:"remarks" binding:"max=2000"`
	Version         *int   `json:"version" binding:"omitempty,min=1"`
}

// AttachRatesRequest lists the rate lines to attach
type AttachRatesRequest struct {
	RateIDs []string `json:"rate_ids" binding:"required,min=1,dive,uuid"`
}

// ListInvoicesQuery holds the list filters
type ListInvoicesQuery struct {
	Status     string `form:"status" binding:"omitempty,oneof=draft pending paid"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	FromDate   string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate     string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PreviewResponse is the computation plus, when a locale was requested, formatted totals
type PreviewResponse struct {
	invoicingapp.ComputationResponse
	Display *invoicingapp.TotalsDisplay `json:"display,omitempty"`
}

// CreateDraft creates a blank invoice with the next draft number
func (h *InvoiceHandler) CreateDraft(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.CreateDraft(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// List lists invoices of the tenant, newest number first
func (h *InvoiceHandler) List(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var query ListInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := invoicingapp.InvoiceListFilter{
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	// Formats were validated by the binding tags.
	filter.CustomerID, _ = parseOptionalUUID(query.CustomerID)
	filter.FromDate, _ = parseDate(query.FromDate)
	filter.ToDate, _ = parseDate(query.ToDate)

	invoices, total, err := h.invoiceService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	h.SuccessWithMeta(c, invoices, total, page, query.PageSize)
}

// GetByID returns a single invoice
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetByID(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Update populates a draft invoice
func (h *InvoiceHandler) Update(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}

	var req UpdateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	appReq := invoicingapp.UpdateInvoiceRequest{
		CustomerID:     uuid.MustParse(req.CustomerID),
		OrganisationID: uuid.MustParse(req.OrganisationID),
		CurrencyID:     uuid.MustParse(req.CurrencyID),
		Remarks:        req.Remarks,
		Version:        req.Version,
	}
	appReq.Date, _ = parseDate(req.Date)
	appReq.PerformanceDate, _ = parseDate(req.PerformanceDate)
	appReq.PaymentDate, _ = parseDate(req.PaymentDate)

	invoice, err := h.invoiceService.Update(c.Request.Context(), tenantID, invoiceID, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// AttachRates attaches rate lines to a draft invoice
func (h *InvoiceHandler) AttachRates(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}

	var req AttachRatesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	rateIDs := make([]uuid.UUID, 0, len(req.RateIDs))
	for _, id := range req.RateIDs {
		rateIDs = append(rateIDs, uuid.MustParse(id))
	}

	lines, err := h.invoiceService.AttachRates(c.Request.Context(), tenantID, invoiceID, invoicingapp.AttachRatesRequest{RateIDs: rateIDs})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lines)
}

// Preview returns the per-line amounts and totals of an invoice.
// With ?lang=<BCP 47 tag> the totals are also formatted for display.
func (h *InvoiceHandler) Preview(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	computation, err := h.invoiceService.Preview(ctx, tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := PreviewResponse{ComputationResponse: *computation}

	if lang := c.Query("lang"); lang != "" {
		invoice, err := h.invoiceService.GetByID(ctx, tenantID, invoiceID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		if invoice.CurrencyID != nil {
			display, err := h.referenceService.FormatTotals(ctx, tenantID, *invoice.CurrencyID, lang, computation)
			if err != nil {
				h.HandleError(c, err)
				return
			}
			resp.Display = display
		}
	}

	h.Success(c, resp)
}

// Finalize freezes the computation and moves the invoice to pending
func (h *InvoiceHandler) Finalize(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}

	result, err := h.invoiceService.Finalize(c.Request.Context(), tenantID, invoiceID, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Recompute refreshes the snapshots of a pending invoice
func (h *InvoiceHandler) Recompute(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}

	result, err := h.invoiceService.Recompute(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// MarkPaid marks a pending invoice as paid
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.MarkPaid(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}
