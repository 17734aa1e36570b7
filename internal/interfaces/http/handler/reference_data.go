package handler

import (
	invoicingapp "github.com/freightdesk/backend/internal/application/invoicing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReferenceDataHandler serves currencies, currency rates and VAT rates
type ReferenceDataHandler struct {
	BaseHandler
	referenceService *invoicingapp.ReferenceDataService
}

// NewReferenceDataHandler creates a new ReferenceDataHandler
func NewReferenceDataHandler(referenceService *invoicingapp.ReferenceDataService) *ReferenceDataHandler {
	return &ReferenceDataHandler{referenceService: referenceService}
}

// CreateCurrencyRequest registers a currency
type CreateCurrencyRequest struct {
	Code string `json:"code" binding:"required,currency_code"`
	Name string `json:"name" binding:"max=100"`
}

// RecordCurrencyRateRequest records the rate of a currency from a date on
type RecordCurrencyRateRequest struct {
	OrganisationID string `json:"organisation_id" binding:"required,uuid"`
	CurrencyID     string `json:"currency_id" binding:"required,uuid"`
	RateMinorUnits int64  `json:"rate_minor_units" binding:"required,gt=0"`
	Date           string `json:"date" binding:"required,datetime=2006-01-02"`
}

// ListCurrencyRatesQuery holds the currency rate list filters
type ListCurrencyRatesQuery struct {
	OrganisationID string `form:"organisation_id" binding:"omitempty,uuid"`
	CurrencyID     string `form:"currency_id" binding:"omitempty,uuid"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// LookupCurrencyRateQuery selects the rate effective for a date
type LookupCurrencyRateQuery struct {
	OrganisationID string `form:"organisation_id" binding:"required,uuid"`
	CurrencyID     string `form:"currency_id" binding:"required,uuid"`
	Date           string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// CreateVatRateRequest registers a VAT rate in basis points (2700 = 27%)
type CreateVatRateRequest struct {
	NameEng         string `json:"name_eng" binding:"required,max=100"`
	RateBasisPoints *int64 `json:"rate_basis_points" binding:"required,gte=0,lte=10000"`
}

// CreateCurrency registers a currency
func (h *ReferenceDataHandler) CreateCurrency(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var req CreateCurrencyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	currency, err := h.referenceService.CreateCurrency(c.Request.Context(), tenantID, req.Code, req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, currency)
}

// ListCurrencies lists the tenant's currencies
func (h *ReferenceDataHandler) ListCurrencies(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	currencies, err := h.referenceService.ListCurrencies(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, currencies)
}

// GetCurrency returns a currency
func (h *ReferenceDataHandler) GetCurrency(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}
	currencyID, ok := h.pathID(c, "id", "currency")
	if !ok {
		return
	}

	currency, err := h.referenceService.GetCurrency(c.Request.Context(), tenantID, currencyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, currency)
}

// RecordCurrencyRate records a currency rate
func (h *ReferenceDataHandler) RecordCurrencyRate(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var req RecordCurrencyRateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	date, _ := parseDate(req.Date)

	rate, err := h.referenceService.RecordCurrencyRate(c.Request.Context(), tenantID, invoicingapp.RecordCurrencyRateRequest{
		OrganisationID: uuid.MustParse(req.OrganisationID),
		CurrencyID:     uuid.MustParse(req.CurrencyID),
		RateMinorUnits: req.RateMinorUnits,
		Date:           *date,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, rate)
}

// ListCurrencyRates lists currency rate records, newest first
func (h *ReferenceDataHandler) ListCurrencyRates(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var query ListCurrencyRatesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter := invoicingapp.CurrencyRateListFilter{Page: query.Page, PageSize: query.PageSize}
	filter.OrganisationID, _ = parseOptionalUUID(query.OrganisationID)
	filter.CurrencyID, _ = parseOptionalUUID(query.CurrencyID)

	rates, err := h.referenceService.ListCurrencyRates(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rates)
}

// LookupCurrencyRate returns the rate in force for a date, or the fallback of 100
func (h *ReferenceDataHandler) LookupCurrencyRate(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var query LookupCurrencyRateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	date, _ := parseDate(query.Date)

	result, err := h.referenceService.LookupCurrencyRate(c.Request.Context(), tenantID,
		uuid.MustParse(query.OrganisationID), uuid.MustParse(query.CurrencyID), date)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// CreateVatRate registers a VAT rate
func (h *ReferenceDataHandler) CreateVatRate(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var req CreateVatRateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	vat, err := h.referenceService.CreateVatRate(c.Request.Context(), tenantID, invoicingapp.CreateVatRateRequest{
		NameEng:         req.NameEng,
		RateBasisPoints: *req.RateBasisPoints,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, vat)
}

// ListVatRates lists the tenant's VAT rates
func (h *ReferenceDataHandler) ListVatRates(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	rates, err := h.referenceService.ListVatRates(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rates)
}
