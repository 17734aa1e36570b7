package router

import (
	"github.com/freightdesk/backend/internal/infrastructure/config"
	"github.com/freightdesk/backend/internal/infrastructure/logger"
	"github.com/freightdesk/backend/internal/interfaces/http/handler"
	"github.com/freightdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig holds what the HTTP engine needs beyond the handlers
type EngineConfig struct {
	HTTP        config.HTTPConfig
	ServiceName string
	Tracing     bool
	Meter       metric.Meter // nil disables HTTP metrics
	Logger      *zap.Logger
}

// Handlers is the set of HTTP handlers mounted by NewEngine
type Handlers struct {
	Health    *handler.HealthHandler
	Invoices  *handler.InvoiceHandler
	Rates     *handler.RateHandler
	Reference *handler.ReferenceDataHandler
}

// NewEngine builds the gin engine with the middleware chain and every API route.
// Order matters: the request ID must exist before tracing and logging read it,
// and the tenant is resolved last so rejected requests are still logged and traced.
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}
	middleware.SetupValidator()

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.Tracing}),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(cfg.Meter, log),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Tenant(middleware.DefaultTenantConfig()),
	)

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}

	api := NewAPI(DefaultAPIVersion)
	if h.Health != nil {
		api.Add((&Resource{Name: "health", Prefix: "/health"}).Get("", h.Health.Health))
	}
	api.Add(InvoicingResources(h)...).Mount(engine)

	return engine, nil
}

// InvoicingResources returns the route tables of the invoicing API.
// Resources whose handler is nil are left out.
func InvoicingResources(h Handlers) []*Resource {
	var out []*Resource

	if inv := h.Invoices; inv != nil {
		out = append(out, (&Resource{Name: "invoices", Prefix: "/invoices"}).
			Post("", inv.CreateDraft).
			Get("", inv.List).
			Get("/:id", inv.GetByID).
			Put("/:id", inv.Update).
			Post("/:id/rates", inv.AttachRates).
			Get("/:id/preview", inv.Preview).
			Post("/:id/finalize", inv.Finalize).
			Post("/:id/recompute", inv.Recompute).
			Post("/:id/pay", inv.MarkPaid))
	}

	if rates := h.Rates; rates != nil {
		out = append(out, (&Resource{Name: "rates", Prefix: "/rates"}).
			Post("", rates.Create).
			Post("/convert", rates.Convert).
			Get("/:id", rates.GetByID))
	}

	if ref := h.Reference; ref != nil {
		out = append(out,
			(&Resource{Name: "currencies", Prefix: "/currencies"}).
				Post("", ref.CreateCurrency).
				Get("", ref.ListCurrencies).
				Get("/:id", ref.GetCurrency),
			(&Resource{Name: "currency-rates", Prefix: "/currency-rates"}).
				Post("", ref.RecordCurrencyRate).
				Get("", ref.ListCurrencyRates).
				Get("/lookup", ref.LookupCurrencyRate),
			(&Resource{Name: "vat-rates", Prefix: "/vat-rates"}).
				Post("", ref.CreateVatRate).
				Get("", ref.ListVatRates),
		)
	}

	return out
}
