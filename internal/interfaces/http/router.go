package http

import (
	"github.com/gofiber/fiber/v2"

	appfiscal "github.com/jhoicas/motor-fiscal/internal/application/fiscal"
	"github.com/jhoicas/motor-fiscal/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Aggregator *appfiscal.FiscalDataAggregator
	RuleQuery  *appfiscal.RuleQueryUseCase
	Taxes      *appfiscal.TaxUseCase
	Audit      *appfiscal.AuditUseCase
	Logger     *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	if deps.Logger != nil {
		api.Use(RequestLogger(deps.Logger))
	}

	fiscal := api.Group("/fiscal", CompanyContext())
	h := NewFiscalHandler(deps.Aggregator, deps.RuleQuery, deps.Taxes, deps.Audit)
	RegisterFiscalRoutes(fiscal, h)
}

// RegisterFiscalRoutes rutas del motor fiscal sobre un grupo ya configurado.
func RegisterFiscalRoutes(r fiber.Router, h *FiscalHandler) {
	r.Get("/products/:code/profile", h.GetProfile)
	r.Get("/rules/:ruleCode/items", h.GetRuleItem)
	r.Post("/taxes/calculate", h.CalculateTaxes)

	// Auditoría
	r.Get("/audit/products/:code", h.AuditProduct)
	r.Post("/audit/batch", h.AuditBatch)
}
