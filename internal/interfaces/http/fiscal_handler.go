package http

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/motor-fiscal/internal/application/dto"
	appfiscal "github.com/jhoicas/motor-fiscal/internal/application/fiscal"
	"github.com/jhoicas/motor-fiscal/internal/domain"
	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
)

// Contratos que el handler necesita de la capa de aplicación.
type (
	profileService interface {
		GetFiscalProfile(ctx context.Context, productCode, state string, companyID int) (*fiscaldom.FiscalProfile, error)
	}
	ruleService interface {
		GetRuleItem(ctx context.Context, ruleCode int, state string, companyID int) (*dto.RuleItemResponse, error)
	}
	taxService interface {
		CalculateTaxes(ctx context.Context, in dto.CalculateTaxesRequest) (*fiscaldom.TaxBreakdown, error)
	}
	auditService interface {
		AuditProduct(ctx context.Context, productCode, state string, companyID int) (*dto.AuditReport, error)
		AuditBatch(ctx context.Context, productCodes []string, state string, companyID int) (*dto.AuditBatchResponse, error)
	}
)

// FiscalHandler expone perfil fiscal, reglas ICMS, cálculo de impuestos y auditoría.
type FiscalHandler struct {
	profiles profileService
	rules    ruleService
	taxes    taxService
	audit    auditService
}

// NewFiscalHandler construye el handler.
func NewFiscalHandler(profiles profileService, rules ruleService, taxes taxService, audit auditService) *FiscalHandler {
	return &FiscalHandler{profiles: profiles, rules: rules, taxes: taxes, audit: audit}
}

// GetProfile godoc
// @Summary      Perfil fiscal del producto para una UF
// @Tags         fiscal
// @Produce      json
// @Param        code          path    string  true   "Código del producto"
// @Param        state         query   string  false  "UF de destino"
// @Param        X-Company-ID  header  int     false  "Empresa"
// @Success      200  {object}  dto.FiscalProfileResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/fiscal/products/{code}/profile [get]
func (h *FiscalHandler) GetProfile(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_CODE", Message: "code es requerido"})
	}
	profile, err := h.profiles.GetFiscalProfile(c.UserContext(), code, c.Query("state"), GetCompanyID(c))
	if err != nil {
		return respondError(c, err, "producto no encontrado")
	}
	return c.JSON(appfiscal.ToProfileResponse(profile))
}

// GetRuleItem ítem de regla ICMS resuelto por la cadena de fuentes.
// GET /api/fiscal/rules/:ruleCode/items?state=SP
func (h *FiscalHandler) GetRuleItem(c *fiber.Ctx) error {
	ruleCode, err := strconv.Atoi(c.Params("ruleCode"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "ruleCode debe ser numérico"})
	}
	out, err := h.rules.GetRuleItem(c.UserContext(), ruleCode, c.Query("state"), GetCompanyID(c))
	if err != nil {
		return respondError(c, err, "regla no encontrada")
	}
	return c.JSON(out)
}

// CalculateTaxes godoc
// @Summary      Cálculo de impuestos de una línea de venta
// @Tags         fiscal
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CalculateTaxesRequest  true  "Línea de venta"
// @Success      200   {object}  fiscal.TaxBreakdown
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/fiscal/taxes/calculate [post]
func (h *FiscalHandler) CalculateTaxes(c *fiber.Ctx) error {
	var in dto.CalculateTaxesRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.CompanyID == 0 {
		in.CompanyID = GetCompanyID(c)
	}
	out, err := h.taxes.CalculateTaxes(c.UserContext(), in)
	if err != nil {
		return respondError(c, err, "producto no encontrado")
	}
	return c.JSON(out)
}

// AuditProduct reporte de auditoría de un producto.
// GET /api/fiscal/audit/products/:code?state=SP
func (h *FiscalHandler) AuditProduct(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_CODE", Message: "code es requerido"})
	}
	out, err := h.audit.AuditProduct(c.UserContext(), code, c.Query("state"), GetCompanyID(c))
	if err != nil {
		return respondError(c, err, "producto no encontrado")
	}
	if c.Query("format") == "text" {
		return c.Type("txt", "utf-8").SendString(out.Text)
	}
	return c.JSON(out)
}

// AuditBatch auditoría de varios productos.
// POST /api/fiscal/audit/batch
func (h *FiscalHandler) AuditBatch(c *fiber.Ctx) error {
	var in dto.AuditBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.audit.AuditBatch(c.UserContext(), in.ProductCodes, in.State, GetCompanyID(c))
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(out)
}

func respondError(c *fiber.Ctx, err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: notFoundMsg})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "TIMEOUT", Message: "la operación no terminó a tiempo"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
