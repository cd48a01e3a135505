package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/motor-fiscal/internal/application/dto"
	"github.com/jhoicas/motor-fiscal/pkg/logger"
)

// Cabecera y clave de Locals para la empresa que consulta.
const (
	HeaderCompanyID = "X-Company-ID"
	LocalCompanyID  = "company_id"
)

// CompanyContext lee la empresa de la cabecera X-Company-ID (o del query company_id) y la deja en c.Locals.
// Sin empresa informada se usa 0: solo reglas genéricas.
func CompanyContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(HeaderCompanyID))
		if raw == "" {
			raw = strings.TrimSpace(c.Query("company_id"))
		}
		companyID := 0
		if raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil || id < 0 {
				return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_COMPANY", Message: "company_id debe ser un entero no negativo"})
			}
			companyID = id
		}
		c.Locals(LocalCompanyID, companyID)
		return c.Next()
	}
}

// GetCompanyID devuelve la empresa del contexto (después de CompanyContext).
func GetCompanyID(c *fiber.Ctx) int {
	v, _ := c.Locals(LocalCompanyID).(int)
	return v
}

// RequestLogger registra cada petición con su estado y duración.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("petición HTTP")
		return err
	}
}
