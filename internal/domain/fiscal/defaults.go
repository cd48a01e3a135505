// Package fiscal contiene las reglas de dominio del motor fiscal brasileño:
// validación de consistencia de reglas ICMS y cálculo de ICMS, ICMS-ST, FCP-ST, IPI y PIS/COFINS.
// No tiene dependencias de infraestructura; todo lo que necesita llega por parámetro.
package fiscal

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Defaults agrupa las constantes fiscales que el motor usa cuando faltan datos de referencia.
// Se construye una vez al arrancar (DefaultDefaults + archivo YAML opcional) y se inyecta
// explícitamente en el agregador, el resolvedor y el calculador.
type Defaults struct {
	HomeState       string          // UF de la empresa (fallback de reglas y clasificación)
	DefaultCST      string          // CST del ítem de regla por defecto
	DefaultICMSRate decimal.Decimal // alícuota nominal del ítem de regla por defecto
	DefaultOrigin   string          // origen cuando ni override ni producto lo informan
	PISRate         decimal.Decimal
	COFINSRate      decimal.Decimal

	STCodes             []string // CST/CSOSN que admiten ST
	IncompatibleSTCodes []string // CST "tributada integralmente", sin ST posible
	WithheldSTCodes     []string // ST ya retenida anteriormente
	ImportedOrigins     []string
}

// DefaultDefaults valores del régimen de referencia (lucro real, PIS/COFINS no cumulativo).
func DefaultDefaults() Defaults {
	return Defaults{
		HomeState:           "SP",
		DefaultCST:          "00",
		DefaultICMSRate:     decimal.NewFromInt(18),
		DefaultOrigin:       "0",
		PISRate:             decimal.RequireFromString("1.65"),
		COFINSRate:          decimal.RequireFromString("7.60"),
		STCodes:             []string{"10", "30", "60", "70", "90", "201", "202", "203", "500", "900"},
		IncompatibleSTCodes: []string{"00", "20"},
		WithheldSTCodes:     []string{"60", "500"},
		ImportedOrigins:     []string{"1", "2", "3", "8"},
	}
}

// IsSTCode indica si el CST pertenece al conjunto conocido que admite ST.
func (d Defaults) IsSTCode(cst string) bool {
	return slices.Contains(d.STCodes, normalizeCST(cst))
}

// IsIncompatibleWithST indica CST sin ST posible ("00" y la variante con reducción "20").
func (d Defaults) IsIncompatibleWithST(cst string) bool {
	return slices.Contains(d.IncompatibleSTCodes, normalizeCST(cst))
}

// IsWithheld indica CST de ST ya retenida ("60", CSOSN "500").
func (d Defaults) IsWithheld(cst string) bool {
	return slices.Contains(d.WithheldSTCodes, normalizeCST(cst))
}

// IsImportedOrigin indica si el código de origen corresponde a mercadería importada.
func (d Defaults) IsImportedOrigin(origin string) bool {
	return slices.Contains(d.ImportedOrigins, strings.TrimSpace(origin))
}

func normalizeCST(cst string) string {
	return strings.TrimSpace(cst)
}
