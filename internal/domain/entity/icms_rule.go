package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// STFlag indicador de sustitución tributaria de la regla ICMS.
// En la base es un CHAR(1) que admite NULL: "S", "N" o ausente.
type STFlag string

const (
	STFlagYes   STFlag = "S"
	STFlagNo    STFlag = "N"
	STFlagUnset STFlag = ""
)

// ParseSTFlag normaliza los valores que llegan de las distintas fuentes ("S", "s", "Y", "1", "N", ...).
func ParseSTFlag(raw string) STFlag {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "S", "Y", "1", "T", "TRUE":
		return STFlagYes
	case "N", "0", "F", "FALSE":
		return STFlagNo
	default:
		return STFlagUnset
	}
}

// IsOn indica ST habilitada explícitamente.
func (f STFlag) IsOn() bool { return f == STFlagYes }

// IsExplicitOff indica ST deshabilitada explícitamente ("N"), que siempre prevalece.
func (f STFlag) IsExplicitOff() bool { return f == STFlagNo }

// ICMSRuleCatalog cabecera descriptiva de una regla ICMS.
type ICMSRuleCatalog struct {
	RuleCode    int
	Description string
	Surcharge   bool
}

// ICMSRuleItem regla ICMS por (regla, UF, empresa). Inmutable para el calculador.
type ICMSRuleItem struct {
	RuleCode  int
	State     string
	CompanyID int // 0 = válida para cualquier empresa

	CSTContributor    string
	CSTNonContributor string

	RateContributor    decimal.Decimal
	RateNonContributor decimal.Decimal

	ReductionContributor    decimal.Decimal
	ReductionNonContributor decimal.Decimal

	STFlag       STFlag
	InternalRate decimal.Decimal

	// Variantes Simples Nacional de la columna contribuyente (vacías cuando la regla no las define).
	CSTSimples          string
	RateSimples         *decimal.Decimal
	ReductionSimples    *decimal.Decimal
	STFlagSimples       STFlag
	InternalRateSimples *decimal.Decimal

	Surcharge bool // viene de la cabecera (ICMSRuleCatalog)
}

// ForSimples copia del ítem con las variantes Simples Nacional definidas aplicadas sobre la
// columna contribuyente, la flag de ST y la alícuota interna. Lo no definido se conserva.
func (it ICMSRuleItem) ForSimples() ICMSRuleItem {
	out := it
	if cst := strings.TrimSpace(it.CSTSimples); cst != "" {
		out.CSTContributor = cst
	}
	if it.RateSimples != nil {
		out.RateContributor = *it.RateSimples
	}
	if it.ReductionSimples != nil {
		out.ReductionContributor = *it.ReductionSimples
	}
	if it.STFlagSimples != STFlagUnset {
		out.STFlag = it.STFlagSimples
	}
	if it.InternalRateSimples != nil {
		out.InternalRate = *it.InternalRateSimples
	}
	return out
}
