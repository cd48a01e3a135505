package fiscal

// Severity severidad normalizada de una inconsistencia fiscal.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Severities en orden descendente (para agrupar reportes).
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank mayor = más grave. 0 para valores desconocidos.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ParseSeverity acepta la severidad tal como viene de archivos de configuración.
// Devuelve false si no es una de las cuatro conocidas.
func ParseSeverity(raw string) (Severity, bool) {
	s := Severity(raw)
	return s, s.Rank() > 0
}

// InconsistencyType etiqueta del defecto detectado.
type InconsistencyType string

const (
	InconsistencyCSTIncompatibleST     InconsistencyType = "CST_INCOMPATIBLE_ST"
	InconsistencyUnknownSTCombination  InconsistencyType = "UNKNOWN_ST_COMBINATION"
	InconsistencyRuleCodeConflict      InconsistencyType = "RULE_CODE_CONFLICT"
	InconsistencyInvalidNCM            InconsistencyType = "INVALID_NCM"
	InconsistencyMissingOverride       InconsistencyType = "MISSING_FISCAL_OVERRIDE"
	InconsistencyMissingClassification InconsistencyType = "MISSING_CLASSIFICATION_TAX_DATA"
	InconsistencyRuleItemFallback      InconsistencyType = "RULE_ITEM_FALLBACK"
	InconsistencyProductNotFound       InconsistencyType = "PRODUCT_NOT_FOUND"
	InconsistencyCustomRulePrefix      InconsistencyType = "CUSTOM_RULE:"
)

// Inconsistency defecto de configuración fiscal. Nunca es un error para el caller:
// viaja como metadato del cálculo o del reporte de auditoría.
type Inconsistency struct {
	Type           InconsistencyType `json:"type"`
	Severity       Severity          `json:"severity"`
	Description    string            `json:"description"`
	Recommendation string            `json:"recommendation"`
	ProductCode    string            `json:"product_code"`
	State          string            `json:"state,omitempty"`
}

// MaxSeverity devuelve la severidad más alta de la lista ("" si está vacía).
func MaxSeverity(list []Inconsistency) Severity {
	var top Severity
	for _, inc := range list {
		if inc.Severity.Rank() > top.Rank() {
			top = inc.Severity
		}
	}
	return top
}
