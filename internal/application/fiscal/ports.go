package fiscal

import (
	"context"

	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
)

// RuleItemResolver resuelve el ítem de regla ICMS recorriendo la cadena de fuentes.
// Nunca falla: en el peor caso devuelve el ítem por defecto.
type RuleItemResolver interface {
	ResolveICMSRuleItem(ctx context.Context, ruleCode int, state string, companyID int) fiscaldom.ResolvedRuleItem
}

// ProfileProvider arma el perfil fiscal de un producto para una UF.
type ProfileProvider interface {
	GetFiscalProfile(ctx context.Context, productCode, state string, companyID int) (*fiscaldom.FiscalProfile, error)
}

// CustomRuleEvaluator evalúa reglas de auditoría configurables sobre los hechos de un perfil.
// Las inconsistencias devueltas no traen ProductCode ni State; los completa la auditoría.
type CustomRuleEvaluator interface {
	Evaluate(ctx context.Context, facts map[string]any) ([]fiscaldom.Inconsistency, error)
}
