package fiscal

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/motor-fiscal/internal/application/dto"
	"github.com/jhoicas/motor-fiscal/internal/domain"
	"github.com/jhoicas/motor-fiscal/internal/domain/repository"
	"github.com/jhoicas/motor-fiscal/pkg/logger"
)

// RuleQueryUseCase consulta de reglas ICMS: cabecera del catálogo más el ítem resuelto por la cadena.
type RuleQueryUseCase struct {
	repo     repository.FiscalReferenceRepository
	resolver RuleItemResolver
	log      *logger.Logger
}

// NewRuleQueryUseCase construye el caso de uso de consulta de reglas.
func NewRuleQueryUseCase(repo repository.FiscalReferenceRepository, resolver RuleItemResolver, log *logger.Logger) *RuleQueryUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &RuleQueryUseCase{repo: repo, resolver: resolver, log: log}
}

// GetRuleItem devuelve el ítem de la regla para la UF. Nunca falla por ausencia del ítem
// (la cadena termina en el ítem por defecto); el catálogo es opcional.
func (uc *RuleQueryUseCase) GetRuleItem(ctx context.Context, ruleCode int, state string, companyID int) (*dto.RuleItemResponse, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if ruleCode <= 0 {
		return nil, fmt.Errorf("%w: rule_code debe ser positivo", domain.ErrInvalidInput)
	}
	if len(state) != 2 {
		return nil, fmt.Errorf("%w: state debe ser una UF de 2 letras", domain.ErrInvalidInput)
	}

	out := ToRuleItemResponse(uc.resolver.ResolveICMSRuleItem(ctx, ruleCode, state, companyID))

	catalog, err := uc.repo.GetRuleCatalog(ctx, ruleCode)
	if err != nil {
		uc.log.Warn().Err(err).Int("rule_code", ruleCode).Msg("catálogo de reglas ICMS no disponible")
	}
	if catalog != nil {
		out.Description = catalog.Description
		out.Surcharge = out.Surcharge || catalog.Surcharge
	}
	return &out, nil
}
