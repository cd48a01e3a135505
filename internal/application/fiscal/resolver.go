// Package fiscal orquesta el motor fiscal: resolución de reglas ICMS con fallback,
// armado del perfil fiscal, cálculo de impuestos por línea y auditoría de configuración.
package fiscal

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/motor-fiscal/internal/domain/repository"
	"github.com/jhoicas/motor-fiscal/pkg/logger"
)

// ruleStep un paso de la cadena: fuente, UF a consultar y límite de tiempo.
type ruleStep struct {
	step      fiscaldom.ResolutionStep
	source    repository.ICMSRuleItemRepository
	homeState bool          // consulta la UF de la empresa en lugar de la pedida
	timeout   time.Duration // 0 = sin límite propio
}

// RuleResolver recorre en orden: fuente externa autoritativa, espejo local,
// espejo local con la UF de la empresa y finalmente el ítem por defecto.
// Los errores de una fuente se registran y se pasa a la siguiente; nunca se propagan.
type RuleResolver struct {
	steps    []ruleStep
	defaults fiscaldom.Defaults
	log      *logger.Logger
}

// NewRuleResolver construye la cadena. external puede ser nil (sin ERP/Firestore configurado).
func NewRuleResolver(
	external repository.ICMSRuleItemRepository,
	local repository.ICMSRuleItemRepository,
	defaults fiscaldom.Defaults,
	externalTimeout time.Duration,
	log *logger.Logger,
) *RuleResolver {
	if log == nil {
		log = logger.Nop()
	}
	var steps []ruleStep
	if external != nil {
		steps = append(steps, ruleStep{step: fiscaldom.StepExternal, source: external, timeout: externalTimeout})
	}
	if local != nil {
		steps = append(steps,
			ruleStep{step: fiscaldom.StepLocal, source: local},
			ruleStep{step: fiscaldom.StepHomeState, source: local, homeState: true},
		)
	}
	return &RuleResolver{steps: steps, defaults: defaults, log: log}
}

// ResolveICMSRuleItem devuelve el primer ítem encontrado y el paso que lo entregó.
func (r *RuleResolver) ResolveICMSRuleItem(ctx context.Context, ruleCode int, state string, companyID int) fiscaldom.ResolvedRuleItem {
	state = strings.ToUpper(strings.TrimSpace(state))
	home := strings.ToUpper(strings.TrimSpace(r.defaults.HomeState))

	for _, st := range r.steps {
		key := repository.RuleItemKey{RuleCode: ruleCode, State: state, CompanyID: companyID}
		if st.homeState {
			if home == "" || home == state {
				continue
			}
			key.State = home
		}
		if ctx.Err() != nil {
			break
		}
		item := r.attempt(ctx, st, key)
		if item == nil {
			continue
		}
		r.log.Debug().
			Int("rule_code", ruleCode).
			Str("state", state).
			Str("step", string(st.step)).
			Msg("ítem de regla ICMS resuelto")
		return fiscaldom.ResolvedRuleItem{Item: *item, Step: st.step}
	}

	r.log.Warn().
		Int("rule_code", ruleCode).
		Str("state", state).
		Int("company_id", companyID).
		Msg("regla ICMS no encontrada en ninguna fuente, se usa el ítem por defecto")
	return fiscaldom.ResolvedRuleItem{
		Item: fiscaldom.DefaultRuleItem(r.defaults, ruleCode, state),
		Step: fiscaldom.StepDefault,
	}
}

type findResult struct {
	item *entity.ICMSRuleItem
	err  error
}

// attempt consulta una fuente. Con timeout, la consulta corre aparte y se abandona al vencer,
// aunque la fuente no respete el contexto.
func (r *RuleResolver) attempt(ctx context.Context, st ruleStep, key repository.RuleItemKey) *entity.ICMSRuleItem {
	var (
		item *entity.ICMSRuleItem
		err  error
	)
	if st.timeout <= 0 {
		item, err = st.source.FindRuleItem(ctx, key)
	} else {
		stepCtx, cancel := context.WithTimeout(ctx, st.timeout)
		defer cancel()
		ch := make(chan findResult, 1)
		go func() {
			it, e := st.source.FindRuleItem(stepCtx, key)
			ch <- findResult{item: it, err: e}
		}()
		select {
		case res := <-ch:
			item, err = res.item, res.err
		case <-stepCtx.Done():
			err = stepCtx.Err()
		}
	}
	if err != nil {
		r.log.Warn().Err(err).
			Str("step", string(st.step)).
			Int("rule_code", key.RuleCode).
			Str("state", key.State).
			Msg("fuente de reglas ICMS falló, se intenta la siguiente")
		return nil
	}
	return item
}
