// Package jsonlogic evalúa las reglas de auditoría configurables (condiciones JsonLogic
// sobre los hechos del perfil fiscal) cargadas desde el paquete de reglas YAML.
package jsonlogic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	jl "github.com/diegoholiveira/jsonlogic/v3"

	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/motor-fiscal/pkg/logger"
)

// RulePack archivo de reglas de auditoría.
type RulePack struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// Rule regla configurable: si When es verdadera sobre los hechos, se reporta la inconsistencia.
type Rule struct {
	ID             string         `yaml:"id"`
	Description    string         `yaml:"description"`
	Severity       string         `yaml:"severity"`
	Recommendation string         `yaml:"recommendation"`
	When           map[string]any `yaml:"when"`
}

type compiledRule struct {
	id             string
	description    string
	recommendation string
	severity       fiscaldom.Severity
	logic          []byte
}

// Evaluator aplica un RulePack ya validado.
type Evaluator struct {
	version string
	rules   []compiledRule
	log     *logger.Logger
}

// NewEvaluator valida el paquete (IDs únicos, severidad conocida, condición presente)
// y serializa las condiciones una sola vez.
func NewEvaluator(pack RulePack, log *logger.Logger) (*Evaluator, error) {
	if log == nil {
		log = logger.Nop()
	}
	seen := make(map[string]bool, len(pack.Rules))
	rules := make([]compiledRule, 0, len(pack.Rules))
	for i, r := range pack.Rules {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, fmt.Errorf("regla %d: id es requerido", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("regla %s: id duplicado", id)
		}
		seen[id] = true

		sev, ok := fiscaldom.ParseSeverity(strings.ToUpper(strings.TrimSpace(r.Severity)))
		if !ok {
			return nil, fmt.Errorf("regla %s: severidad %q inválida", id, r.Severity)
		}
		if len(r.When) == 0 {
			return nil, fmt.Errorf("regla %s: condición when vacía", id)
		}
		logic, err := json.Marshal(r.When)
		if err != nil {
			return nil, fmt.Errorf("regla %s: serializar condición: %w", id, err)
		}
		rules = append(rules, compiledRule{
			id:             id,
			description:    r.Description,
			recommendation: r.Recommendation,
			severity:       sev,
			logic:          logic,
		})
	}
	return &Evaluator{version: pack.Version, rules: rules, log: log}, nil
}

// Len cantidad de reglas cargadas.
func (e *Evaluator) Len() int { return len(e.rules) }

// Evaluate devuelve una inconsistencia por regla cuya condición resulta verdadera.
// Una regla que falla al evaluarse se registra y se omite; el resto sigue.
func (e *Evaluator) Evaluate(ctx context.Context, facts map[string]any) ([]fiscaldom.Inconsistency, error) {
	data, err := json.Marshal(facts)
	if err != nil {
		return nil, fmt.Errorf("serializar hechos: %w", err)
	}

	var out []fiscaldom.Inconsistency
	for _, r := range e.rules {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		hit, err := apply(r.logic, data)
		if err != nil {
			e.log.Warn().Err(err).Str("rule_id", r.id).Str("pack_version", e.version).Msg("regla configurable no evaluada")
			continue
		}
		if !hit {
			continue
		}
		out = append(out, fiscaldom.Inconsistency{
			Type:           fiscaldom.InconsistencyType(r.id),
			Severity:       r.severity,
			Description:    r.description,
			Recommendation: r.recommendation,
		})
	}
	return out, nil
}

func apply(logic, data []byte) (bool, error) {
	var buf bytes.Buffer
	if err := jl.Apply(bytes.NewReader(logic), bytes.NewReader(data), &buf); err != nil {
		return false, err
	}
	var res any
	if b := bytes.TrimSpace(buf.Bytes()); len(b) > 0 {
		if err := json.Unmarshal(b, &res); err != nil {
			return false, fmt.Errorf("resultado no es JSON: %w", err)
		}
	}
	return truthy(res), nil
}

// truthy sigue la noción de verdad de JsonLogic.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	default:
		return true
	}
}
