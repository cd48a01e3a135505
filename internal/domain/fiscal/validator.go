package fiscal

import (
	"fmt"
	"strings"

	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
)

// Column columna de la regla ICMS a validar según el perfil del cliente.
type Column int

const (
	ColumnBoth Column = iota // auditoría: ambas columnas
	ColumnContributor
	ColumnNonContributor
)

// ColumnFor columna que corresponde a un cliente contribuyente o no contribuyente.
func ColumnFor(clientIsContributor bool) Column {
	if clientIsContributor {
		return ColumnContributor
	}
	return ColumnNonContributor
}

// ValidationContext datos del producto necesarios para las reglas que no dependen solo del ítem.
type ValidationContext struct {
	ProductCode      string
	State            string
	Column           Column
	ClientIsSimples  bool
	HasOverride      bool
	OverrideRuleCode int
	ProductRuleCode  int
	NCM              string
}

// ValidationOutcome resultado inmutable de la validación: copia corregida del ítem
// más las inconsistencias encontradas. El ítem recibido no se modifica nunca.
type ValidationOutcome struct {
	Corrected       entity.ICMSRuleItem
	Inconsistencies []Inconsistency
	STSuppressed    bool
	AlreadyWithheld bool
	Message         string
}

// Mensajes que acompañan el cálculo cuando la ST se suprime.
const (
	MessageSTSuppressedByCST = "ICMS-ST não aplicável: CST tributada integralmente"
	MessageSTAlreadyWithheld = "ICMS-ST já retido anteriormente (substituído)"
)

// Validator aplica las reglas de consistencia sobre un ítem de regla ICMS ya resuelto.
type Validator struct {
	defaults Defaults
}

// NewValidator construye el validador con los conjuntos de CST configurados.
func NewValidator(defaults Defaults) *Validator {
	return &Validator{defaults: defaults}
}

type cstColumn struct {
	label string
	cst   string
}

// Validate aplica, en orden: compatibilidad CST/ST, combinación desconocida, conflicto de regla,
// validez del NCM y el caso especial de ST ya retenida. Ninguna inconsistencia es fatal.
// Cliente Simples Nacional en la columna contribuyente: se valida la copia con sus variantes.
func (v *Validator) Validate(item entity.ICMSRuleItem, vc ValidationContext) ValidationOutcome {
	if vc.ClientIsSimples && vc.Column == ColumnContributor {
		item = item.ForSimples()
	}
	out := ValidationOutcome{Corrected: item}
	columns := v.columns(item, vc)
	newInc := func(t InconsistencyType, sev Severity, desc, rec string) Inconsistency {
		return Inconsistency{
			Type: t, Severity: sev, Description: desc, Recommendation: rec,
			ProductCode: vc.ProductCode, State: vc.State,
		}
	}

	// 1) CST tributada integralmente no admite ST.
	for _, c := range columns {
		if !v.defaults.IsIncompatibleWithST(c.cst) {
			continue
		}
		out.STSuppressed = true
		out.Message = MessageSTSuppressedByCST
		if item.STFlag.IsOn() {
			out.Inconsistencies = append(out.Inconsistencies, newInc(
				InconsistencyCSTIncompatibleST, SeverityCritical,
				fmt.Sprintf("Regra ICMS %d (%s) com CST %s (%s) e flag de ST ativa: CST %s não admite substituição tributária",
					item.RuleCode, item.State, c.cst, c.label, c.cst),
				"Desativar a flag de ST da regra ou corrigir o CST para um código com ST (10, 30, 70, 90)",
			))
		}
	}
	if out.STSuppressed {
		out.Corrected.STFlag = entity.STFlagNo
	}

	// 2) ST ativa com CST fora dos conjuntos conhecidos: só aviso.
	if item.STFlag.IsOn() {
		for _, c := range columns {
			if v.defaults.IsSTCode(c.cst) || v.defaults.IsIncompatibleWithST(c.cst) {
				continue
			}
			out.Inconsistencies = append(out.Inconsistencies, newInc(
				InconsistencyUnknownSTCombination, SeverityMedium,
				fmt.Sprintf("Regra ICMS %d (%s): flag de ST ativa com CST %q (%s) não reconhecido; ST será aplicada",
					item.RuleCode, item.State, c.cst, c.label),
				"Revisar o CST da regra e confirmar se a substituição tributária é devida",
			))
		}
	}

	// 3) Regla del override distinta de la regla legada del producto.
	if vc.HasOverride && vc.OverrideRuleCode != 0 && vc.ProductRuleCode != 0 && vc.OverrideRuleCode != vc.ProductRuleCode {
		out.Inconsistencies = append(out.Inconsistencies, newInc(
			InconsistencyRuleCodeConflict, SeverityHigh,
			fmt.Sprintf("Regra ICMS divergente: cadastro fiscal do produto usa %d, cadastro do produto usa %d",
				vc.OverrideRuleCode, vc.ProductRuleCode),
			fmt.Sprintf("Considerar a regra %d do cadastro fiscal como autoritativa e alinhar o cadastro do produto", vc.OverrideRuleCode),
		))
	}

	// 4) NCM vacío o con longitud distinta de 8.
	if ncm := strings.TrimSpace(vc.NCM); len(ncm) != 8 {
		desc := fmt.Sprintf("NCM %q inválido: deve ter exatamente 8 caracteres", ncm)
		if ncm == "" {
			desc = "Produto sem NCM informado"
		}
		out.Inconsistencies = append(out.Inconsistencies, newInc(
			InconsistencyInvalidNCM, SeverityMedium, desc,
			"Informar o NCM de 8 dígitos no cadastro fiscal do produto",
		))
	}

	// 5) CST 60 / CSOSN 500: ST ya retenida, no es defecto.
	for _, c := range columns {
		if v.defaults.IsWithheld(c.cst) {
			out.AlreadyWithheld = true
			out.STSuppressed = true
			out.Message = MessageSTAlreadyWithheld
			out.Corrected.STFlag = entity.STFlagNo
			break
		}
	}

	return out
}

// columns devuelve los CST a validar según la columna pedida.
func (v *Validator) columns(item entity.ICMSRuleItem, vc ValidationContext) []cstColumn {
	contributor := cstColumn{label: "contribuinte", cst: strings.TrimSpace(item.CSTContributor)}
	if vc.ClientIsSimples && strings.TrimSpace(item.CSTSimples) != "" {
		contributor = cstColumn{label: "simples nacional", cst: strings.TrimSpace(item.CSTSimples)}
	}
	nonContributor := cstColumn{label: "não contribuinte", cst: strings.TrimSpace(item.CSTNonContributor)}

	switch vc.Column {
	case ColumnContributor:
		return []cstColumn{contributor}
	case ColumnNonContributor:
		return []cstColumn{nonContributor}
	default:
		cols := []cstColumn{contributor}
		if nonContributor.cst != contributor.cst {
			cols = append(cols, nonContributor)
		}
		return cols
	}
}
