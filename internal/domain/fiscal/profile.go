package fiscal

import (
	"strings"

	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
)

// ResolutionStep paso de la cadena de fuentes que entregó el ítem de regla ICMS.
type ResolutionStep string

const (
	StepExternal  ResolutionStep = "external"
	StepLocal     ResolutionStep = "local"
	StepHomeState ResolutionStep = "home_state"
	StepDefault   ResolutionStep = "default"
)

// IsFallback indica que el ítem no vino de la UF pedida.
func (s ResolutionStep) IsFallback() bool {
	return s == StepHomeState || s == StepDefault
}

// ResolvedRuleItem ítem de regla más el paso que lo resolvió (observabilidad).
type ResolvedRuleItem struct {
	Item entity.ICMSRuleItem `json:"item"`
	Step ResolutionStep      `json:"step"`
}

// DefaultRuleItem ítem seguro usado cuando ninguna fuente tiene la regla:
// CST sin ST, alícuota nominal, sin reducción, ST deshabilitada.
func DefaultRuleItem(d Defaults, ruleCode int, state string) entity.ICMSRuleItem {
	return entity.ICMSRuleItem{
		RuleCode:           ruleCode,
		State:              strings.ToUpper(state),
		CSTContributor:     d.DefaultCST,
		CSTNonContributor:  d.DefaultCST,
		RateContributor:    d.DefaultICMSRate,
		RateNonContributor: d.DefaultICMSRate,
		STFlag:             entity.STFlagNo,
	}
}

// FiscalProfile perfil fiscal completo de un producto para una UF.
// Solo Product es obligatorio; el resto puede faltar y se registra en Degradations.
type FiscalProfile struct {
	Product        entity.Product
	Override       *entity.ProductFiscalOverride
	RuleItem       *entity.ICMSRuleItem
	RuleStep       ResolutionStep
	Classification *entity.FiscalClassification
	TaxData        *entity.ClassificationTaxData
	FCPData        *entity.ClassificationFCPData

	State             string
	EffectiveRuleCode int
	EffectiveNCM      string
	EffectiveOrigin   string
	CEST              string

	// TaxDataFromHomeState/FCPFromHomeState: el dato se tomó de la UF de la empresa.
	TaxDataFromHomeState bool
	FCPFromHomeState     bool

	Degradations []string
}

// HasOverride indica si existe registro fiscal autoritativo.
func (p *FiscalProfile) HasOverride() bool {
	return p.Override != nil
}

// OverrideRuleCode regla del override (0 si no existe).
func (p *FiscalProfile) OverrideRuleCode() int {
	if p.Override == nil {
		return 0
	}
	return p.Override.ICMSRuleCode
}

// ValidationContext construye el contexto del validador a partir del perfil.
func (p *FiscalProfile) ValidationContext(column Column, clientIsSimples bool) ValidationContext {
	return ValidationContext{
		ProductCode:      p.Product.Code,
		State:            p.State,
		Column:           column,
		ClientIsSimples:  clientIsSimples,
		HasOverride:      p.HasOverride(),
		OverrideRuleCode: p.OverrideRuleCode(),
		ProductRuleCode:  p.Product.ICMSRuleCode,
		NCM:              p.EffectiveNCM,
	}
}
