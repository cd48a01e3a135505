package fiscal

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
)

// internalPlaces precisión de los pasos intermedios; el redondeo a 2 decimales
// ocurre solo en TaxBreakdown.Rounded.
const internalPlaces = 4

var hundred = decimal.NewFromInt(100)

// Commercial datos comerciales de la línea ya validados por el caso de uso.
// Discount está en moneda, no en porcentaje.
type Commercial struct {
	Quantity            decimal.Decimal
	UnitPrice           decimal.Decimal
	Discount            decimal.Decimal
	ClientIsContributor bool
	ClientIsInterstate  bool
	ClientIsSimples     bool
	ProductIsImported   bool
}

// TaxBreakdown desglose de impuestos de una línea. Valor efímero, se construye en cada llamada.
type TaxBreakdown struct {
	ProductCode string         `json:"product_code"`
	State       string         `json:"state"`
	RuleCode    int            `json:"rule_code"`
	RuleStep    ResolutionStep `json:"rule_step"`
	CST         string         `json:"cst"`

	NetValue decimal.Decimal `json:"net_value"`

	ICMSReduction decimal.Decimal `json:"icms_reduction"`
	ICMSRate      decimal.Decimal `json:"icms_rate"`
	BaseICMS      decimal.Decimal `json:"base_icms"`
	ValorICMS     decimal.Decimal `json:"valor_icms"`

	STApplied       bool            `json:"st_applied"`
	AlreadyWithheld bool            `json:"already_withheld"`
	IVA             decimal.Decimal `json:"iva"`
	STInternalRate  decimal.Decimal `json:"st_internal_rate"`
	BaseICMSST      decimal.Decimal `json:"base_icms_st"`
	ValorICMSST     decimal.Decimal `json:"valor_icms_st"`
	FCPSTRate       decimal.Decimal `json:"fcp_st_rate"`
	ValorFCPST      decimal.Decimal `json:"valor_fcp_st"`

	IPIRate  decimal.Decimal `json:"ipi_rate"`
	ValorIPI decimal.Decimal `json:"valor_ipi"`

	PISRate     decimal.Decimal `json:"pis_rate"`
	ValorPIS    decimal.Decimal `json:"valor_pis"`
	COFINSRate  decimal.Decimal `json:"cofins_rate"`
	ValorCOFINS decimal.Decimal `json:"valor_cofins"`

	TotalWithTaxes decimal.Decimal `json:"total_with_taxes"`

	Message         string          `json:"message,omitempty"`
	Inconsistencies []Inconsistency `json:"inconsistencies"`
	Degradations    []string        `json:"degradations,omitempty"`
}

// Rounded devuelve una copia con los montos redondeados a 2 decimales (frontera de respuesta).
// Las alícuotas se mantienen como vienen de la configuración.
func (b TaxBreakdown) Rounded() TaxBreakdown {
	r := b
	for _, v := range []*decimal.Decimal{
		&r.NetValue, &r.BaseICMS, &r.ValorICMS, &r.BaseICMSST, &r.ValorICMSST, &r.ValorFCPST,
		&r.ValorIPI, &r.ValorPIS, &r.ValorCOFINS, &r.TotalWithTaxes,
	} {
		*v = v.Round(2)
	}
	r.Inconsistencies = make([]Inconsistency, len(b.Inconsistencies))
	copy(r.Inconsistencies, b.Inconsistencies)
	r.Degradations = append([]string(nil), b.Degradations...)
	return r
}

// Calculator cálculo puro del desglose a partir del perfil fiscal validado.
type Calculator struct {
	defaults Defaults
}

// NewCalculator construye el calculador con las alícuotas estatutarias configuradas.
func NewCalculator(defaults Defaults) *Calculator {
	return &Calculator{defaults: defaults}
}

func round4(d decimal.Decimal) decimal.Decimal {
	return d.Round(internalPlaces)
}

// percentOf base * rate / 100 redondeado a 4 decimales.
func percentOf(base, rate decimal.Decimal) decimal.Decimal {
	return round4(base.Mul(rate).Div(hundred))
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Calculate aplica el algoritmo de la línea:
//
//	neto → columna (contribuyente/no contribuyente/simples) → corrección del validador →
//	base e ICMS propio → IPI → aplicabilidad ST → base ST, ST y FCP-ST → PIS/COFINS → total
//
// outcome.Corrected es el ítem que se usa; profile.RuleItem se ignora para no saltarse la corrección.
func (c *Calculator) Calculate(profile *FiscalProfile, outcome ValidationOutcome, in Commercial) TaxBreakdown {
	item := outcome.Corrected

	gross := round4(in.Quantity.Mul(in.UnitPrice))
	net := round4(gross.Sub(in.Discount))

	cst, rate, reduction := c.selectColumn(outcome, in)

	baseICMS := round4(net.Mul(decimal.NewFromInt(1).Sub(reduction.Div(hundred))))
	valorICMS := percentOf(baseICMS, rate)

	ipiRate := profile.Product.IPIRate
	valorIPI := percentOf(net, ipiRate)

	out := TaxBreakdown{
		ProductCode:     profile.Product.Code,
		State:           profile.State,
		RuleCode:        profile.EffectiveRuleCode,
		RuleStep:        profile.RuleStep,
		CST:             cst,
		NetValue:        net,
		ICMSReduction:   reduction,
		ICMSRate:        rate,
		BaseICMS:        baseICMS,
		ValorICMS:       valorICMS,
		AlreadyWithheld: outcome.AlreadyWithheld,
		IPIRate:         ipiRate,
		ValorIPI:        valorIPI,
		PISRate:         c.defaults.PISRate,
		ValorPIS:        percentOf(net, c.defaults.PISRate),
		COFINSRate:      c.defaults.COFINSRate,
		ValorCOFINS:     percentOf(net, c.defaults.COFINSRate),
		Message:         outcome.Message,
		Inconsistencies: append([]Inconsistency{}, outcome.Inconsistencies...),
		Degradations:    append([]string(nil), profile.Degradations...),
	}

	if c.stApplies(profile, outcome, item.STFlag, cst) {
		iva, internalRate := c.stParameters(profile, item, in)
		fcpSTRate := decimal.Zero
		if profile.FCPData != nil {
			fcpSTRate = profile.FCPData.FCPST
		}

		var baseST decimal.Decimal
		if pauta := pautaPrice(profile); pauta.IsPositive() {
			baseST = round4(pauta.Mul(in.Quantity))
		} else {
			baseST = round4(net.Add(valorIPI).Mul(decimal.NewFromInt(1).Add(iva.Div(hundred))))
		}

		combinedRate := internalRate.Add(fcpSTRate)
		stRaw := nonNegative(percentOf(baseST, combinedRate).Sub(valorICMS))
		fcpST := nonNegative(percentOf(baseST, fcpSTRate))

		out.STApplied = true
		out.IVA = iva
		out.STInternalRate = internalRate
		out.BaseICMSST = baseST
		out.FCPSTRate = fcpSTRate
		out.ValorFCPST = fcpST
		out.ValorICMSST = nonNegative(stRaw.Sub(fcpST))
	}

	out.TotalWithTaxes = net.Add(out.ValorIPI).Add(out.ValorICMSST).Add(out.ValorFCPST)
	return out
}

// selectColumn CST, alícuota y reducción según el perfil del cliente.
// Para Simples Nacional el validador ya dejó las variantes en la columna contribuyente.
func (c *Calculator) selectColumn(outcome ValidationOutcome, in Commercial) (string, decimal.Decimal, decimal.Decimal) {
	item := outcome.Corrected
	if !in.ClientIsContributor {
		return item.CSTNonContributor, item.RateNonContributor, item.ReductionNonContributor
	}
	return item.CSTContributor, item.RateContributor, item.ReductionContributor
}

// stApplies: flag "S", CST con ST o señal de la clasificación (IVA y alícuota interna > 0).
// "N" explícito siempre gana, igual que la supresión decidida por el validador.
func (c *Calculator) stApplies(profile *FiscalProfile, outcome ValidationOutcome, flag entity.STFlag, cst string) bool {
	if outcome.STSuppressed || flag.IsExplicitOff() {
		return false
	}
	if flag.IsOn() || c.defaults.IsSTCode(cst) {
		return true
	}
	td := profile.TaxData
	return td != nil && td.IVA.IsPositive() && td.InternalRate.IsPositive()
}

// stParameters IVA y alícuota interna para la base ST.
// Prioridad: override del producto > clasificación (variante de importación si aplica) > alícuota interna de la regla.
func (c *Calculator) stParameters(profile *FiscalProfile, item entity.ICMSRuleItem, in Commercial) (decimal.Decimal, decimal.Decimal) {
	iva, internalRate := decimal.Zero, decimal.Zero
	if td := profile.TaxData; td != nil {
		iva, internalRate = td.IVA, td.InternalRate
		if in.ProductIsImported {
			if td.ImportIVA.IsPositive() {
				iva = td.ImportIVA
			}
			if td.ImportInternalRate.IsPositive() {
				internalRate = td.ImportInternalRate
			}
		}
	}
	if !internalRate.IsPositive() {
		internalRate = item.InternalRate
	}
	if ov := profile.Override; ov != nil {
		if ov.IVAOverride != nil {
			iva = *ov.IVAOverride
		}
		if ov.InternalRateOverride != nil {
			internalRate = *ov.InternalRateOverride
		}
	}
	return iva, internalRate
}

func pautaPrice(profile *FiscalProfile) decimal.Decimal {
	if profile.Override == nil || profile.Override.PautaPrice == nil {
		return decimal.Zero
	}
	return *profile.Override.PautaPrice
}
