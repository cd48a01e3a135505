package fiscal_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
	"github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

// profileFor arma un perfil mínimo con producto de NCM válido y el ítem dado.
func profileFor(item entity.ICMSRuleItem) *fiscal.FiscalProfile {
	return &fiscal.FiscalProfile{
		Product: entity.Product{
			Code: "P-100", NCM: "22021000", Origin: "0", ICMSRuleCode: item.RuleCode, IPIRate: decimal.Zero,
		},
		RuleItem:          &item,
		RuleStep:          fiscal.StepLocal,
		State:             item.State,
		EffectiveRuleCode: item.RuleCode,
		EffectiveNCM:      "22021000",
		EffectiveOrigin:   "0",
	}
}

func contributor(qty, price string) fiscal.Commercial {
	return fiscal.Commercial{Quantity: d(qty), UnitPrice: d(price), Discount: decimal.Zero, ClientIsContributor: true}
}

// calculate reproduce el flujo del caso de uso: validar la columna del cliente y calcular.
func calculate(t *testing.T, defaults fiscal.Defaults, p *fiscal.FiscalProfile, in fiscal.Commercial) fiscal.TaxBreakdown {
	t.Helper()
	require.NotNil(t, p.RuleItem)
	outcome := fiscal.NewValidator(defaults).Validate(*p.RuleItem, p.ValidationContext(fiscal.ColumnFor(in.ClientIsContributor), in.ClientIsSimples))
	return fiscal.NewCalculator(defaults).Calculate(p, outcome, in).Rounded()
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: esperado %s, obtenido %s", msg, want, got.String())
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios de referencia
// ──────────────────────────────────────────────────────────────────────────────

func TestCalculate_EscenarioA_SinST(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 1, State: "SP",
		CSTContributor: "00", CSTNonContributor: "00",
		RateContributor: d("18"), RateNonContributor: d("18"),
	}
	out := calculate(t, fiscal.DefaultDefaults(), profileFor(item), contributor("10", "100"))

	assertDec(t, "1000.00", out.BaseICMS, "baseIcms")
	assertDec(t, "180.00", out.ValorICMS, "valorIcms")
	assertDec(t, "0", out.ValorICMSST, "valorIcmsSt")
	assertDec(t, "0", out.ValorFCPST, "fcpSt")
	assertDec(t, "16.50", out.ValorPIS, "pis")
	assertDec(t, "76.00", out.ValorCOFINS, "cofins")
	assertDec(t, "1000.00", out.TotalWithTaxes, "total")
	assert.False(t, out.STApplied)
	assert.Empty(t, out.Inconsistencies)
}

func TestCalculate_EscenarioB_STConFCP(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 2, State: "SP",
		CSTContributor: "10", CSTNonContributor: "10",
		RateContributor: d("12"), RateNonContributor: d("12"),
		STFlag: entity.STFlagYes, InternalRate: d("18"),
	}
	p := profileFor(item)
	p.TaxData = &entity.ClassificationTaxData{ClassificationCode: "C1", State: "SP", IVA: d("40")}
	p.FCPData = &entity.ClassificationFCPData{ClassificationCode: "C1", State: "SP", FCPST: d("2")}

	out := calculate(t, fiscal.DefaultDefaults(), p, contributor("1", "1000"))

	require.True(t, out.STApplied)
	assertDec(t, "120.00", out.ValorICMS, "valorIcms")
	assertDec(t, "1400.00", out.BaseICMSST, "baseIcmsSt")
	assertDec(t, "28.00", out.ValorFCPST, "fcpSt")
	assertDec(t, "132.00", out.ValorICMSST, "valorIcmsSt")
	assertDec(t, "18", out.STInternalRate, "alícuota interna tomada de la regla")
	assertDec(t, "1160.00", out.TotalWithTaxes, "total = neto + ST + FCP-ST")
}

// ──────────────────────────────────────────────────────────────────────────────
// Supresión de ST
// ──────────────────────────────────────────────────────────────────────────────

func TestCalculate_CST00_NuncaST_AunConSenalDeClasificacion(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 3, State: "SP",
		CSTContributor: "00", CSTNonContributor: "00",
		RateContributor: d("18"), RateNonContributor: d("18"),
		STFlag: entity.STFlagUnset,
	}
	p := profileFor(item)
	p.TaxData = &entity.ClassificationTaxData{IVA: d("35"), InternalRate: d("18")}

	out := calculate(t, fiscal.DefaultDefaults(), p, contributor("1", "500"))

	assert.False(t, out.STApplied)
	assertDec(t, "0", out.ValorICMSST, "valorIcmsSt")
	assert.Equal(t, fiscal.MessageSTSuppressedByCST, out.Message)
}

func TestCalculate_CST00_FlagActiva_ReportaCriticaYNoCalculaST(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 4, State: "SP",
		CSTContributor: "00", CSTNonContributor: "00",
		RateContributor: d("18"), RateNonContributor: d("18"),
		STFlag: entity.STFlagYes, InternalRate: d("18"),
	}
	p := profileFor(item)
	p.TaxData = &entity.ClassificationTaxData{IVA: d("40"), InternalRate: d("18")}

	out := calculate(t, fiscal.DefaultDefaults(), p, contributor("1", "1000"))

	assert.False(t, out.STApplied)
	assertDec(t, "0", out.ValorICMSST, "valorIcmsSt")
	require.Len(t, out.Inconsistencies, 1)
	assert.Equal(t, fiscal.SeverityCritical, out.Inconsistencies[0].Severity)
	assert.Equal(t, fiscal.InconsistencyCSTIncompatibleST, out.Inconsistencies[0].Type)
}

func TestCalculate_CST60_YaRetenido(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 5, State: "SP",
		CSTContributor: "60", CSTNonContributor: "60",
		STFlag: entity.STFlagYes, InternalRate: d("18"),
	}
	p := profileFor(item)
	p.TaxData = &entity.ClassificationTaxData{IVA: d("40"), InternalRate: d("18")}

	out := calculate(t, fiscal.DefaultDefaults(), p, contributor("2", "50"))

	assert.False(t, out.STApplied)
	assert.True(t, out.AlreadyWithheld)
	assert.Equal(t, fiscal.MessageSTAlreadyWithheld, out.Message)
	assertDec(t, "0", out.ValorICMSST, "valorIcmsSt")
	assert.Empty(t, out.Inconsistencies, "CST 60 no es un defecto")
}

func TestCalculate_FlagExplicitaN_GanaSobreClasificacion(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 6, State: "SP",
		CSTContributor: "41", CSTNonContributor: "41",
		STFlag: entity.STFlagNo,
	}
	p := profileFor(item)
	p.TaxData = &entity.ClassificationTaxData{IVA: d("40"), InternalRate: d("18")}

	out := calculate(t, fiscal.DefaultDefaults(), p, contributor("1", "100"))
	assert.False(t, out.STApplied)
}

func TestCalculate_FlagSinInformar_InfiereSTPorClasificacion(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 7, State: "SP",
		CSTContributor: "41", CSTNonContributor: "41",
		STFlag: entity.STFlagUnset,
	}
	p := profileFor(item)
	p.TaxData = &entity.ClassificationTaxData{IVA: d("50"), InternalRate: d("18")}

	out := calculate(t, fiscal.DefaultDefaults(), p, contributor("1", "100"))

	require.True(t, out.STApplied)
	// ICMS propio 0 (alícuota 0): ST = 150 * 18%
	assertDec(t, "150.00", out.BaseICMSST, "baseIcmsSt")
	assertDec(t, "27.00", out.ValorICMSST, "valorIcmsSt")
}

// ──────────────────────────────────────────────────────────────────────────────
// Parámetros de ST y columnas
// ──────────────────────────────────────────────────────────────────────────────

func TestCalculate_NoNegativos_CuandoICMSPropioSuperaST(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 8, State: "SP",
		CSTContributor: "10", CSTNonContributor: "10",
		RateContributor: d("25"), RateNonContributor: d("25"),
		STFlag: entity.STFlagYes, InternalRate: d("7"),
	}
	p := profileFor(item)
	p.TaxData = &entity.ClassificationTaxData{IVA: d("5")}
	p.FCPData = &entity.ClassificationFCPData{FCPST: d("1")}

	out := calculate(t, fiscal.DefaultDefaults(), p, contributor("1", "100"))

	require.True(t, out.STApplied)
	assert.False(t, out.ValorICMSST.IsNegative())
	assert.False(t, out.ValorFCPST.IsNegative())
	assertDec(t, "0", out.ValorICMSST, "ST no puede ser negativa")
}

func TestCalculate_OverrideTienePrioridad_YPrecioPauta(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 9, State: "SP",
		CSTContributor: "10", CSTNonContributor: "10",
		RateContributor: d("18"), RateNonContributor: d("18"),
		STFlag: entity.STFlagYes, InternalRate: d("18"),
	}
	p := profileFor(item)
	p.TaxData = &entity.ClassificationTaxData{IVA: d("40"), InternalRate: d("18")}
	p.Override = &entity.ProductFiscalOverride{
		ProductCode: "P-100", ICMSRuleCode: 9, Active: true,
		IVAOverride: dp("30"), InternalRateOverride: dp("20"),
	}

	out := calculate(t, fiscal.DefaultDefaults(), p, contributor("1", "100"))
	assertDec(t, "30", out.IVA, "IVA del override")
	assertDec(t, "20", out.STInternalRate, "alícuota del override")
	assertDec(t, "130.00", out.BaseICMSST, "base con IVA del override")
	assertDec(t, "8.00", out.ValorICMSST, "130*20% - 18")

	p.Override.PautaPrice = dp("150")
	out = calculate(t, fiscal.DefaultDefaults(), p, contributor("2", "100"))
	assertDec(t, "300.00", out.BaseICMSST, "base por precio pauta * cantidad")
}

func TestCalculate_ProductoImportado_UsaVarianteDeImportacion(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 10, State: "SP",
		CSTContributor: "10", CSTNonContributor: "10",
		RateContributor: d("18"), RateNonContributor: d("18"),
		STFlag: entity.STFlagYes,
	}
	p := profileFor(item)
	p.TaxData = &entity.ClassificationTaxData{
		IVA: d("40"), InternalRate: d("18"), ImportIVA: d("60"), ImportInternalRate: d("12"),
	}
	in := contributor("1", "100")
	in.ProductIsImported = true

	out := calculate(t, fiscal.DefaultDefaults(), p, in)
	assertDec(t, "60", out.IVA, "IVA de importación")
	assertDec(t, "12", out.STInternalRate, "alícuota interna de importación")
}

func TestCalculate_ImportadoInterestatal_UsaAlicuotaDelItem(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 11, State: "RJ",
		CSTContributor: "00", CSTNonContributor: "00",
		RateContributor: d("12"), RateNonContributor: d("12"),
	}
	in := contributor("10", "100")
	in.ClientIsInterstate = true
	in.ProductIsImported = true

	out := calculate(t, fiscal.DefaultDefaults(), profileFor(item), in)
	assertDec(t, "12", out.ICMSRate, "la alícuota sale de la columna del ítem")
	assertDec(t, "120.00", out.ValorICMS, "valorIcms")
}

func TestCalculate_ColumnaSimplesYNoContribuyente(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 12, State: "SP",
		CSTContributor: "00", CSTNonContributor: "20",
		RateContributor: d("18"), RateNonContributor: d("18"),
		ReductionNonContributor: d("50"),
		CSTSimples: "102", RateSimples: dp("7"),
	}

	simples := contributor("1", "100")
	simples.ClientIsSimples = true
	out := calculate(t, fiscal.DefaultDefaults(), profileFor(item), simples)
	assert.Equal(t, "102", out.CST)
	assertDec(t, "7.00", out.ValorICMS, "alícuota simples")

	nonContrib := fiscal.Commercial{Quantity: d("1"), UnitPrice: d("100"), Discount: decimal.Zero}
	out = calculate(t, fiscal.DefaultDefaults(), profileFor(item), nonContrib)
	assert.Equal(t, "20", out.CST)
	assertDec(t, "50.00", out.BaseICMS, "base con reducción del 50%")
	assertDec(t, "9.00", out.ValorICMS, "valorIcms")
}

func TestCalculate_SimplesUsaSusVariantesDeReduccionYST(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 14, State: "SP",
		CSTContributor: "10", CSTNonContributor: "10",
		RateContributor: d("18"), RateNonContributor: d("18"),
		STFlag: entity.STFlagYes, InternalRate: d("18"),
		CSTSimples: "101", RateSimples: dp("4"), ReductionSimples: dp("50"),
		STFlagSimples: entity.STFlagNo,
	}

	in := contributor("1", "100")
	in.ClientIsSimples = true
	out := calculate(t, fiscal.DefaultDefaults(), profileFor(item), in)

	assert.Equal(t, "101", out.CST)
	assertDec(t, "50.00", out.BaseICMS, "reducción simples")
	assertDec(t, "2.00", out.ValorICMS, "valorIcms")
	assert.False(t, out.STApplied, "flag N de la variante simples")
	assertDec(t, "0.00", out.ValorICMSST, "valorIcmsSt")

	out = calculate(t, fiscal.DefaultDefaults(), profileFor(item), contributor("1", "100"))
	assert.Equal(t, "10", out.CST)
	assert.True(t, out.STApplied, "el contribuyente normal sigue con ST")
}

func TestCalculate_SimplesAlicuotaInternaPropia(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 15, State: "SP",
		CSTContributor: "10", CSTNonContributor: "10",
		RateContributor: d("12"), RateNonContributor: d("12"),
		STFlag: entity.STFlagYes, InternalRate: d("18"),
		InternalRateSimples: dp("20"),
	}
	p := profileFor(item)
	p.TaxData = &entity.ClassificationTaxData{IVA: d("40")}

	in := contributor("1", "1000")
	in.ClientIsSimples = true
	out := calculate(t, fiscal.DefaultDefaults(), p, in)

	assertDec(t, "20", out.STInternalRate, "alícuota interna simples")
	assertDec(t, "1400.00", out.BaseICMSST, "baseIcmsSt")
	assertDec(t, "160.00", out.ValorICMSST, "1400*0.20 - 120")
}

func TestCalculate_DescuentoEIPI_EnBaseST(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 13, State: "SP",
		CSTContributor: "10", CSTNonContributor: "10",
		RateContributor: d("18"), RateNonContributor: d("18"),
		STFlag: entity.STFlagYes, InternalRate: d("18"),
	}
	p := profileFor(item)
	p.Product.IPIRate = d("10")
	p.TaxData = &entity.ClassificationTaxData{IVA: d("50")}

	in := contributor("4", "50")
	in.Discount = d("100")
	out := calculate(t, fiscal.DefaultDefaults(), p, in)

	assertDec(t, "100.00", out.NetValue, "neto")
	assertDec(t, "10.00", out.ValorIPI, "ipi")
	assertDec(t, "165.00", out.BaseICMSST, "(100 + 10) * 1.5")
	assertDec(t, "11.70", out.ValorICMSST, "165*18% - 18")
	assertDec(t, "121.70", out.TotalWithTaxes, "total")
}

func TestCalculate_Idempotente(t *testing.T) {
	item := entity.ICMSRuleItem{
		RuleCode: 14, State: "SP",
		CSTContributor: "10", CSTNonContributor: "10",
		RateContributor: d("12"), RateNonContributor: d("12"),
		STFlag: entity.STFlagYes, InternalRate: d("18"),
	}
	p := profileFor(item)
	p.TaxData = &entity.ClassificationTaxData{IVA: d("33.33")}

	first := calculate(t, fiscal.DefaultDefaults(), p, contributor("3", "33.33"))
	second := calculate(t, fiscal.DefaultDefaults(), p, contributor("3", "33.33"))
	assert.Equal(t, first, second)
	assert.Equal(t, entity.STFlagYes, p.RuleItem.STFlag, "el perfil no se modifica")
}
