package fiscal

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/motor-fiscal/internal/application/dto"
	"github.com/jhoicas/motor-fiscal/internal/domain"
	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/motor-fiscal/pkg/logger"
)

// TaxUseCase calcula el desglose de impuestos de una línea de venta.
type TaxUseCase struct {
	profiles   ProfileProvider
	validator  *fiscaldom.Validator
	calculator *fiscaldom.Calculator
	defaults   fiscaldom.Defaults
	log        *logger.Logger
}

// NewTaxUseCase construye el caso de uso de cálculo.
func NewTaxUseCase(profiles ProfileProvider, defaults fiscaldom.Defaults, log *logger.Logger) *TaxUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &TaxUseCase{
		profiles:   profiles,
		validator:  fiscaldom.NewValidator(defaults),
		calculator: fiscaldom.NewCalculator(defaults),
		defaults:   defaults,
		log:        log,
	}
}

// CalculateTaxes valida la entrada antes de cualquier consulta, arma el perfil,
// corrige la regla con el validador y calcula. Los montos salen redondeados a 2 decimales.
func (uc *TaxUseCase) CalculateTaxes(ctx context.Context, in dto.CalculateTaxesRequest) (*fiscaldom.TaxBreakdown, error) {
	commercial, state, err := uc.validateInput(in)
	if err != nil {
		return nil, err
	}

	profile, err := uc.profiles.GetFiscalProfile(ctx, in.ProductCode, state, in.CompanyID)
	if err != nil {
		return nil, err
	}

	home := strings.ToUpper(strings.TrimSpace(uc.defaults.HomeState))
	commercial.ClientIsInterstate = state != home
	if in.Client.Interstate != nil {
		commercial.ClientIsInterstate = *in.Client.Interstate
	}
	commercial.ProductIsImported = uc.defaults.IsImportedOrigin(profile.EffectiveOrigin)
	if in.Imported != nil {
		commercial.ProductIsImported = *in.Imported
	}

	if profile.RuleItem == nil {
		item := fiscaldom.DefaultRuleItem(uc.defaults, profile.EffectiveRuleCode, state)
		profile.RuleItem, profile.RuleStep = &item, fiscaldom.StepDefault
	}
	outcome := uc.validator.Validate(*profile.RuleItem, profile.ValidationContext(
		fiscaldom.ColumnFor(commercial.ClientIsContributor), commercial.ClientIsSimples))
	breakdown := uc.calculator.Calculate(profile, outcome, commercial).Rounded()

	uc.log.Info().
		Str("product_code", breakdown.ProductCode).
		Str("state", state).
		Int("rule_code", breakdown.RuleCode).
		Str("rule_step", string(breakdown.RuleStep)).
		Bool("st_applied", breakdown.STApplied).
		Str("total", breakdown.TotalWithTaxes.StringFixed(2)).
		Int("inconsistencies", len(breakdown.Inconsistencies)).
		Msg("impuestos calculados")
	return &breakdown, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// validateInput devuelve los datos comerciales normalizados y la UF en mayúsculas.
func (uc *TaxUseCase) validateInput(in dto.CalculateTaxesRequest) (fiscaldom.Commercial, string, error) {
	var c fiscaldom.Commercial
	if strings.TrimSpace(in.ProductCode) == "" {
		return c, "", invalid("product_code es requerido")
	}
	state := strings.ToUpper(strings.TrimSpace(in.State))
	if len(state) != 2 {
		return c, "", invalid("state debe ser una UF de 2 letras")
	}
	if in.Quantity == nil || !in.Quantity.IsPositive() {
		return c, "", invalid("quantity debe ser mayor a cero")
	}
	if in.UnitPrice == nil {
		return c, "", invalid("unit_price es requerido")
	}
	if in.UnitPrice.IsNegative() {
		return c, "", invalid("unit_price no puede ser negativo")
	}
	discount := decimal.Zero
	if in.Discount != nil {
		discount = *in.Discount
	}
	if discount.IsNegative() {
		return c, "", invalid("discount no puede ser negativo")
	}
	if gross := in.Quantity.Mul(*in.UnitPrice); discount.GreaterThan(gross) {
		return c, "", invalid("discount %s supera el valor bruto %s", discount.String(), gross.String())
	}

	c = fiscaldom.Commercial{
		Quantity:            *in.Quantity,
		UnitPrice:           *in.UnitPrice,
		Discount:            discount,
		ClientIsContributor: in.Client.Contributor,
		ClientIsSimples:     in.Client.Simples,
	}
	return c, state, nil
}
