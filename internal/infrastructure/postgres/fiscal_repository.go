package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
	"github.com/jhoicas/motor-fiscal/internal/domain/repository"
)

var (
	_ repository.FiscalReferenceRepository = (*FiscalReferenceRepo)(nil)
	_ repository.ICMSRuleItemRepository    = (*FiscalReferenceRepo)(nil)
)

// FiscalReferenceRepo lectura del espejo local de datos fiscales (sincronizado desde el ERP).
// Solo SELECT: el motor nunca escribe datos de referencia.
type FiscalReferenceRepo struct {
	q Querier
}

// NewFiscalReferenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFiscalReferenceRepository(q Querier) *FiscalReferenceRepo {
	return &FiscalReferenceRepo{q: q}
}

// GetProduct obtiene un producto por código.
func (r *FiscalReferenceRepo) GetProduct(ctx context.Context, code string) (*entity.Product, error) {
	query := `
		SELECT code, COALESCE(description, ''), COALESCE(ncm, ''), COALESCE(origin, ''),
		       COALESCE(icms_rule_code, 0), COALESCE(ipi_rate, 0)
		FROM products WHERE code = $1`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, code).Scan(&p.Code, &p.Description, &p.NCM, &p.Origin, &p.ICMSRuleCode, &p.IPIRate)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetActiveOverride obtiene el registro fiscal activo del producto (el más reciente si hubiera varios).
func (r *FiscalReferenceRepo) GetActiveOverride(ctx context.Context, productCode string) (*entity.ProductFiscalOverride, error) {
	query := `
		SELECT product_code, COALESCE(icms_rule_code, 0), COALESCE(ncm, ''), COALESCE(cest, ''), COALESCE(origin, ''),
		       pauta_price, iva_override, internal_rate_override, active
		FROM product_fiscal_overrides
		WHERE product_code = $1 AND active
		ORDER BY updated_at DESC
		LIMIT 1`
	var (
		o                        entity.ProductFiscalOverride
		pauta, iva, internalRate decimal.NullDecimal
	)
	err := r.q.QueryRow(ctx, query, productCode).Scan(
		&o.ProductCode, &o.ICMSRuleCode, &o.NCM, &o.CEST, &o.Origin,
		&pauta, &iva, &internalRate, &o.Active,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal override: %w", err)
	}
	o.PautaPrice = nullDecimalPtr(pauta)
	o.IVAOverride = nullDecimalPtr(iva)
	o.InternalRateOverride = nullDecimalPtr(internalRate)
	return &o, nil
}

// GetRuleCatalog obtiene la cabecera de una regla ICMS.
func (r *FiscalReferenceRepo) GetRuleCatalog(ctx context.Context, ruleCode int) (*entity.ICMSRuleCatalog, error) {
	query := `SELECT rule_code, COALESCE(description, ''), COALESCE(surcharge, false) FROM icms_rule_catalog WHERE rule_code = $1`
	var c entity.ICMSRuleCatalog
	if err := r.q.QueryRow(ctx, query, ruleCode).Scan(&c.RuleCode, &c.Description, &c.Surcharge); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rule catalog: %w", err)
	}
	return &c, nil
}

// FindRuleItem cabecera + ítem de la regla para la UF en un solo viaje.
// Con empresa se prefiere su fila; sin fila propia vale la genérica (company_id NULL).
// Las filas de otras empresas nunca se devuelven.
func (r *FiscalReferenceRepo) FindRuleItem(ctx context.Context, key repository.RuleItemKey) (*entity.ICMSRuleItem, error) {
	query := `
		SELECT i.rule_code, i.state, COALESCE(i.company_id, 0),
		       COALESCE(i.cst_contributor, ''), COALESCE(i.cst_non_contributor, ''),
		       COALESCE(i.rate_contributor, 0), COALESCE(i.rate_non_contributor, 0),
		       COALESCE(i.reduction_contributor, 0), COALESCE(i.reduction_non_contributor, 0),
		       COALESCE(i.st_flag, ''), COALESCE(i.internal_rate, 0),
		       COALESCE(i.cst_simples, ''), i.rate_simples,
		       i.reduction_simples, COALESCE(i.st_flag_simples, ''), i.internal_rate_simples,
		       COALESCE(c.surcharge, false)
		FROM icms_rule_items i
		LEFT JOIN icms_rule_catalog c ON c.rule_code = i.rule_code
		WHERE i.rule_code = $1 AND i.state = $2
		  AND (i.company_id IS NULL OR i.company_id = $3::int)
		ORDER BY CASE WHEN i.company_id = $3::int THEN 0 WHEN i.company_id IS NULL THEN 1 ELSE 2 END
		LIMIT 1`
	var (
		it                  entity.ICMSRuleItem
		stFlag              string
		rateSimples         decimal.NullDecimal
		reductionSimples    decimal.NullDecimal
		stFlagSimples       string
		internalRateSimples decimal.NullDecimal
	)
	err := r.q.QueryRow(ctx, query, key.RuleCode, strings.ToUpper(key.State), key.CompanyID).Scan(
		&it.RuleCode, &it.State, &it.CompanyID,
		&it.CSTContributor, &it.CSTNonContributor,
		&it.RateContributor, &it.RateNonContributor,
		&it.ReductionContributor, &it.ReductionNonContributor,
		&stFlag, &it.InternalRate,
		&it.CSTSimples, &rateSimples,
		&reductionSimples, &stFlagSimples, &internalRateSimples,
		&it.Surcharge,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find icms rule item: %w", err)
	}
	it.STFlag = entity.ParseSTFlag(stFlag)
	it.RateSimples = nullDecimalPtr(rateSimples)
	it.ReductionSimples = nullDecimalPtr(reductionSimples)
	it.STFlagSimples = entity.ParseSTFlag(stFlagSimples)
	it.InternalRateSimples = nullDecimalPtr(internalRateSimples)
	return &it, nil
}

// GetClassification obtiene la clasificación fiscal de un NCM.
func (r *FiscalReferenceRepo) GetClassification(ctx context.Context, ncm string) (*entity.FiscalClassification, error) {
	query := `SELECT ncm, classification_code FROM fiscal_classifications WHERE ncm = $1`
	var c entity.FiscalClassification
	if err := r.q.QueryRow(ctx, query, ncm).Scan(&c.NCM, &c.ClassificationCode); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get classification: %w", err)
	}
	return &c, nil
}

// GetClassificationTaxData obtiene IVA y alícuota interna de la clasificación para la UF.
func (r *FiscalReferenceRepo) GetClassificationTaxData(ctx context.Context, classificationCode, state string) (*entity.ClassificationTaxData, error) {
	query := `
		SELECT classification_code, state,
		       COALESCE(iva, 0), COALESCE(internal_rate, 0),
		       COALESCE(import_iva, 0), COALESCE(import_internal_rate, 0),
		       COALESCE(cest, '')
		FROM classification_tax_data
		WHERE classification_code = $1 AND state = $2`
	var t entity.ClassificationTaxData
	err := r.q.QueryRow(ctx, query, classificationCode, strings.ToUpper(state)).Scan(
		&t.ClassificationCode, &t.State, &t.IVA, &t.InternalRate, &t.ImportIVA, &t.ImportInternalRate, &t.CEST,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get classification tax data: %w", err)
	}
	return &t, nil
}

// GetClassificationFCPData obtiene las alícuotas de FCP de la clasificación para la UF.
func (r *FiscalReferenceRepo) GetClassificationFCPData(ctx context.Context, classificationCode, state string) (*entity.ClassificationFCPData, error) {
	query := `
		SELECT classification_code, state, COALESCE(fcp, 0), COALESCE(fcp_st, 0), COALESCE(pst, 0)
		FROM classification_fcp_data
		WHERE classification_code = $1 AND state = $2`
	var f entity.ClassificationFCPData
	err := r.q.QueryRow(ctx, query, classificationCode, strings.ToUpper(state)).Scan(
		&f.ClassificationCode, &f.State, &f.FCP, &f.FCPST, &f.PST,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get classification fcp data: %w", err)
	}
	return &f, nil
}
