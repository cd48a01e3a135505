// Package erp lee reglas ICMS directamente de la base del ERP, la fuente autoritativa
// que el espejo local replica con atraso.
package erp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
	"github.com/jhoicas/motor-fiscal/internal/domain/repository"
)

var _ repository.ICMSRuleItemRepository = (*RuleSource)(nil)

// NewDB abre la conexión de solo lectura al ERP.
func NewDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("abrir conexión ERP: %w", err)
	}
	return db, nil
}

// ruleItemRow fila de icms_rule_items del ERP con la cabecera unida. Las columnas admiten NULL.
type ruleItemRow struct {
	RuleCode                int                 `gorm:"column:rule_code"`
	State                   string              `gorm:"column:state"`
	CompanyID               sql.NullInt64       `gorm:"column:company_id"`
	CSTContributor          sql.NullString      `gorm:"column:cst_contributor"`
	CSTNonContributor       sql.NullString      `gorm:"column:cst_non_contributor"`
	RateContributor         decimal.NullDecimal `gorm:"column:rate_contributor"`
	RateNonContributor      decimal.NullDecimal `gorm:"column:rate_non_contributor"`
	ReductionContributor    decimal.NullDecimal `gorm:"column:reduction_contributor"`
	ReductionNonContributor decimal.NullDecimal `gorm:"column:reduction_non_contributor"`
	STFlag                  sql.NullString      `gorm:"column:st_flag"`
	InternalRate            decimal.NullDecimal `gorm:"column:internal_rate"`
	CSTSimples              sql.NullString      `gorm:"column:cst_simples"`
	RateSimples             decimal.NullDecimal `gorm:"column:rate_simples"`
	ReductionSimples        decimal.NullDecimal `gorm:"column:reduction_simples"`
	STFlagSimples           sql.NullString      `gorm:"column:st_flag_simples"`
	InternalRateSimples     decimal.NullDecimal `gorm:"column:internal_rate_simples"`
	Surcharge               sql.NullBool        `gorm:"column:surcharge"`
}

func (ruleItemRow) TableName() string { return "icms_rule_items" }

// RuleSource fuente externa de ítems de regla ICMS sobre gorm.
type RuleSource struct {
	db *gorm.DB
}

// NewRuleSource construye la fuente.
func NewRuleSource(db *gorm.DB) *RuleSource {
	return &RuleSource{db: db}
}

// FindRuleItem devuelve (nil, nil) si el ERP no tiene la regla para la UF.
func (s *RuleSource) FindRuleItem(ctx context.Context, key repository.RuleItemKey) (*entity.ICMSRuleItem, error) {
	var row ruleItemRow
	if err := ruleItemQuery(s.db.WithContext(ctx), key).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("erp find icms rule item: %w", err)
	}
	item := row.toEntity()
	return &item, nil
}

// ruleItemQuery filtra por (regla, UF) y por la empresa o las filas genéricas (company_id NULL);
// las de otras empresas no califican. Orden: fila de la empresa, luego la genérica.
func ruleItemQuery(db *gorm.DB, key repository.RuleItemKey) *gorm.DB {
	return db.
		Model(&ruleItemRow{}).
		Select(`icms_rule_items.rule_code, icms_rule_items.state, icms_rule_items.company_id,
			icms_rule_items.cst_contributor, icms_rule_items.cst_non_contributor,
			icms_rule_items.rate_contributor, icms_rule_items.rate_non_contributor,
			icms_rule_items.reduction_contributor, icms_rule_items.reduction_non_contributor,
			icms_rule_items.st_flag, icms_rule_items.internal_rate,
			icms_rule_items.cst_simples, icms_rule_items.rate_simples,
			icms_rule_items.reduction_simples, icms_rule_items.st_flag_simples,
			icms_rule_items.internal_rate_simples,
			icms_rule_catalog.surcharge`).
		Joins("LEFT JOIN icms_rule_catalog ON icms_rule_catalog.rule_code = icms_rule_items.rule_code").
		Where("icms_rule_items.rule_code = ? AND icms_rule_items.state = ?", key.RuleCode, strings.ToUpper(key.State)).
		Where("(icms_rule_items.company_id IS NULL OR icms_rule_items.company_id = ?)", key.CompanyID).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN icms_rule_items.company_id = ? THEN 0 WHEN icms_rule_items.company_id IS NULL THEN 1 ELSE 2 END",
			Vars:               []any{key.CompanyID},
			WithoutParentheses: true,
		}})
}

func (r ruleItemRow) toEntity() entity.ICMSRuleItem {
	return entity.ICMSRuleItem{
		RuleCode:                r.RuleCode,
		State:                   strings.ToUpper(strings.TrimSpace(r.State)),
		CompanyID:               int(r.CompanyID.Int64),
		CSTContributor:          strings.TrimSpace(r.CSTContributor.String),
		CSTNonContributor:       strings.TrimSpace(r.CSTNonContributor.String),
		RateContributor:         r.RateContributor.Decimal,
		RateNonContributor:      r.RateNonContributor.Decimal,
		ReductionContributor:    r.ReductionContributor.Decimal,
		ReductionNonContributor: r.ReductionNonContributor.Decimal,
		STFlag:                  entity.ParseSTFlag(r.STFlag.String),
		InternalRate:            r.InternalRate.Decimal,
		CSTSimples:              strings.TrimSpace(r.CSTSimples.String),
		RateSimples:             decimalPtr(r.RateSimples),
		ReductionSimples:        decimalPtr(r.ReductionSimples),
		STFlagSimples:           entity.ParseSTFlag(r.STFlagSimples.String),
		InternalRateSimples:     decimalPtr(r.InternalRateSimples),
		Surcharge:               r.Surcharge.Bool,
	}
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := n.Decimal
	return &v
}
