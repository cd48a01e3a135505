package repository

import (
	"context"

	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
)

// FiscalReferenceRepository define el puerto de lectura sobre los datos fiscales de referencia (DIP).
// Todas las búsquedas devuelven (nil, nil) cuando la fila no existe; el error queda reservado
// para fallos de infraestructura.
type FiscalReferenceRepository interface {
	GetProduct(ctx context.Context, code string) (*entity.Product, error)
	GetActiveOverride(ctx context.Context, productCode string) (*entity.ProductFiscalOverride, error)
	GetRuleCatalog(ctx context.Context, ruleCode int) (*entity.ICMSRuleCatalog, error)
	GetClassification(ctx context.Context, ncm string) (*entity.FiscalClassification, error)
	GetClassificationTaxData(ctx context.Context, classificationCode, state string) (*entity.ClassificationTaxData, error)
	GetClassificationFCPData(ctx context.Context, classificationCode, state string) (*entity.ClassificationFCPData, error)
}

// RuleItemKey clave de búsqueda de un ítem de regla ICMS.
type RuleItemKey struct {
	RuleCode  int
	State     string
	CompanyID int // 0 = sin preferencia de empresa
}

// ICMSRuleItemRepository resuelve un ítem de regla en un solo viaje (join catálogo + ítems).
// Lo implementan el espejo local y las fuentes externas autoritativas.
type ICMSRuleItemRepository interface {
	FindRuleItem(ctx context.Context, key RuleItemKey) (*entity.ICMSRuleItem, error)
}
