package entity

import "github.com/shopspring/decimal"

// Product representa un producto del catálogo sincronizado desde el ERP.
// Es de solo lectura para el motor fiscal.
type Product struct {
	Code         string
	Description  string
	NCM          string          // clasificación Mercosul (8 dígitos)
	Origin       string          // origen de la mercadería (0–8)
	ICMSRuleCode int             // legado: la regla efectiva viene de ProductFiscalOverride
	IPIRate      decimal.Decimal // alícuota IPI por defecto (%)
}

// ProductFiscalOverride es el registro fiscal autoritativo de un producto.
// Como máximo existe uno activo por producto.
type ProductFiscalOverride struct {
	ProductCode          string
	ICMSRuleCode         int
	NCM                  string
	CEST                 string
	Origin               string
	PautaPrice           *decimal.Decimal // precio de pauta por unidad para la base ST
	IVAOverride          *decimal.Decimal
	InternalRateOverride *decimal.Decimal
	Active               bool
}
