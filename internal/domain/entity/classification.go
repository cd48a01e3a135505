package entity

import "github.com/shopspring/decimal"

// FiscalClassification relaciona un NCM con el código de clasificación usado como FK
// en los datos por UF.
type FiscalClassification struct {
	NCM                string
	ClassificationCode string
}

// ClassificationTaxData datos de la clasificación por UF: margen ST y alícuota interna.
// La ausencia de fila es un estado válido ("sin override").
type ClassificationTaxData struct {
	ClassificationCode string
	State              string
	IVA                decimal.Decimal
	InternalRate       decimal.Decimal
	ImportIVA          decimal.Decimal
	ImportInternalRate decimal.Decimal
	CEST               string
}

// ClassificationFCPData alícuotas del Fondo de Combate a la Pobreza por UF.
type ClassificationFCPData struct {
	ClassificationCode string
	State              string
	FCP                decimal.Decimal
	FCPST              decimal.Decimal
	PST                decimal.Decimal
}
