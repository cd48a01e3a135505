package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClientProfile datos del destinatario que cambian la columna de la regla ICMS.
// Interstate nil = se deduce comparando la UF de destino con la UF de la empresa.
type ClientProfile struct {
	Contributor bool  `json:"contributor"`
	Simples     bool  `json:"simples"`
	Interstate  *bool `json:"interstate"`
}

// CalculateTaxesRequest entrada del cálculo de impuestos de una línea.
// Los punteros distinguen "no informado" de cero para validar antes de cualquier consulta.
type CalculateTaxesRequest struct {
	ProductCode string           `json:"product_code" validate:"required"`
	State       string           `json:"state" validate:"required,len=2"`
	CompanyID   int              `json:"company_id"`
	Quantity    *decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice   *decimal.Decimal `json:"unit_price" validate:"required"`
	Discount    *decimal.Decimal `json:"discount"`
	Client      ClientProfile    `json:"client"`
	// Imported nil = se deduce del código de origen efectivo del producto.
	Imported *bool `json:"imported"`
}

// RuleItemResponse ítem de regla ICMS resuelto y el paso de la cadena que lo entregó.
type RuleItemResponse struct {
	RuleCode                int              `json:"rule_code"`
	Description             string           `json:"description,omitempty"`
	State                   string           `json:"state"`
	CompanyID               int              `json:"company_id,omitempty"`
	CSTContributor          string           `json:"cst_contributor"`
	CSTNonContributor       string           `json:"cst_non_contributor"`
	CSTSimples              string           `json:"cst_simples,omitempty"`
	RateContributor         decimal.Decimal  `json:"rate_contributor"`
	RateNonContributor      decimal.Decimal  `json:"rate_non_contributor"`
	RateSimples             *decimal.Decimal `json:"rate_simples,omitempty"`
	ReductionContributor    decimal.Decimal  `json:"reduction_contributor"`
	ReductionNonContributor decimal.Decimal  `json:"reduction_non_contributor"`
	ReductionSimples        *decimal.Decimal `json:"reduction_simples,omitempty"`
	STFlag                  string           `json:"st_flag"`
	STFlagSimples           string           `json:"st_flag_simples,omitempty"`
	InternalRate            decimal.Decimal  `json:"internal_rate"`
	InternalRateSimples     *decimal.Decimal `json:"internal_rate_simples,omitempty"`
	Surcharge               bool             `json:"surcharge"`
	Step                    string           `json:"step"`
}

// FiscalProfileResponse salida del perfil fiscal de un producto para una UF.
type FiscalProfileResponse struct {
	ProductCode        string            `json:"product_code"`
	Description        string            `json:"description"`
	State              string            `json:"state"`
	LegacyRuleCode     int               `json:"legacy_rule_code"`
	EffectiveRuleCode  int               `json:"effective_rule_code"`
	HasOverride        bool              `json:"has_override"`
	NCM                string            `json:"ncm"`
	Origin             string            `json:"origin"`
	CEST               string            `json:"cest,omitempty"`
	ClassificationCode string            `json:"classification_code,omitempty"`
	IPIRate            decimal.Decimal   `json:"ipi_rate"`
	PautaPrice         *decimal.Decimal  `json:"pauta_price,omitempty"`
	IVA                *decimal.Decimal  `json:"iva,omitempty"`
	InternalRate       *decimal.Decimal  `json:"internal_rate,omitempty"`
	ImportIVA          *decimal.Decimal  `json:"import_iva,omitempty"`
	ImportInternalRate *decimal.Decimal  `json:"import_internal_rate,omitempty"`
	FCP                *decimal.Decimal  `json:"fcp,omitempty"`
	FCPST              *decimal.Decimal  `json:"fcp_st,omitempty"`
	RuleItem           *RuleItemResponse `json:"rule_item,omitempty"`
	Degradations       []string          `json:"degradations"`
}

// AuditBatchRequest entrada de la auditoría por lote.
type AuditBatchRequest struct {
	ProductCodes []string `json:"product_codes" validate:"required,min=1"`
	State        string   `json:"state"`
}

// AuditReport reporte de auditoría de un producto. Inconsistencies conserva el orden de detección;
// BySeverity agrupa las mismas entradas de CRITICAL a LOW.
type AuditReport struct {
	ID              string                        `json:"id"`
	ProductCode     string                        `json:"product_code"`
	State           string                        `json:"state"`
	CompanyID       int                           `json:"company_id"`
	GeneratedAt     time.Time                     `json:"generated_at"`
	RuleCode        int                           `json:"rule_code,omitempty"`
	RuleStep        string                        `json:"rule_step,omitempty"`
	MaxSeverity     string                        `json:"max_severity,omitempty"`
	Total           int                           `json:"total"`
	Inconsistencies []InconsistencyDTO            `json:"inconsistencies"`
	BySeverity      map[string][]InconsistencyDTO `json:"by_severity"`
	Degradations    []string                      `json:"degradations,omitempty"`
	Text            string                        `json:"text"`
	Error           string                        `json:"error,omitempty"`
}

// InconsistencyDTO inconsistencia tal como se expone en reportes.
type InconsistencyDTO struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
	ProductCode    string `json:"product_code"`
	State          string `json:"state,omitempty"`
}

// AuditBatchResponse reportes en el mismo orden de los códigos pedidos.
type AuditBatchResponse struct {
	Reports []AuditReport  `json:"reports"`
	Summary map[string]int `json:"summary"`
}
