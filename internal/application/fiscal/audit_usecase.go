package fiscal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/motor-fiscal/internal/application/dto"
	"github.com/jhoicas/motor-fiscal/internal/domain"
	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/motor-fiscal/pkg/logger"
)

const defaultAuditConcurrency = 8

// Claves de Summary en la auditoría por lote, además de las severidades.
const (
	SummaryClean = "NONE"
	SummaryError = "ERROR"
)

// AuditUseCase audita la configuración fiscal de productos: reglas del validador sobre ambas
// columnas, chequeos de completitud y reglas configurables.
type AuditUseCase struct {
	profiles    ProfileProvider
	validator   *fiscaldom.Validator
	rules       CustomRuleEvaluator
	defaults    fiscaldom.Defaults
	concurrency int
	log         *logger.Logger
	now         func() time.Time
}

// NewAuditUseCase construye el caso de uso. rules puede ser nil (sin reglas configurables).
func NewAuditUseCase(
	profiles ProfileProvider,
	rules CustomRuleEvaluator,
	defaults fiscaldom.Defaults,
	concurrency int,
	log *logger.Logger,
) *AuditUseCase {
	if concurrency <= 0 {
		concurrency = defaultAuditConcurrency
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AuditUseCase{
		profiles:    profiles,
		validator:   fiscaldom.NewValidator(defaults),
		rules:       rules,
		defaults:    defaults,
		concurrency: concurrency,
		log:         log,
		now:         time.Now,
	}
}

// AuditProduct audita un producto. UF vacía = UF de la empresa. companyID elige las filas de regla
// de la empresa igual que en el cálculo (0 = genéricas).
// Devuelve domain.ErrNotFound si el producto no existe.
func (uc *AuditUseCase) AuditProduct(ctx context.Context, productCode, state string, companyID int) (*dto.AuditReport, error) {
	productCode = strings.TrimSpace(productCode)
	if productCode == "" {
		return nil, fmt.Errorf("%w: product_code es requerido", domain.ErrInvalidInput)
	}
	state = uc.auditState(state)

	profile, err := uc.profiles.GetFiscalProfile(ctx, productCode, state, companyID)
	if err != nil {
		return nil, err
	}
	if profile.RuleItem == nil {
		item := fiscaldom.DefaultRuleItem(uc.defaults, profile.EffectiveRuleCode, state)
		profile.RuleItem, profile.RuleStep = &item, fiscaldom.StepDefault
	}

	// 1. Reglas del validador sobre ambas columnas
	outcome := uc.validator.Validate(*profile.RuleItem, profile.ValidationContext(fiscaldom.ColumnBoth, false))
	incs := append([]fiscaldom.Inconsistency{}, outcome.Inconsistencies...)

	// 2. Completitud de datos
	incs = append(incs, uc.completenessChecks(profile)...)

	// 3. Reglas configurables
	var notes []string
	if uc.rules != nil {
		hits, err := uc.rules.Evaluate(ctx, profileFacts(profile))
		if err != nil {
			uc.log.Warn().Err(err).Str("product_code", productCode).Msg("reglas de auditoría configurables no evaluadas")
			notes = append(notes, fmt.Sprintf("reglas configurables no evaluadas: %v", err))
		}
		for _, h := range hits {
			h.ProductCode, h.State = productCode, state
			if !strings.HasPrefix(string(h.Type), string(fiscaldom.InconsistencyCustomRulePrefix)) {
				h.Type = fiscaldom.InconsistencyCustomRulePrefix + h.Type
			}
			incs = append(incs, h)
		}
	}

	report := uc.newReport(productCode, state, incs)
	report.CompanyID = companyID
	report.RuleCode = profile.EffectiveRuleCode
	report.RuleStep = string(profile.RuleStep)
	report.Degradations = append(append([]string{}, profile.Degradations...), notes...)
	report.Text = renderReportText(report)

	uc.log.Info().
		Str("report_id", report.ID).
		Str("product_code", productCode).
		Str("state", state).
		Int("inconsistencies", report.Total).
		Str("max_severity", report.MaxSeverity).
		Msg("auditoría fiscal generada")
	return report, nil
}

// AuditBatch audita varios productos en paralelo (límite configurable) y conserva el orden de entrada.
// Un producto inexistente genera un reporte PRODUCT_NOT_FOUND; no aborta el lote.
func (uc *AuditUseCase) AuditBatch(ctx context.Context, productCodes []string, state string, companyID int) (*dto.AuditBatchResponse, error) {
	if len(productCodes) == 0 {
		return nil, fmt.Errorf("%w: product_codes no puede estar vacío", domain.ErrInvalidInput)
	}
	state = uc.auditState(state)

	reports := make([]dto.AuditReport, len(productCodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, code := range productCodes {
		g.Go(func() error {
			rep, err := uc.AuditProduct(gctx, code, state, companyID)
			switch {
			case err == nil:
				reports[i] = *rep
			case errors.Is(err, domain.ErrNotFound):
				reports[i] = *uc.notFoundReport(code, state)
				reports[i].CompanyID = companyID
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				uc.log.Error().Err(err).Str("product_code", code).Msg("auditoría de producto falló")
				reports[i] = *uc.errorReport(code, state, err)
				reports[i].CompanyID = companyID
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("auditoría por lote: %w", err)
	}

	summary := map[string]int{}
	for _, r := range reports {
		switch {
		case r.Error != "":
			summary[SummaryError]++
		case r.MaxSeverity == "":
			summary[SummaryClean]++
		default:
			summary[r.MaxSeverity]++
		}
	}
	return &dto.AuditBatchResponse{Reports: reports, Summary: summary}, nil
}

func (uc *AuditUseCase) auditState(state string) string {
	state = strings.ToUpper(strings.TrimSpace(state))
	if state == "" {
		state = strings.ToUpper(strings.TrimSpace(uc.defaults.HomeState))
	}
	return state
}

// completenessChecks: producto con regla legada y sin override, clasificación sin datos
// para la UF y regla resuelta por fallback.
func (uc *AuditUseCase) completenessChecks(p *fiscaldom.FiscalProfile) []fiscaldom.Inconsistency {
	var out []fiscaldom.Inconsistency
	add := func(t fiscaldom.InconsistencyType, sev fiscaldom.Severity, desc, rec string) {
		out = append(out, fiscaldom.Inconsistency{
			Type: t, Severity: sev, Description: desc, Recommendation: rec,
			ProductCode: p.Product.Code, State: p.State,
		})
	}

	if !p.HasOverride() && p.Product.ICMSRuleCode != 0 {
		add(fiscaldom.InconsistencyMissingOverride, fiscaldom.SeverityMedium,
			fmt.Sprintf("Produto sem cadastro fiscal autoritativo; dados fiscais vêm do cadastro legado (regra %d)", p.Product.ICMSRuleCode),
			"Migrar regra ICMS, NCM, origem e CEST do produto para o cadastro fiscal")
	}

	if cls := p.Classification; cls != nil {
		switch {
		case p.TaxData == nil:
			add(fiscaldom.InconsistencyMissingClassification, fiscaldom.SeverityMedium,
				fmt.Sprintf("Classificação fiscal %s sem dados tributários (IVA/alíquota interna) para %s", cls.ClassificationCode, p.State),
				fmt.Sprintf("Completar os dados tributários da classificação %s para a UF %s", cls.ClassificationCode, p.State))
		case p.TaxDataFromHomeState:
			add(fiscaldom.InconsistencyMissingClassification, fiscaldom.SeverityLow,
				fmt.Sprintf("Classificação fiscal %s sem dados tributários para %s; usados os dados de %s", cls.ClassificationCode, p.State, uc.defaults.HomeState),
				fmt.Sprintf("Completar os dados tributários da classificação %s para a UF %s", cls.ClassificationCode, p.State))
		}
	}

	if p.RuleStep.IsFallback() {
		add(fiscaldom.InconsistencyRuleItemFallback, fiscaldom.SeverityLow,
			fmt.Sprintf("Regra ICMS %d sem item para %s; resolvida por fallback (%s)", p.EffectiveRuleCode, p.State, p.RuleStep),
			fmt.Sprintf("Cadastrar o item da regra %d para a UF %s", p.EffectiveRuleCode, p.State))
	}
	return out
}

func (uc *AuditUseCase) newReport(productCode, state string, incs []fiscaldom.Inconsistency) *dto.AuditReport {
	all := toInconsistencyDTOs(incs)
	bySeverity := make(map[string][]dto.InconsistencyDTO, len(fiscaldom.Severities))
	for _, sev := range fiscaldom.Severities {
		bySeverity[string(sev)] = []dto.InconsistencyDTO{}
	}
	for _, inc := range all {
		bySeverity[inc.Severity] = append(bySeverity[inc.Severity], inc)
	}
	return &dto.AuditReport{
		ID:              uuid.New().String(),
		ProductCode:     productCode,
		State:           state,
		GeneratedAt:     uc.now().UTC(),
		MaxSeverity:     string(fiscaldom.MaxSeverity(incs)),
		Total:           len(all),
		Inconsistencies: all,
		BySeverity:      bySeverity,
	}
}

func (uc *AuditUseCase) notFoundReport(productCode, state string) *dto.AuditReport {
	r := uc.newReport(productCode, state, []fiscaldom.Inconsistency{{
		Type:           fiscaldom.InconsistencyProductNotFound,
		Severity:       fiscaldom.SeverityCritical,
		Description:    fmt.Sprintf("Produto %s não encontrado", productCode),
		Recommendation: "Verificar o código do produto informado",
		ProductCode:    productCode,
		State:          state,
	}})
	r.Text = renderReportText(r)
	return r
}

func (uc *AuditUseCase) errorReport(productCode, state string, err error) *dto.AuditReport {
	r := uc.newReport(productCode, state, nil)
	r.Error = err.Error()
	r.Text = renderReportText(r)
	return r
}

// profileFacts hechos planos del perfil para las reglas configurables.
// Se usa el ítem tal como está configurado, no la copia corregida.
func profileFacts(p *fiscaldom.FiscalProfile) map[string]any {
	facts := map[string]any{
		"rule_code":        p.EffectiveRuleCode,
		"legacy_rule_code": p.Product.ICMSRuleCode,
		"has_override":     p.HasOverride(),
		"ncm":              p.EffectiveNCM,
		"origin":           p.EffectiveOrigin,
		"state":            p.State,
		"resolution_step":  string(p.RuleStep),
		"iva":              0.0,
		"internal_rate":    0.0,
		"fcp_st":           0.0,
	}
	if it := p.RuleItem; it != nil {
		facts["cst_contributor"] = it.CSTContributor
		facts["cst_non_contributor"] = it.CSTNonContributor
		facts["st_flag"] = string(it.STFlag)
	}
	if td := p.TaxData; td != nil {
		facts["iva"] = td.IVA.InexactFloat64()
		facts["internal_rate"] = td.InternalRate.InexactFloat64()
	}
	if fcp := p.FCPData; fcp != nil {
		facts["fcp_st"] = fcp.FCPST.InexactFloat64()
	}
	return facts
}
