package fiscal

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/motor-fiscal/internal/application/dto"
	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
)

// ToRuleItemResponse mapea el ítem resuelto a su DTO.
func ToRuleItemResponse(r fiscaldom.ResolvedRuleItem) dto.RuleItemResponse {
	it := r.Item
	return dto.RuleItemResponse{
		RuleCode:                it.RuleCode,
		State:                   it.State,
		CompanyID:               it.CompanyID,
		CSTContributor:          it.CSTContributor,
		CSTNonContributor:       it.CSTNonContributor,
		CSTSimples:              it.CSTSimples,
		RateContributor:         it.RateContributor,
		RateNonContributor:      it.RateNonContributor,
		RateSimples:             it.RateSimples,
		ReductionContributor:    it.ReductionContributor,
		ReductionNonContributor: it.ReductionNonContributor,
		ReductionSimples:        it.ReductionSimples,
		STFlag:                  string(it.STFlag),
		STFlagSimples:           string(it.STFlagSimples),
		InternalRate:            it.InternalRate,
		InternalRateSimples:     it.InternalRateSimples,
		Surcharge:               it.Surcharge,
		Step:                    string(r.Step),
	}
}

// ToProfileResponse mapea el perfil fiscal a su DTO.
func ToProfileResponse(p *fiscaldom.FiscalProfile) dto.FiscalProfileResponse {
	out := dto.FiscalProfileResponse{
		ProductCode:       p.Product.Code,
		Description:       p.Product.Description,
		State:             p.State,
		LegacyRuleCode:    p.Product.ICMSRuleCode,
		EffectiveRuleCode: p.EffectiveRuleCode,
		HasOverride:       p.HasOverride(),
		NCM:               p.EffectiveNCM,
		Origin:            p.EffectiveOrigin,
		CEST:              p.CEST,
		IPIRate:           p.Product.IPIRate,
		Degradations:      append([]string{}, p.Degradations...),
	}
	if p.Override != nil {
		out.PautaPrice = p.Override.PautaPrice
	}
	if p.Classification != nil {
		out.ClassificationCode = p.Classification.ClassificationCode
	}
	if td := p.TaxData; td != nil {
		out.IVA = ptr(td.IVA)
		out.InternalRate = ptr(td.InternalRate)
		out.ImportIVA = ptr(td.ImportIVA)
		out.ImportInternalRate = ptr(td.ImportInternalRate)
	}
	if fcp := p.FCPData; fcp != nil {
		out.FCP = ptr(fcp.FCP)
		out.FCPST = ptr(fcp.FCPST)
	}
	if p.RuleItem != nil {
		ri := ToRuleItemResponse(fiscaldom.ResolvedRuleItem{Item: *p.RuleItem, Step: p.RuleStep})
		out.RuleItem = &ri
	}
	return out
}

func toInconsistencyDTOs(list []fiscaldom.Inconsistency) []dto.InconsistencyDTO {
	out := make([]dto.InconsistencyDTO, 0, len(list))
	for _, inc := range list {
		out = append(out, dto.InconsistencyDTO{
			Type:           string(inc.Type),
			Severity:       string(inc.Severity),
			Description:    inc.Description,
			Recommendation: inc.Recommendation,
			ProductCode:    inc.ProductCode,
			State:          inc.State,
		})
	}
	return out
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
