package fiscal

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/motor-fiscal/internal/domain"
	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/motor-fiscal/internal/domain/repository"
	"github.com/jhoicas/motor-fiscal/pkg/logger"
)

// FiscalDataAggregator arma el perfil fiscal de un producto combinando producto, override,
// regla ICMS resuelta, clasificación fiscal y datos de FCP.
type FiscalDataAggregator struct {
	repo     repository.FiscalReferenceRepository
	resolver RuleItemResolver
	defaults fiscaldom.Defaults
	log      *logger.Logger
}

// NewFiscalDataAggregator construye el agregador.
func NewFiscalDataAggregator(
	repo repository.FiscalReferenceRepository,
	resolver RuleItemResolver,
	defaults fiscaldom.Defaults,
	log *logger.Logger,
) *FiscalDataAggregator {
	if log == nil {
		log = logger.Nop()
	}
	return &FiscalDataAggregator{repo: repo, resolver: resolver, defaults: defaults, log: log}
}

// GetFiscalProfile solo falla si el producto no existe (domain.ErrNotFound) o si su lectura falla.
// Cualquier otro dato ausente o con error degrada a valores por defecto y queda en Degradations
// (texto en pt-BR, viaja hasta la respuesta).
func (a *FiscalDataAggregator) GetFiscalProfile(ctx context.Context, productCode, state string, companyID int) (*fiscaldom.FiscalProfile, error) {
	productCode = strings.TrimSpace(productCode)
	state = strings.ToUpper(strings.TrimSpace(state))

	// 1. Producto: único dato obligatorio
	product, err := a.repo.GetProduct(ctx, productCode)
	if err != nil {
		return nil, fmt.Errorf("obtener producto %s: %w", productCode, err)
	}
	if product == nil {
		return nil, fmt.Errorf("producto %s: %w", productCode, domain.ErrNotFound)
	}

	p := &fiscaldom.FiscalProfile{Product: *product, State: state}

	// 2. Override fiscal activo (autoritativo sobre el producto)
	override, err := a.repo.GetActiveOverride(ctx, productCode)
	switch {
	case err != nil:
		a.degrade(p, fmt.Sprintf("cadastro fiscal indisponível: %v", err))
	case override == nil:
		a.degrade(p, "produto sem cadastro fiscal ativo")
	default:
		p.Override = override
	}
	a.applyEffectiveFields(p)

	// 3. Clasificación fiscal por NCM
	if p.EffectiveNCM != "" {
		cls, err := a.repo.GetClassification(ctx, p.EffectiveNCM)
		switch {
		case err != nil:
			a.degrade(p, fmt.Sprintf("classificação fiscal indisponível: %v", err))
		case cls == nil:
			a.degrade(p, fmt.Sprintf("NCM %s sem classificação fiscal", p.EffectiveNCM))
		default:
			p.Classification = cls
		}
	} else {
		a.degrade(p, "produto sem NCM")
	}

	if state == "" {
		a.degrade(p, "UF não informada: perfil sem regra ICMS nem dados por UF")
		return p, nil
	}

	// 4. Regla ICMS y datos por UF en paralelo; cada goroutine escribe solo sus variables
	var (
		resolved                 fiscaldom.ResolvedRuleItem
		taxData                  *entity.ClassificationTaxData
		fcpData                  *entity.ClassificationFCPData
		taxFromHome, fcpFromHome bool
		taxNotes, fcpNotes       []string
	)
	var g errgroup.Group
	g.Go(func() error {
		resolved = a.resolver.ResolveICMSRuleItem(ctx, p.EffectiveRuleCode, state, companyID)
		return nil
	})
	if cls := p.Classification; cls != nil {
		g.Go(func() error {
			taxData, taxFromHome, taxNotes = lookupWithHomeState(ctx, state, a.defaults.HomeState, "dados tributários da classificação",
				func(ctx context.Context, uf string) (*entity.ClassificationTaxData, error) {
					return a.repo.GetClassificationTaxData(ctx, cls.ClassificationCode, uf)
				})
			return nil
		})
		g.Go(func() error {
			fcpData, fcpFromHome, fcpNotes = lookupWithHomeState(ctx, state, a.defaults.HomeState, "dados de FCP da classificação",
				func(ctx context.Context, uf string) (*entity.ClassificationFCPData, error) {
					return a.repo.GetClassificationFCPData(ctx, cls.ClassificationCode, uf)
				})
			return nil
		})
	}
	_ = g.Wait()

	p.RuleItem = &resolved.Item
	p.RuleStep = resolved.Step
	if resolved.Step.IsFallback() {
		a.degrade(p, fmt.Sprintf("regra ICMS %d para %s resolvida por fallback (%s)", p.EffectiveRuleCode, state, resolved.Step))
	}
	p.TaxData, p.TaxDataFromHomeState = taxData, taxFromHome
	p.FCPData, p.FCPFromHomeState = fcpData, fcpFromHome
	for _, n := range append(taxNotes, fcpNotes...) {
		a.degrade(p, n)
	}

	if p.CEST == "" && p.TaxData != nil {
		p.CEST = p.TaxData.CEST
	}

	a.log.Debug().
		Str("product_code", productCode).
		Str("state", state).
		Int("rule_code", p.EffectiveRuleCode).
		Str("rule_step", string(p.RuleStep)).
		Int("degradations", len(p.Degradations)).
		Msg("perfil fiscal armado")
	return p, nil
}

// applyEffectiveFields: override > producto > valor por defecto.
func (a *FiscalDataAggregator) applyEffectiveFields(p *fiscaldom.FiscalProfile) {
	p.EffectiveRuleCode = p.Product.ICMSRuleCode
	p.EffectiveNCM = strings.TrimSpace(p.Product.NCM)
	p.EffectiveOrigin = strings.TrimSpace(p.Product.Origin)

	if ov := p.Override; ov != nil {
		if ov.ICMSRuleCode != 0 {
			p.EffectiveRuleCode = ov.ICMSRuleCode
		}
		if ncm := strings.TrimSpace(ov.NCM); ncm != "" {
			p.EffectiveNCM = ncm
		}
		if origin := strings.TrimSpace(ov.Origin); origin != "" {
			p.EffectiveOrigin = origin
		}
		p.CEST = strings.TrimSpace(ov.CEST)
	}
	if p.EffectiveOrigin == "" {
		p.EffectiveOrigin = a.defaults.DefaultOrigin
	}
}

func (a *FiscalDataAggregator) degrade(p *fiscaldom.FiscalProfile, note string) {
	p.Degradations = append(p.Degradations, note)
	a.log.Debug().Str("product_code", p.Product.Code).Str("state", p.State).Msg(note)
}

// lookupWithHomeState consulta la UF pedida y, si no hay fila, una vez la UF de la empresa.
// Devuelve el dato (o nil), si vino de la UF de la empresa y las notas de degradación.
func lookupWithHomeState[T any](
	ctx context.Context,
	state, home, what string,
	fetch func(ctx context.Context, uf string) (*T, error),
) (*T, bool, []string) {
	var notes []string
	v, err := fetch(ctx, state)
	if err != nil {
		notes = append(notes, fmt.Sprintf("%s para %s indisponíveis: %v", what, state, err))
	}
	if v != nil {
		return v, false, notes
	}
	home = strings.ToUpper(strings.TrimSpace(home))
	if home == "" || home == state {
		return nil, false, append(notes, fmt.Sprintf("sem %s para %s", what, state))
	}
	v, err = fetch(ctx, home)
	if err != nil {
		return nil, false, append(notes, fmt.Sprintf("%s para %s indisponíveis: %v", what, home, err))
	}
	if v == nil {
		return nil, false, append(notes, fmt.Sprintf("sem %s para %s nem para %s", what, state, home))
	}
	return v, true, append(notes, fmt.Sprintf("%s usados da UF da empresa %s", what, home))
}
