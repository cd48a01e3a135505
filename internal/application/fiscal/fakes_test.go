package fiscal_test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/motor-fiscal/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de prueba
// ──────────────────────────────────────────────────────────────────────────────

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func stateKey(code, state string) string { return code + "|" + state }

func ruleKey(code int, state string) repository.RuleItemKey {
	return repository.RuleItemKey{RuleCode: code, State: state}
}

// fakeReferenceRepo repositorio de referencia en memoria. Solo lectura concurrente de mapas.
type fakeReferenceRepo struct {
	products        map[string]*entity.Product
	overrides       map[string]*entity.ProductFiscalOverride
	classifications map[string]*entity.FiscalClassification
	taxData         map[string]*entity.ClassificationTaxData
	fcpData         map[string]*entity.ClassificationFCPData
	catalogs        map[int]*entity.ICMSRuleCatalog

	overrideErr error

	mu           sync.Mutex
	productCalls int
}

func newFakeReferenceRepo() *fakeReferenceRepo {
	return &fakeReferenceRepo{
		products:        map[string]*entity.Product{},
		overrides:       map[string]*entity.ProductFiscalOverride{},
		classifications: map[string]*entity.FiscalClassification{},
		taxData:         map[string]*entity.ClassificationTaxData{},
		fcpData:         map[string]*entity.ClassificationFCPData{},
		catalogs:        map[int]*entity.ICMSRuleCatalog{},
	}
}

func (f *fakeReferenceRepo) GetProduct(_ context.Context, code string) (*entity.Product, error) {
	f.mu.Lock()
	f.productCalls++
	f.mu.Unlock()
	return f.products[code], nil
}

func (f *fakeReferenceRepo) GetActiveOverride(_ context.Context, code string) (*entity.ProductFiscalOverride, error) {
	if f.overrideErr != nil {
		return nil, f.overrideErr
	}
	return f.overrides[code], nil
}

func (f *fakeReferenceRepo) GetRuleCatalog(_ context.Context, ruleCode int) (*entity.ICMSRuleCatalog, error) {
	return f.catalogs[ruleCode], nil
}

func (f *fakeReferenceRepo) GetClassification(_ context.Context, ncm string) (*entity.FiscalClassification, error) {
	return f.classifications[ncm], nil
}

func (f *fakeReferenceRepo) GetClassificationTaxData(_ context.Context, code, state string) (*entity.ClassificationTaxData, error) {
	return f.taxData[stateKey(code, state)], nil
}

func (f *fakeReferenceRepo) GetClassificationFCPData(_ context.Context, code, state string) (*entity.ClassificationFCPData, error) {
	return f.fcpData[stateKey(code, state)], nil
}

func (f *fakeReferenceRepo) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.productCalls
}

// fakeRuleSource fuente de ítems de regla con error y demora configurables.
type fakeRuleSource struct {
	items map[repository.RuleItemKey]*entity.ICMSRuleItem
	err   error
	delay time.Duration

	mu   sync.Mutex
	keys []repository.RuleItemKey
}

func newFakeRuleSource(items ...entity.ICMSRuleItem) *fakeRuleSource {
	f := &fakeRuleSource{items: map[repository.RuleItemKey]*entity.ICMSRuleItem{}}
	for i := range items {
		it := items[i]
		f.items[ruleKey(it.RuleCode, it.State)] = &it
	}
	return f
}

func (f *fakeRuleSource) FindRuleItem(ctx context.Context, key repository.RuleItemKey) (*entity.ICMSRuleItem, error) {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.items[ruleKey(key.RuleCode, key.State)], nil
}

func (f *fakeRuleSource) seen() []repository.RuleItemKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.RuleItemKey(nil), f.keys...)
}

// fakeRuleEvaluator devuelve siempre las mismas inconsistencias y guarda los hechos recibidos.
type fakeRuleEvaluator struct {
	hits []fiscaldom.Inconsistency
	err  error

	mu    sync.Mutex
	facts []map[string]any
}

func (f *fakeRuleEvaluator) Evaluate(_ context.Context, facts map[string]any) ([]fiscaldom.Inconsistency, error) {
	f.mu.Lock()
	f.facts = append(f.facts, facts)
	f.mu.Unlock()
	return append([]fiscaldom.Inconsistency(nil), f.hits...), f.err
}
