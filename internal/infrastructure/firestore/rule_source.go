// Package firestore lee el catálogo de reglas ICMS publicado en Firestore por el equipo fiscal.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
	"github.com/jhoicas/motor-fiscal/internal/domain/repository"
)

var _ repository.ICMSRuleItemRepository = (*RuleSource)(nil)

// NewClient abre el cliente. databaseID vacío = base "(default)".
func NewClient(ctx context.Context, projectID, databaseID string) (*firestore.Client, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, fmt.Errorf("firestore: cliente para %s/%s: %w", projectID, databaseID, err)
	}
	return client, nil
}

// ruleItemDoc documento de la colección de reglas. Los números llegan como float64.
type ruleItemDoc struct {
	RuleCode                int      `firestore:"rule_code"`
	State                   string   `firestore:"state"`
	CompanyID               int      `firestore:"company_id"`
	CSTContributor          string   `firestore:"cst_contributor"`
	CSTNonContributor       string   `firestore:"cst_non_contributor"`
	RateContributor         float64  `firestore:"rate_contributor"`
	RateNonContributor      float64  `firestore:"rate_non_contributor"`
	ReductionContributor    float64  `firestore:"reduction_contributor"`
	ReductionNonContributor float64  `firestore:"reduction_non_contributor"`
	STFlag                  string   `firestore:"st_flag"`
	InternalRate            float64  `firestore:"internal_rate"`
	CSTSimples              string   `firestore:"cst_simples"`
	RateSimples             *float64 `firestore:"rate_simples"`
	ReductionSimples        *float64 `firestore:"reduction_simples"`
	STFlagSimples           string   `firestore:"st_flag_simples"`
	InternalRateSimples     *float64 `firestore:"internal_rate_simples"`
	Surcharge               bool     `firestore:"surcharge"`
}

// RuleSource fuente externa de ítems de regla ICMS sobre una colección de Firestore.
type RuleSource struct {
	client     *firestore.Client
	collection string
}

// NewRuleSource construye la fuente sobre la colección indicada.
func NewRuleSource(client *firestore.Client, collection string) *RuleSource {
	return &RuleSource{client: client, collection: collection}
}

// FindRuleItem busca los documentos de (regla, UF) y elige el de la empresa o, si no hay, el genérico.
func (s *RuleSource) FindRuleItem(ctx context.Context, key repository.RuleItemKey) (*entity.ICMSRuleItem, error) {
	docs := s.client.Collection(s.collection).
		Where("rule_code", "==", key.RuleCode).
		Where("state", "==", strings.ToUpper(key.State)).
		Documents(ctx)
	defer docs.Stop()

	var candidates []ruleItemDoc
	for {
		snap, err := docs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore: consultar %s: %w", s.collection, err)
		}
		var doc ruleItemDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore: leer %s: %w", snap.Ref.ID, err)
		}
		candidates = append(candidates, doc)
	}

	best := pickForCompany(candidates, key.CompanyID)
	if best == nil {
		return nil, nil
	}
	item := best.toEntity()
	return &item, nil
}

// pickForCompany: fila de la empresa > fila genérica (company_id 0). Filas de otras empresas se ignoran.
func pickForCompany(docs []ruleItemDoc, companyID int) *ruleItemDoc {
	var generic *ruleItemDoc
	for i := range docs {
		switch docs[i].CompanyID {
		case companyID:
			if companyID != 0 {
				return &docs[i]
			}
			if generic == nil {
				generic = &docs[i]
			}
		case 0:
			if generic == nil {
				generic = &docs[i]
			}
		}
	}
	return generic
}

func (d ruleItemDoc) toEntity() entity.ICMSRuleItem {
	return entity.ICMSRuleItem{
		RuleCode:                d.RuleCode,
		State:                   strings.ToUpper(strings.TrimSpace(d.State)),
		CompanyID:               d.CompanyID,
		CSTContributor:          strings.TrimSpace(d.CSTContributor),
		CSTNonContributor:       strings.TrimSpace(d.CSTNonContributor),
		RateContributor:         decimal.NewFromFloat(d.RateContributor),
		RateNonContributor:      decimal.NewFromFloat(d.RateNonContributor),
		ReductionContributor:    decimal.NewFromFloat(d.ReductionContributor),
		ReductionNonContributor: decimal.NewFromFloat(d.ReductionNonContributor),
		STFlag:                  entity.ParseSTFlag(d.STFlag),
		InternalRate:            decimal.NewFromFloat(d.InternalRate),
		CSTSimples:              strings.TrimSpace(d.CSTSimples),
		RateSimples:             floatPtr(d.RateSimples),
		ReductionSimples:        floatPtr(d.ReductionSimples),
		STFlagSimples:           entity.ParseSTFlag(d.STFlagSimples),
		InternalRateSimples:     floatPtr(d.InternalRateSimples),
		Surcharge:               d.Surcharge,
	}
}

func floatPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	v := decimal.NewFromFloat(*f)
	return &v
}
