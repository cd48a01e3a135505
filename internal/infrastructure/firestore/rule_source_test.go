package firestore

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
)

func TestPickForCompany_PrefiereLaEmpresa(t *testing.T) {
	docs := []ruleItemDoc{
		{RuleCode: 2, State: "SP", CompanyID: 0, CSTContributor: "00"},
		{RuleCode: 2, State: "SP", CompanyID: 9, CSTContributor: "20"},
		{RuleCode: 2, State: "SP", CompanyID: 3, CSTContributor: "10"},
	}

	got := pickForCompany(docs, 3)

	require.NotNil(t, got)
	assert.Equal(t, "10", got.CSTContributor)
}

func TestPickForCompany_SinFilaPropiaUsaLaGenerica(t *testing.T) {
	docs := []ruleItemDoc{
		{RuleCode: 2, State: "SP", CompanyID: 9, CSTContributor: "20"},
		{RuleCode: 2, State: "SP", CompanyID: 0, CSTContributor: "00"},
	}

	got := pickForCompany(docs, 3)

	require.NotNil(t, got)
	assert.Equal(t, "00", got.CSTContributor)
}

func TestPickForCompany_SoloOtrasEmpresas(t *testing.T) {
	docs := []ruleItemDoc{{RuleCode: 2, State: "SP", CompanyID: 9}}

	assert.Nil(t, pickForCompany(docs, 3))
	assert.Nil(t, pickForCompany(docs, 0), "sin empresa solo valen las genéricas")
	assert.Nil(t, pickForCompany(nil, 0))
}

func TestToEntity_ConvierteNumeros(t *testing.T) {
	simples, internalSimples := 2.56, 17.0
	doc := ruleItemDoc{
		RuleCode:            2,
		State:               " sp ",
		CSTContributor:      "10 ",
		CSTNonContributor:   "10",
		RateContributor:     12,
		RateNonContributor:  12,
		STFlag:              "s",
		InternalRate:        18,
		CSTSimples:          "201",
		RateSimples:         &simples,
		STFlagSimples:       "N",
		InternalRateSimples: &internalSimples,
		Surcharge:           true,
	}

	it := doc.toEntity()

	assert.Equal(t, "SP", it.State)
	assert.Equal(t, "10", it.CSTContributor)
	assert.Equal(t, entity.STFlagYes, it.STFlag)
	assert.True(t, decimal.NewFromInt(18).Equal(it.InternalRate))
	require.NotNil(t, it.RateSimples)
	assert.True(t, decimal.RequireFromString("2.56").Equal(*it.RateSimples))
	assert.Equal(t, entity.STFlagNo, it.STFlagSimples)
	require.NotNil(t, it.InternalRateSimples)
	assert.True(t, decimal.NewFromInt(17).Equal(*it.InternalRateSimples))
	assert.Nil(t, it.ReductionSimples)
	assert.True(t, it.Surcharge)
}

func TestToEntity_SinSimplesNiFlag(t *testing.T) {
	it := ruleItemDoc{RuleCode: 1, State: "RJ"}.toEntity()

	assert.Nil(t, it.RateSimples)
	assert.Nil(t, it.InternalRateSimples)
	assert.Equal(t, entity.STFlagUnset, it.STFlag)
	assert.Equal(t, entity.STFlagUnset, it.STFlagSimples)
	assert.True(t, it.RateContributor.IsZero())
}
