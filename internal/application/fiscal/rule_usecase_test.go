package fiscal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfiscal "github.com/jhoicas/motor-fiscal/internal/application/fiscal"
	"github.com/jhoicas/motor-fiscal/internal/domain"
	"github.com/jhoicas/motor-fiscal/internal/domain/entity"
	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
)

func TestGetRuleItem_IncluyeCatalogo(t *testing.T) {
	f := newFixture()
	f.repo.catalogs[2] = &entity.ICMSRuleCatalog{RuleCode: 2, Description: "Bebidas frias", Surcharge: true}
	resolver := appfiscal.NewRuleResolver(nil, f.local, fiscaldom.DefaultDefaults(), 0, nil)
	uc := appfiscal.NewRuleQueryUseCase(f.repo, resolver, nil)

	out, err := uc.GetRuleItem(context.Background(), 2, "sp", 0)

	require.NoError(t, err)
	assert.Equal(t, "Bebidas frias", out.Description)
	assert.True(t, out.Surcharge)
	assert.Equal(t, "local", out.Step)
	assert.Equal(t, "S", out.STFlag)
}

func TestGetRuleItem_EntradaInvalida(t *testing.T) {
	f := newFixture()
	uc := appfiscal.NewRuleQueryUseCase(f.repo, appfiscal.NewRuleResolver(nil, f.local, fiscaldom.DefaultDefaults(), 0, nil), nil)

	_, err := uc.GetRuleItem(context.Background(), 0, "SP", 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = uc.GetRuleItem(context.Background(), 2, "", 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Empty(t, f.local.seen())
}
