// Package yaml carga los archivos YAML del motor: constantes fiscales y reglas de auditoría.
package yaml

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/motor-fiscal/internal/infrastructure/jsonlogic"
)

// defaultsFile campos opcionales: lo que no viene se conserva del valor base.
type defaultsFile struct {
	HomeState           *string  `yaml:"home_state"`
	DefaultCST          *string  `yaml:"default_cst"`
	DefaultICMSRate     *float64 `yaml:"default_icms_rate"`
	DefaultOrigin       *string  `yaml:"default_origin"`
	PISRate             *float64 `yaml:"pis_rate"`
	COFINSRate          *float64 `yaml:"cofins_rate"`
	STCodes             []string `yaml:"st_codes"`
	IncompatibleSTCodes []string `yaml:"incompatible_st_codes"`
	WithheldSTCodes     []string `yaml:"withheld_st_codes"`
	ImportedOrigins     []string `yaml:"imported_origins"`
}

// LoadDefaults superpone el archivo sobre base. path vacío devuelve base sin cambios.
func LoadDefaults(path string, base fiscaldom.Defaults) (fiscaldom.Defaults, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("leer defaults %s: %w", path, err)
	}
	var f defaultsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return base, fmt.Errorf("parsear defaults %s: %w", path, err)
	}

	out := base
	if f.HomeState != nil {
		out.HomeState = strings.ToUpper(strings.TrimSpace(*f.HomeState))
	}
	if f.DefaultCST != nil {
		out.DefaultCST = strings.TrimSpace(*f.DefaultCST)
	}
	if f.DefaultOrigin != nil {
		out.DefaultOrigin = strings.TrimSpace(*f.DefaultOrigin)
	}
	setRate(&out.DefaultICMSRate, f.DefaultICMSRate)
	setRate(&out.PISRate, f.PISRate)
	setRate(&out.COFINSRate, f.COFINSRate)
	setCodes(&out.STCodes, f.STCodes)
	setCodes(&out.IncompatibleSTCodes, f.IncompatibleSTCodes)
	setCodes(&out.WithheldSTCodes, f.WithheldSTCodes)
	setCodes(&out.ImportedOrigins, f.ImportedOrigins)

	for name, r := range map[string]decimal.Decimal{
		"default_icms_rate": out.DefaultICMSRate,
		"pis_rate":          out.PISRate,
		"cofins_rate":       out.COFINSRate,
	} {
		if r.IsNegative() {
			return base, fmt.Errorf("defaults %s: %s no puede ser negativa", path, name)
		}
	}
	return out, nil
}

// LoadRulePack lee el paquete de reglas de auditoría configurables.
func LoadRulePack(path string) (jsonlogic.RulePack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return jsonlogic.RulePack{}, fmt.Errorf("leer reglas %s: %w", path, err)
	}
	var pack jsonlogic.RulePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return jsonlogic.RulePack{}, fmt.Errorf("parsear reglas %s: %w", path, err)
	}
	return pack, nil
}

func setRate(dst *decimal.Decimal, v *float64) {
	if v != nil {
		*dst = decimal.NewFromFloat(*v)
	}
}

func setCodes(dst *[]string, v []string) {
	if v == nil {
		return
	}
	codes := make([]string, 0, len(v))
	for _, c := range v {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	*dst = codes
}
