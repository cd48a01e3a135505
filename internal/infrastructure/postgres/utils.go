package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// isNoRows indica fila inexistente; los repositorios la traducen a (nil, nil).
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// nullDecimalPtr convierte una columna NUMERIC nullable en puntero (nil = NULL).
func nullDecimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := n.Decimal
	return &v
}
