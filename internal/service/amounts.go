package service

import (
	"github.com/boddenberg/backoffice-ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// maxAmount bounds a single amount so that stored paise and any running
// invoice total stay well inside int64.
var maxAmount = decimal.New(1, 15)

// validAmount accepts a positive amount with at most two decimal places.
func validAmount(v decimal.NullDecimal) (decimal.Decimal, error) {
	if !v.Valid {
		return decimal.Zero, &domain.ErrValidation{Field: "amount", Message: "is required"}
	}
	if !v.Decimal.IsPositive() {
		return decimal.Zero, &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}
	}
	if err := checkBounds(v.Decimal); err != nil {
		return decimal.Zero, err
	}
	return v.Decimal, nil
}

// validItemAmount accepts any non-zero amount; balance sheet items may be negative.
func validItemAmount(v decimal.NullDecimal) (decimal.Decimal, error) {
	if !v.Valid || v.Decimal.IsZero() {
		return decimal.Zero, &domain.ErrValidation{Field: "amount", Message: "must be a non-zero number"}
	}
	if err := checkBounds(v.Decimal); err != nil {
		return decimal.Zero, err
	}
	return v.Decimal, nil
}

func checkBounds(d decimal.Decimal) error {
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return &domain.ErrValidation{Field: "amount", Message: "must have at most two decimal places"}
	}
	if d.Abs().GreaterThan(maxAmount) {
		return &domain.ErrValidation{Field: "amount", Message: "must not exceed " + maxAmount.String()}
	}
	return nil
}
