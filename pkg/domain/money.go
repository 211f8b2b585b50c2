package domain

import (
	"math"
	"strings"

	dErrors "pawhaven/pkg/domain-errors"
)

// MinAmount is the smallest storable amount; money columns keep two decimals.
const MinAmount = 0.01

// ValidateAmount accepts finite amounts of at least MinAmount.
//
// Errors: CodeValidation naming what (e.g. "donation amount").
func ValidateAmount(what string, amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return dErrors.New(dErrors.CodeValidation, what+" must be a finite number")
	}
	if amount < MinAmount {
		return dErrors.New(dErrors.CodeValidation, what+" must be at least 0.01")
	}
	return nil
}

// NormalizeCurrency upper-cases a three-letter ISO 4217 style code.
//
// Errors: CodeValidation for anything but three ASCII letters.
func NormalizeCurrency(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != 3 {
		return "", dErrors.New(dErrors.CodeValidation, "currency must be a three-letter code")
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return "", dErrors.New(dErrors.CodeValidation, "currency must be a three-letter code")
		}
	}
	return code, nil
}
