package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pawhaven/pkg/domain-errors"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		valid  bool
	}{
		{name: "whole amount", amount: 100, valid: true},
		{name: "one cent", amount: 0.01, valid: true},
		{name: "zero", amount: 0},
		{name: "negative", amount: -5},
		{name: "below one cent", amount: 0.004},
		{name: "NaN", amount: math.NaN()},
		{name: "+Inf", amount: math.Inf(1)},
		{name: "-Inf", amount: math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount("amount", tt.amount)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}

func TestNormalizeCurrency(t *testing.T) {
	got, err := NormalizeCurrency(" uah ")
	require.NoError(t, err)
	assert.Equal(t, "UAH", got)

	for _, bad := range []string{"", "  ", "US", "EURO", "U$D", "12A", "ÜAH"} {
		_, err := NormalizeCurrency(bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "currency %q", bad)
	}
}
