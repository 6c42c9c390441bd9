package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sechaba-labs/storefront/internal/domain/money"
)

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		wantField string
	}{
		{
			name:   "empty policy is valid",
			policy: Policy{},
		},
		{
			name: "valid deposits and installments",
			policy: Policy{
				AllowDeposits:          true,
				DepositPercentages:     []money.Percentage{20, 50},
				AllowInstallments:      true,
				InstallmentPercentages: []money.Percentage{30, 60},
			},
		},
		{
			name:      "deposits allowed without percentages",
			policy:    Policy{AllowDeposits: true},
			wantField: "deposit_percentages",
		},
		{
			name:      "installments allowed without percentages",
			policy:    Policy{AllowInstallments: true},
			wantField: "installment_percentages",
		},
		{
			name: "deposit of 100 percent rejected",
			policy: Policy{
				AllowDeposits:      true,
				DepositPercentages: []money.Percentage{100},
			},
			wantField: "deposit_percentages",
		},
		{
			name: "zero installment rejected",
			policy: Policy{
				AllowInstallments:      true,
				InstallmentPercentages: []money.Percentage{0},
			},
			wantField: "installment_percentages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}
