package validator

import (
	"testing"

	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	EventName  string `json:"eventName" validate:"required,contract_event"`
	ContractID string `json:"contractId" validate:"required"`
}

func TestValidateRequest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		err := ValidateRequest(envelope{EventName: "paymentContractEvent", ContractID: "c1"})
		assert.NoError(t, err)
	})

	t.Run("unknown event and missing id", func(t *testing.T) {
		err := ValidateRequest(envelope{EventName: "refundEvent"})
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))

		details := ierr.GetReportableDetails(err)
		assert.Contains(t, details, "eventName")
		assert.Contains(t, details, "contractId")
	})
}
