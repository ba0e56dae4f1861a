package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dairyledger/internal/core/id"
	"dairyledger/internal/core/types"
)

func TestSetApplied_DerivesStatus(t *testing.T) {
	p := NewPayment(id.New(), types.MustMoney("500"), MethodCash)
	assert.Equal(t, StatusUnallocated, p.AllocationStatus)

	p.SetApplied(types.MustMoney("200"))
	assert.Equal(t, StatusPartiallyApplied, p.AllocationStatus)
	assert.True(t, p.AmountUnapplied.Equal(types.MustMoney("300")))

	p.SetApplied(types.MustMoney("500"))
	assert.Equal(t, StatusFullyApplied, p.AllocationStatus)
	assert.True(t, p.AmountUnapplied.IsZero())
}

// SetApplied must not touch Version: the repository's Update matches on the
// loaded version and does the increment itself.
func TestSetApplied_LeavesVersionToRepository(t *testing.T) {
	p := NewPayment(id.New(), types.MustMoney("500"), MethodCash)
	assert.Equal(t, 1, p.Version)

	p.Version = 3 // as loaded from the row
	p.SetApplied(types.MustMoney("200"))
	assert.Equal(t, 3, p.Version)
}
