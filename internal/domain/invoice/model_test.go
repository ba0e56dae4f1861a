package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dairyledger/internal/core/entity"
	"dairyledger/internal/core/types"
)

// ApplyPayment and SetAmountPaid must not touch Version: the repository's
// Update matches on the loaded version and does the increment itself.
func TestApplyPayment_LeavesVersionToRepository(t *testing.T) {
	inv := &Invoice{
		Document:   entity.NewDocument(),
		GrandTotal: types.MustMoney("800"),
		AmountPaid: types.ZeroMoney(),
	}
	inv.Version = 3 // as loaded from the row

	inv.ApplyPayment(types.MustMoney("500"))
	assert.Equal(t, 3, inv.Version)
	assert.Equal(t, StatusPartiallyPaid, inv.Status)
	assert.True(t, inv.AmountOutstanding.Equal(types.MustMoney("300")))

	inv.SetAmountPaid(types.ZeroMoney())
	assert.Equal(t, 3, inv.Version)
}
