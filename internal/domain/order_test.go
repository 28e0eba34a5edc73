package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to OrderStatus }{
		{OrderPending, OrderPaid},
		{OrderPending, OrderCancelled},
		{OrderPaid, OrderRefunded},
	}
	for _, tt := range legal {
		assert.True(t, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	all := []OrderStatus{OrderPending, OrderPaid, OrderCancelled, OrderRefunded}
	for _, from := range all {
		for _, to := range all {
			ok := false
			for _, l := range legal {
				if l.from == from && l.to == to {
					ok = true
				}
			}
			assert.Equal(t, ok, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestPlanTickets(t *testing.T) {
	o := &Order{
		GeneralQuantity:        3,
		ReservedQuantity:       2,
		DiscountedGeneralCount: 2,
	}

	tickets := PlanTickets(o)
	assert.Len(t, tickets, 5)

	var general, reserved, exchanged int
	codes := map[string]bool{}
	for _, tk := range tickets {
		codes[tk.Code] = true
		assert.NotEmpty(t, tk.Code)
		assert.False(t, tk.IsUsed)
		switch tk.Type {
		case TicketGeneral:
			general++
		case TicketReserved:
			reserved++
		}
		if tk.IsExchanged {
			exchanged++
			assert.Equal(t, TicketGeneral, tk.Type, "only general seats are fundable by codes")
		}
	}

	assert.Equal(t, 3, general)
	assert.Equal(t, 2, reserved)
	assert.Equal(t, 2, exchanged)
	assert.Len(t, codes, 5, "ticket codes must be unique")
}
