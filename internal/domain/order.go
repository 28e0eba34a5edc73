package domain

// orderTransitions is the closed set of legal status changes. PAID is reached
// only through payment confirmation; CANCELLED and REFUNDED are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCancelled},
	OrderPaid:    {OrderRefunded},
}

// CanTransition reports whether the from/to pair is in the transition table.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderPaid, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}
