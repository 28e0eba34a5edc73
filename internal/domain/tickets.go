package domain

import "github.com/google/uuid"

// PlanTickets lays out the ticket rows to be issued for an order: one per
// seat, with the first DiscountedGeneralCount general tickets flagged as
// exchanged. The ticket code is the sole check-in credential and must not
// be guessable.
func PlanTickets(o *Order) []Ticket {
	tickets := make([]Ticket, 0, o.GeneralQuantity+o.ReservedQuantity)

	for i := 0; i < o.GeneralQuantity; i++ {
		tickets = append(tickets, Ticket{
			ID:          uuid.New(),
			OrderID:     o.ID,
			Code:        uuid.NewString(),
			Type:        TicketGeneral,
			IsExchanged: i < o.DiscountedGeneralCount,
		})
	}

	for i := 0; i < o.ReservedQuantity; i++ {
		tickets = append(tickets, Ticket{
			ID:      uuid.New(),
			OrderID: o.ID,
			Code:    uuid.NewString(),
			Type:    TicketReserved,
		})
	}

	return tickets
}
