package domain

import (
	"time"

	"github.com/google/uuid"
)

type SaleStatus string

const (
	SaleNotOnSale SaleStatus = "NOT_ON_SALE"
	SaleOnSale    SaleStatus = "ON_SALE"
	SaleSoldOut   SaleStatus = "SOLD_OUT"
	SaleEnded     SaleStatus = "ENDED"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

type TicketType string

const (
	TicketGeneral  TicketType = "GENERAL"
	TicketReserved TicketType = "RESERVED"
)

type Performance struct {
	ID               int64
	Title            string
	Volume           string
	Date             time.Time
	DoorsOpen        string
	StartTime        string
	VenueName        string
	VenueAddress     string
	GeneralPrice     int
	ReservedPrice    int
	GeneralCapacity  int
	ReservedCapacity int
	GeneralSold      int
	ReservedSold     int
	SaleStatus       SaleStatus
	CreatedAt        time.Time
}

// GeneralRemaining is derived from capacity and issued tickets, never stored.
func (p *Performance) GeneralRemaining() int {
	if n := p.GeneralCapacity - p.GeneralSold; n > 0 {
		return n
	}
	return 0
}

func (p *Performance) ReservedRemaining() int {
	if n := p.ReservedCapacity - p.ReservedSold; n > 0 {
		return n
	}
	return 0
}

func (p *Performance) OnSale() bool {
	return p.SaleStatus == SaleOnSale
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type Order struct {
	ID                     uuid.UUID
	PerformanceID          int64
	GeneralQuantity        int
	ReservedQuantity       int
	GeneralUnitPrice       int
	ReservedUnitPrice      int
	ExchangeCodes          []string
	DiscountedGeneralCount int
	DiscountAmount         int
	TotalAmount            int
	Customer               Customer
	Status                 OrderStatus
	ProviderSessionRef     string
	CreatedAt              time.Time
	PaidAt                 *time.Time
	CancelledAt            *time.Time
}

type Ticket struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Code        string
	Type        TicketType
	IsExchanged bool
	IsUsed      bool
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// TicketWithOrder carries the order fields door staff need to resolve a scan.
type TicketWithOrder struct {
	Ticket
	OrderStatus  OrderStatus
	CustomerName string
}

type OrderWithTickets struct {
	Order   Order
	Tickets []Ticket
}

// ConfirmedOrder is the result of the PENDING to PAID commit.
type ConfirmedOrder struct {
	Order   Order
	Tickets []Ticket
	// AlreadyPaid is set when a duplicate confirmation arrived for an order
	// that is already PAID; nothing was changed and no tickets were issued.
	AlreadyPaid bool
}

type ExchangeCode struct {
	ID              int64
	Code            string
	PerformerName   string
	Redeemed        bool
	RedeemedAt      *time.Time
	RedeemedByOrder *uuid.UUID
	CreatedAt       time.Time
}

// CheckInStats is a derived view over used tickets; it is recomputed from
// ticket rows and never written directly.
type CheckInStats struct {
	TotalCheckedIn    int64 `json:"totalCheckedIn"`
	GeneralCheckedIn  int64 `json:"generalCheckedIn"`
	ReservedCheckedIn int64 `json:"reservedCheckedIn"`
}

type TicketTotals struct {
	TotalTickets  int64 `json:"totalTickets"`
	UsedTickets   int64 `json:"usedTickets"`
	UnusedTickets int64 `json:"unusedTickets"`
	GeneralTotal  int64 `json:"generalTotal"`
	GeneralUsed   int64 `json:"generalUsed"`
	ReservedTotal int64 `json:"reservedTotal"`
	ReservedUsed  int64 `json:"reservedUsed"`
}

type SalesStats struct {
	TotalOrders            int64 `json:"totalOrders"`
	TotalRevenue           int64 `json:"totalRevenue"`
	TotalTickets           int64 `json:"totalTickets"`
	TotalGeneralTickets    int64 `json:"totalGeneralTickets"`
	TotalReservedTickets   int64 `json:"totalReservedTickets"`
	TotalDiscountedTickets int64 `json:"totalDiscountedTickets"`
}
