package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calle1003/easel/internal/domain"
	"github.com/calle1003/easel/internal/repository"
)

type fakePerformanceStore struct {
	performances map[int64]domain.Performance
}

func (f *fakePerformanceStore) Get(_ context.Context, id int64) (*domain.Performance, error) {
	p, ok := f.performances[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakePerformanceStore) List(_ context.Context) ([]domain.Performance, error) {
	out := make([]domain.Performance, 0, len(f.performances))
	for _, p := range f.performances {
		out = append(out, p)
	}
	return out, nil
}

type fakeOrderStore struct {
	orders map[uuid.UUID]domain.OrderWithTickets
}

func (f *fakeOrderStore) GetWithTickets(_ context.Context, id uuid.UUID) (*domain.OrderWithTickets, error) {
	ot, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ot, nil
}

type fakeTicketStore struct {
	tickets map[string]domain.TicketWithOrder
}

func (f *fakeTicketStore) FindByCode(_ context.Context, code string) (*domain.TicketWithOrder, error) {
	t, ok := f.tickets[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func newTestService(perfs *fakePerformanceStore, orders *fakeOrderStore, tickets *fakeTicketStore) *Service {
	if perfs == nil {
		perfs = &fakePerformanceStore{performances: map[int64]domain.Performance{}}
	}
	if orders == nil {
		orders = &fakeOrderStore{orders: map[uuid.UUID]domain.OrderWithTickets{}}
	}
	if tickets == nil {
		tickets = &fakeTicketStore{tickets: map[string]domain.TicketWithOrder{}}
	}
	return New(perfs, orders, tickets, nil, nil)
}

func TestGetPerformance(t *testing.T) {
	perfs := &fakePerformanceStore{performances: map[int64]domain.Performance{
		7: {ID: 7, Title: "Spring Recital", SaleStatus: domain.SaleOnSale},
	}}
	svc := newTestService(perfs, nil, nil)

	p, err := svc.GetPerformance(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Spring Recital", p.Title)

	_, err = svc.GetPerformance(context.Background(), 99)
	assert.ErrorIs(t, err, ErrPerformanceNotFound)
}

func TestGetOrderIncludesTickets(t *testing.T) {
	orderID := uuid.New()
	orders := &fakeOrderStore{orders: map[uuid.UUID]domain.OrderWithTickets{
		orderID: {
			Order: domain.Order{ID: orderID, Status: domain.OrderPaid},
			Tickets: []domain.Ticket{
				{ID: uuid.New(), OrderID: orderID, Code: uuid.NewString(), Type: domain.TicketGeneral},
			},
		},
	}}
	svc := newTestService(nil, orders, nil)

	ot, err := svc.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Len(t, ot.Tickets, 1)

	_, err = svc.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetTicketResolvesUsedTickets(t *testing.T) {
	usedAt := time.Date(2026, 8, 30, 18, 5, 0, 0, time.UTC)
	code := uuid.NewString()
	tickets := &fakeTicketStore{tickets: map[string]domain.TicketWithOrder{
		code: {
			Ticket: domain.Ticket{Code: code, Type: domain.TicketReserved, IsUsed: true, UsedAt: &usedAt},
		},
	}}
	svc := newTestService(nil, nil, tickets)

	got, err := svc.GetTicket(context.Background(), code)
	require.NoError(t, err)
	assert.True(t, got.IsUsed)

	_, err = svc.GetTicket(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}
