package admin

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

type fakeOrderStore struct {
	orders map[uuid.UUID]*domain.Order
}

func (f *fakeOrderStore) Get(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) SetStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus, now time.Time) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok || o.Status != from {
		return nil, repository.ErrConflict
	}
	o.Status = to
	if to == domain.OrderCancelled {
		o.CancelledAt = &now
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) ListByStatus(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) SalesStats(context.Context) (*domain.SalesStats, error) {
	return &domain.SalesStats{TotalOrders: int64(len(f.orders))}, nil
}

type fakePerfStore struct {
	nextID int64
	status map[int64]domain.SaleStatus
}

func (f *fakePerfStore) Create(_ context.Context, p *domain.Performance) (int64, error) {
	f.nextID++
	if f.status == nil {
		f.status = make(map[int64]domain.SaleStatus)
	}
	f.status[f.nextID] = p.SaleStatus
	return f.nextID, nil
}

func (f *fakePerfStore) SetSaleStatus(_ context.Context, id int64, status domain.SaleStatus) error {
	if _, ok := f.status[id]; !ok {
		return repository.ErrNotFound
	}
	f.status[id] = status
	return nil
}

func seedOrder(status domain.OrderStatus) (*fakeOrderStore, uuid.UUID) {
	id := uuid.New()
	return &fakeOrderStore{orders: map[uuid.UUID]*domain.Order{
		id: {ID: id, Status: status},
	}}, id
}

func TestSetOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    domain.OrderStatus
		to      domain.OrderStatus
		wantErr error
	}{
		{"cancel pending", domain.OrderPending, domain.OrderCancelled, nil},
		{"refund paid", domain.OrderPaid, domain.OrderRefunded, nil},
		{"cancel paid", domain.OrderPaid, domain.OrderCancelled, ErrForbiddenTransition},
		{"refund pending", domain.OrderPending, domain.OrderRefunded, ErrForbiddenTransition},
		{"refund refunded", domain.OrderRefunded, domain.OrderRefunded, ErrForbiddenTransition},
		{"staff cannot mark paid", domain.OrderPending, domain.OrderPaid, ErrForbiddenTransition},
		{"garbage status", domain.OrderPending, domain.OrderStatus("SHIPPED"), ErrInvalidStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, id := seedOrder(tc.from)
			svc := New(store, &fakePerfStore{}, nil, nil)

			o, err := svc.SetOrderStatus(context.Background(), id, tc.to)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, o.Status)
		})
	}
}

func TestSetOrderStatusCancelStampsTime(t *testing.T) {
	store, id := seedOrder(domain.OrderPending)
	svc := New(store, &fakePerfStore{}, nil, nil)
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	o, err := svc.SetOrderStatus(context.Background(), id, domain.OrderCancelled)
	require.NoError(t, err)
	require.NotNil(t, o.CancelledAt)
	assert.True(t, o.CancelledAt.Equal(fixed))
}

func TestSetOrderStatusNotFound(t *testing.T) {
	svc := New(&fakeOrderStore{orders: map[uuid.UUID]*domain.Order{}}, &fakePerfStore{}, nil, nil)

	_, err := svc.SetOrderStatus(context.Background(), uuid.New(), domain.OrderCancelled)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSetOrderStatusLostRace(t *testing.T) {
	store, id := seedOrder(domain.OrderPending)
	svc := New(store, &fakePerfStore{}, nil, nil)

	// The order flips to PAID after the read but before the update.
	orig := store.orders[id]
	svc.now = func() time.Time {
		orig.Status = domain.OrderPaid
		return time.Now()
	}

	_, err := svc.SetOrderStatus(context.Background(), id, domain.OrderCancelled)
	assert.ErrorIs(t, err, ErrConcurrentChange)
}

func TestListOrdersDefaultsToPaid(t *testing.T) {
	store, _ := seedOrder(domain.OrderPaid)
	svc := New(store, &fakePerfStore{}, nil, nil)

	orders, err := svc.ListOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = svc.ListOrders(context.Background(), "pending")
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = svc.ListOrders(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSetSaleStatus(t *testing.T) {
	perfs := &fakePerfStore{}
	svc := New(&fakeOrderStore{}, perfs, nil, nil)

	id, err := svc.CreatePerformance(context.Background(), &domain.Performance{Title: "Autumn Live"})
	require.NoError(t, err)
	assert.Equal(t, domain.SaleNotOnSale, perfs.status[id])

	require.NoError(t, svc.SetSaleStatus(context.Background(), id, domain.SaleOnSale))
	assert.Equal(t, domain.SaleOnSale, perfs.status[id])

	err = svc.SetSaleStatus(context.Background(), id, domain.SaleStatus("OPEN"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	err = svc.SetSaleStatus(context.Background(), 999, domain.SaleEnded)
	assert.ErrorIs(t, err, ErrPerformanceNotFound)
}
