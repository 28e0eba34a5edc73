package checkin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/calle1003/easel/internal/domain"
	"github.com/calle1003/easel/internal/repository"
)

// fakeTicketStore mirrors the conditional-update semantics of the postgres
// repo: CheckIn succeeds at most once per code, under a single mutex.
type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*domain.TicketWithOrder

	findCalls    int
	checkInCalls int
}

func newFakeTicketStore(tickets ...*domain.TicketWithOrder) *fakeTicketStore {
	m := make(map[string]*domain.TicketWithOrder, len(tickets))
	for _, t := range tickets {
		m[t.Code] = t
	}
	return &fakeTicketStore{tickets: m}
}

func (f *fakeTicketStore) FindByCode(_ context.Context, code string) (*domain.TicketWithOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++

	t, ok := f.tickets[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTicketStore) CheckIn(_ context.Context, code string, now time.Time) (*domain.TicketWithOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkInCalls++

	t, ok := f.tickets[code]
	if !ok || t.IsUsed || t.OrderStatus != domain.OrderPaid {
		return nil, repository.ErrNotFound
	}

	t.IsUsed = true
	t.UsedAt = &now
	cp := *t
	return &cp, nil
}

func paidTicket(code string, typ domain.TicketType) *domain.TicketWithOrder {
	return &domain.TicketWithOrder{
		Ticket: domain.Ticket{
			ID:      uuid.New(),
			OrderID: uuid.New(),
			Code:    code,
			Type:    typ,
		},
		OrderStatus:  domain.OrderPaid,
		CustomerName: "Sato Hana",
	}
}

func newService(store TicketStore) *Service {
	return New(store, nil, nil, nil, time.UTC)
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store := newFakeTicketStore(paidTicket("abc", domain.TicketGeneral))
		svc := newService(store)

		res, err := svc.CheckIn(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, res.Ticket.IsUsed)
		assert.NotNil(t, res.Ticket.UsedAt)
		assert.Equal(t, "Sato Hana", res.Ticket.CustomerName)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := newService(newFakeTicketStore())

		_, err := svc.CheckIn(ctx, "missing")
		assert.ErrorIs(t, err, ErrTicketNotFound)
	})

	t.Run("SecondScanReportsAlreadyUsedWithOriginalTimestamp", func(t *testing.T) {
		store := newFakeTicketStore(paidTicket("abc", domain.TicketGeneral))
		svc := newService(store)

		first, err := svc.CheckIn(ctx, "abc")
		require.NoError(t, err)

		_, err = svc.CheckIn(ctx, "abc")
		assert.ErrorIs(t, err, ErrAlreadyUsed)

		var used *AlreadyUsedError
		require.ErrorAs(t, err, &used)
		require.NotNil(t, used.Ticket.UsedAt)
		assert.Equal(t, first.Ticket.UsedAt.UTC(), used.Ticket.UsedAt.UTC())
		assert.Equal(t, "Sato Hana", used.Ticket.CustomerName)
	})

	t.Run("UnpaidOrderIsInadmissible", func(t *testing.T) {
		tk := paidTicket("abc", domain.TicketGeneral)
		tk.OrderStatus = domain.OrderRefunded
		svc := newService(newFakeTicketStore(tk))

		_, err := svc.CheckIn(ctx, "abc")
		assert.ErrorIs(t, err, ErrInadmissible)
	})

	t.Run("ExchangedTicketAdmitsIdentically", func(t *testing.T) {
		tk := paidTicket("abc", domain.TicketGeneral)
		tk.IsExchanged = true
		svc := newService(newFakeTicketStore(tk))

		res, err := svc.CheckIn(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, res.Ticket.IsUsed)
	})
}

func TestCheckInRace(t *testing.T) {
	// Two door stations scan the same QR code at once: exactly one success,
	// the loser sees AlreadyUsed. Run many rounds to shake out interleavings.
	for round := 0; round < 50; round++ {
		store := newFakeTicketStore(paidTicket("abc", domain.TicketGeneral))
		svc := newService(store)

		var successes, alreadyUsed int
		var mu sync.Mutex

		g := new(errgroup.Group)
		for i := 0; i < 2; i++ {
			g.Go(func() error {
				_, err := svc.CheckIn(context.Background(), "abc")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				default:
					var used *AlreadyUsedError
					if assert.ErrorAs(t, err, &used) {
						alreadyUsed++
					}
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		require.Equal(t, 1, successes, "round %d", round)
		require.Equal(t, 1, alreadyUsed, "round %d", round)
	}
}

func TestVerifyNeverMutates(t *testing.T) {
	ctx := context.Background()
	store := newFakeTicketStore(paidTicket("abc", domain.TicketGeneral))
	svc := newService(store)

	for i := 0; i < 5; i++ {
		tk, err := svc.Verify(ctx, "abc")
		require.NoError(t, err)
		assert.False(t, tk.IsUsed)
	}
	assert.Zero(t, store.checkInCalls, "verify must not touch the commit path")

	// The eventual check-in behaves exactly as if no verify had happened.
	res, err := svc.CheckIn(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, res.Ticket.IsUsed)

	_, err = svc.Verify(ctx, "abc")
	assert.ErrorIs(t, err, ErrAlreadyUsed)
}
