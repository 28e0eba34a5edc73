package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calle1003/easel/internal/domain"
)

type TicketRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const ticketJoinColumns = `t.id, t.order_id, t.code, t.ticket_type, t.is_exchanged,
	t.is_used, t.used_at, t.created_at, o.status, o.customer_name`

// FindByCode retrieves a ticket and its order context by the scanned code.
//
// Returns:
//   - error: repository.ErrNotFound if no ticket carries the code.
func (r *TicketRepo) FindByCode(ctx context.Context, code string) (*domain.TicketWithOrder, error) {
	const op = "postgres.TicketRepo.FindByCode"

	var t domain.TicketWithOrder
	err := r.handle().QueryRow(ctx,
		`SELECT `+ticketJoinColumns+`
		 FROM tickets t JOIN orders o ON o.id = t.order_id
		 WHERE t.code = $1`,
		code,
	).Scan(
		&t.ID, &t.OrderID, &t.Code, &t.Type, &t.IsExchanged,
		&t.IsUsed, &t.UsedAt, &t.CreatedAt, &t.OrderStatus, &t.CustomerName,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}

// CheckIn flips a ticket to used with a single conditional update keyed on the
// current state, so at most one of any number of concurrent scans of the same
// code can succeed. Admission requires the owning order to be PAID.
//
// Returns:
//   - error: repository.ErrNotFound when the conditional update matched no
//     row; the caller re-reads to tell NotFound / AlreadyUsed / Inadmissible
//     apart and reports the now-current state.
func (r *TicketRepo) CheckIn(ctx context.Context, code string, now time.Time) (*domain.TicketWithOrder, error) {
	const op = "postgres.TicketRepo.CheckIn"

	var t domain.TicketWithOrder
	err := r.handle().QueryRow(ctx,
		`UPDATE tickets t
		 SET is_used = true, used_at = $2
		 FROM orders o
		 WHERE o.id = t.order_id
		   AND t.code = $1
		   AND t.is_used = false
		   AND o.status = $3
		 RETURNING `+ticketJoinColumns,
		code, now, domain.OrderPaid,
	).Scan(
		&t.ID, &t.OrderID, &t.Code, &t.Type, &t.IsExchanged,
		&t.IsUsed, &t.UsedAt, &t.CreatedAt, &t.OrderStatus, &t.CustomerName,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}

// CheckedInSince recomputes the same-day counters from ticket rows. The
// cached copy in Redis is only ever a copy of this query's result.
func (r *TicketRepo) CheckedInSince(ctx context.Context, since time.Time) (*domain.CheckInStats, error) {
	const op = "postgres.TicketRepo.CheckedInSince"

	var s domain.CheckInStats
	err := r.handle().QueryRow(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE ticket_type = $2),
			COUNT(*) FILTER (WHERE ticket_type = $3)
		 FROM tickets
		 WHERE is_used = true AND used_at >= $1`,
		since, domain.TicketGeneral, domain.TicketReserved,
	).Scan(&s.TotalCheckedIn, &s.GeneralCheckedIn, &s.ReservedCheckedIn)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &s, nil
}

func (r *TicketRepo) Totals(ctx context.Context) (*domain.TicketTotals, error) {
	const op = "postgres.TicketRepo.Totals"

	var s domain.TicketTotals
	err := r.handle().QueryRow(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_used),
			COUNT(*) FILTER (WHERE NOT is_used),
			COUNT(*) FILTER (WHERE ticket_type = $1),
			COUNT(*) FILTER (WHERE ticket_type = $1 AND is_used),
			COUNT(*) FILTER (WHERE ticket_type = $2),
			COUNT(*) FILTER (WHERE ticket_type = $2 AND is_used)
		 FROM tickets`,
		domain.TicketGeneral, domain.TicketReserved,
	).Scan(
		&s.TotalTickets, &s.UsedTickets, &s.UnusedTickets,
		&s.GeneralTotal, &s.GeneralUsed, &s.ReservedTotal, &s.ReservedUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &s, nil
}
