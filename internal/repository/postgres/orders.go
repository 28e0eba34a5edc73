package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calle1003/easel/internal/domain"
	"github.com/calle1003/easel/internal/repository"
)

type OrderRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OrderRepo) With(db DB) *OrderRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OrderRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const orderColumns = `id, performance_id, general_quantity, reserved_quantity,
	general_unit_price, reserved_unit_price, exchange_codes,
	discounted_general_count, discount_amount, total_amount,
	customer_name, customer_email, customer_phone,
	status, provider_session_ref, created_at, paid_at, cancelled_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.PerformanceID, &o.GeneralQuantity, &o.ReservedQuantity,
		&o.GeneralUnitPrice, &o.ReservedUnitPrice, &o.ExchangeCodes,
		&o.DiscountedGeneralCount, &o.DiscountAmount, &o.TotalAmount,
		&o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
		&o.Status, &o.ProviderSessionRef, &o.CreatedAt, &o.PaidAt, &o.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreatePending inserts a PENDING order after re-checking that the performance
// still has enough seats of each type. Inventory is NOT decremented here:
// seats are committed only when the order turns PAID, so abandoned carts never
// hold inventory.
//
// Returns:
//   - error: repository.ErrNotFound if the performance does not exist.
//   - error: repository.ErrSoldOut if remaining inventory is insufficient.
//   - error: repository.ErrConflict on a duplicate provider session ref.
func (r *OrderRepo) CreatePending(ctx context.Context, o *domain.Order) error {
	const op = "postgres.OrderRepo.CreatePending"

	if r.db != nil {
		if err := r.createPendingCore(ctx, r.db, o); err != nil {
			return fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	if err := r.createPendingCore(ctx, tx, o); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *OrderRepo) createPendingCore(ctx context.Context, db DB, o *domain.Order) error {
	var generalRemaining, reservedRemaining int
	err := db.QueryRow(ctx,
		`SELECT general_capacity - general_sold, reserved_capacity - reserved_sold
		 FROM performances WHERE id = $1`,
		o.PerformanceID,
	).Scan(&generalRemaining, &reservedRemaining)
	if err != nil {
		return err
	}

	if generalRemaining < o.GeneralQuantity || reservedRemaining < o.ReservedQuantity {
		return repository.ErrSoldOut
	}

	_, err = db.Exec(ctx,
		`INSERT INTO orders(
			id, performance_id, general_quantity, reserved_quantity,
			general_unit_price, reserved_unit_price, exchange_codes,
			discounted_general_count, discount_amount, total_amount,
			customer_name, customer_email, customer_phone,
			status, provider_session_ref)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.PerformanceID, o.GeneralQuantity, o.ReservedQuantity,
		o.GeneralUnitPrice, o.ReservedUnitPrice, o.ExchangeCodes,
		o.DiscountedGeneralCount, o.DiscountAmount, o.TotalAmount,
		o.Customer.Name, o.Customer.Email, o.Customer.Phone,
		domain.OrderPending, o.ProviderSessionRef,
	)

	return err
}

// ConfirmPaid applies the PENDING to PAID transition as one atomic unit:
// conditional status flip, inventory decrement, exchange-code redemption and
// ticket issuance all commit or roll back together. A second call for the
// same order is a no-op success (at-least-once callback delivery).
//
// Returns:
//   - error: repository.ErrNotFound if the order does not exist.
//   - error: repository.ErrInvalidTransition if the order is CANCELLED/REFUNDED.
//   - error: repository.ErrSoldOut if inventory ran out before confirmation.
//   - error: repository.ErrCodeRedeemed if an applied code was redeemed by
//     another order in the meantime.
func (r *OrderRepo) ConfirmPaid(
	ctx context.Context,
	orderID uuid.UUID,
	providerRef string,
	issue func(o *domain.Order) []domain.Ticket,
) (*domain.ConfirmedOrder, error) {
	const op = "postgres.OrderRepo.ConfirmPaid"

	if r.db != nil {
		res, err := r.confirmPaidCore(ctx, r.db, orderID, providerRef, issue)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return res, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	res, err := r.confirmPaidCore(ctx, tx, orderID, providerRef, issue)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return res, nil
}

func (r *OrderRepo) confirmPaidCore(
	ctx context.Context,
	db DB,
	orderID uuid.UUID,
	providerRef string,
	issue func(o *domain.Order) []domain.Ticket,
) (*domain.ConfirmedOrder, error) {
	row := db.QueryRow(ctx,
		`UPDATE orders
		 SET status = $2, paid_at = now(), provider_session_ref = COALESCE(NULLIF($3, ''), provider_session_ref)
		 WHERE id = $1 AND status = $4
		 RETURNING `+orderColumns,
		orderID, domain.OrderPaid, providerRef, domain.OrderPending,
	)

	o, err := scanOrder(row)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		// The conditional update matched nothing: report the now-current truth.
		cur, err := r.getCore(ctx, db, orderID)
		if err != nil {
			return nil, err
		}
		if cur.Status == domain.OrderPaid {
			return &domain.ConfirmedOrder{Order: *cur, AlreadyPaid: true}, nil
		}
		return nil, repository.ErrInvalidTransition
	}

	// Seats are reserved here, not at cart time; the conditional update keeps
	// the counters from ever exceeding capacity.
	tag, err := db.Exec(ctx,
		`UPDATE performances
		 SET general_sold = general_sold + $2, reserved_sold = reserved_sold + $3
		 WHERE id = $1
		   AND general_capacity - general_sold >= $2
		   AND reserved_capacity - reserved_sold >= $3`,
		o.PerformanceID, o.GeneralQuantity, o.ReservedQuantity,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, repository.ErrSoldOut
	}

	if len(o.ExchangeCodes) > 0 {
		tag, err := db.Exec(ctx,
			`UPDATE exchange_codes
			 SET redeemed = true, redeemed_at = now(), redeemed_by_order = $2
			 WHERE code = ANY($1) AND redeemed = false`,
			o.ExchangeCodes, o.ID,
		)
		if err != nil {
			return nil, err
		}
		if int(tag.RowsAffected()) != len(o.ExchangeCodes) {
			return nil, repository.ErrCodeRedeemed
		}
	}

	tickets := issue(o)

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(
			`INSERT INTO tickets(id, order_id, code, ticket_type, is_exchanged)
			 VALUES ($1, $2, $3, $4, $5)`,
			t.ID, t.OrderID, t.Code, t.Type, t.IsExchanged,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return nil, err
	}

	return &domain.ConfirmedOrder{Order: *o, Tickets: tickets}, nil
}

// SetStatus performs a staff-initiated transition, validated against the
// legal-transition table. The update is conditional on the expected current
// status; losing that race yields ErrConflict.
func (r *OrderRepo) SetStatus(
	ctx context.Context,
	orderID uuid.UUID,
	from, to domain.OrderStatus,
	now time.Time,
) (*domain.Order, error) {
	const op = "postgres.OrderRepo.SetStatus"

	db := r.handle()

	var cancelledAt *time.Time
	if to == domain.OrderCancelled {
		cancelledAt = &now
	}

	row := db.QueryRow(ctx,
		`UPDATE orders
		 SET status = $3, cancelled_at = COALESCE($4, cancelled_at)
		 WHERE id = $1 AND status = $2
		 RETURNING `+orderColumns,
		orderID, from, to, cancelledAt,
	)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return o, nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgres.OrderRepo.Get"

	o, err := r.getCore(ctx, r.handle(), id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return o, nil
}

func (r *OrderRepo) getCore(ctx context.Context, db DB, id uuid.UUID) (*domain.Order, error) {
	return scanOrder(db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id,
	))
}

func (r *OrderRepo) GetByProviderRef(ctx context.Context, ref string) (*domain.Order, error) {
	const op = "postgres.OrderRepo.GetByProviderRef"

	o, err := scanOrder(r.handle().QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE provider_session_ref = $1`, ref,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return o, nil
}

func (r *OrderRepo) GetWithTickets(ctx context.Context, id uuid.UUID) (*domain.OrderWithTickets, error) {
	const op = "postgres.OrderRepo.GetWithTickets"

	db := r.handle()

	o, err := r.getCore(ctx, db, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	rows, err := db.Query(ctx,
		`SELECT id, order_id, code, ticket_type, is_exchanged, is_used, used_at, created_at
		 FROM tickets WHERE order_id = $1 ORDER BY created_at, id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	defer rows.Close()

	out := &domain.OrderWithTickets{Order: *o}
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(
			&t.ID, &t.OrderID, &t.Code, &t.Type, &t.IsExchanged,
			&t.IsUsed, &t.UsedAt, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out.Tickets = append(out.Tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *OrderRepo) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	const op = "postgres.OrderRepo.ListByStatus"

	rows, err := r.handle().Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at DESC`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// CancelStale flips PENDING orders older than the cutoff to CANCELLED. Run by
// the sweeper; safe against concurrent confirmations because confirmation is
// conditional on status PENDING.
func (r *OrderRepo) CancelStale(ctx context.Context, olderThan time.Time) (int64, error) {
	const op = "postgres.OrderRepo.CancelStale"

	tag, err := r.handle().Exec(ctx,
		`UPDATE orders
		 SET status = $2, cancelled_at = now()
		 WHERE status = $1 AND created_at < $3`,
		domain.OrderPending, domain.OrderCancelled, olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// SalesStats aggregates over PAID orders only.
func (r *OrderRepo) SalesStats(ctx context.Context) (*domain.SalesStats, error) {
	const op = "postgres.OrderRepo.SalesStats"

	var s domain.SalesStats
	err := r.handle().QueryRow(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(general_quantity + reserved_quantity), 0),
			COALESCE(SUM(general_quantity), 0),
			COALESCE(SUM(reserved_quantity), 0),
			COALESCE(SUM(discounted_general_count), 0)
		 FROM orders WHERE status = $1`,
		domain.OrderPaid,
	).Scan(
		&s.TotalOrders, &s.TotalRevenue, &s.TotalTickets,
		&s.TotalGeneralTickets, &s.TotalReservedTickets, &s.TotalDiscountedTickets,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &s, nil
}
