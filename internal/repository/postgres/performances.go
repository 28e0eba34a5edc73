package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calle1003/easel/internal/domain"
	"github.com/calle1003/easel/internal/repository"
)

type PerformanceRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PerformanceRepo) With(db DB) *PerformanceRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PerformanceRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const performanceColumns = `id, title, volume, performance_date, doors_open, start_time,
	venue_name, venue_address, general_price, reserved_price,
	general_capacity, reserved_capacity, general_sold, reserved_sold,
	sale_status, created_at`

// Get retrieves a performance by its ID.
//
// Returns:
//   - *domain.Performance: the performance when found.
//   - error: repository.ErrNotFound if the performance does not exist.
func (r *PerformanceRepo) Get(ctx context.Context, id int64) (*domain.Performance, error) {
	const op = "postgres.PerformanceRepo.Get"

	db := r.handle()

	var p domain.Performance
	err := db.QueryRow(ctx,
		`SELECT `+performanceColumns+` FROM performances WHERE id = $1`,
		id,
	).Scan(
		&p.ID, &p.Title, &p.Volume, &p.Date, &p.DoorsOpen, &p.StartTime,
		&p.VenueName, &p.VenueAddress, &p.GeneralPrice, &p.ReservedPrice,
		&p.GeneralCapacity, &p.ReservedCapacity, &p.GeneralSold, &p.ReservedSold,
		&p.SaleStatus, &p.CreatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &p, nil
}

func (r *PerformanceRepo) List(ctx context.Context) ([]domain.Performance, error) {
	const op = "postgres.PerformanceRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+performanceColumns+` FROM performances ORDER BY performance_date, id`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Performance
	for rows.Next() {
		var p domain.Performance
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Volume, &p.Date, &p.DoorsOpen, &p.StartTime,
			&p.VenueName, &p.VenueAddress, &p.GeneralPrice, &p.ReservedPrice,
			&p.GeneralCapacity, &p.ReservedCapacity, &p.GeneralSold, &p.ReservedSold,
			&p.SaleStatus, &p.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *PerformanceRepo) Create(ctx context.Context, p *domain.Performance) (int64, error) {
	const op = "postgres.PerformanceRepo.Create"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO performances(
			title, volume, performance_date, doors_open, start_time,
			venue_name, venue_address, general_price, reserved_price,
			general_capacity, reserved_capacity, sale_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		p.Title, p.Volume, p.Date, p.DoorsOpen, p.StartTime,
		p.VenueName, p.VenueAddress, p.GeneralPrice, p.ReservedPrice,
		p.GeneralCapacity, p.ReservedCapacity, p.SaleStatus,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *PerformanceRepo) SetSaleStatus(ctx context.Context, id int64, status domain.SaleStatus) error {
	const op = "postgres.PerformanceRepo.SetSaleStatus"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE performances SET sale_status = $2 WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
