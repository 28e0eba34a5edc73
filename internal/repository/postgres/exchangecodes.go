package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calle1003/easel/internal/domain"
)

type CodeRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CodeRepo) With(db DB) *CodeRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CodeRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const codeColumns = `id, code, performer_name, redeemed, redeemed_at, redeemed_by_order, created_at`

// Find looks up a code by its normalized (uppercase) form.
//
// Returns:
//   - error: repository.ErrNotFound if the code was never issued.
func (r *CodeRepo) Find(ctx context.Context, code string) (*domain.ExchangeCode, error) {
	const op = "postgres.CodeRepo.Find"

	var c domain.ExchangeCode
	err := r.handle().QueryRow(ctx,
		`SELECT `+codeColumns+` FROM exchange_codes WHERE code = $1`,
		code,
	).Scan(&c.ID, &c.Code, &c.PerformerName, &c.Redeemed, &c.RedeemedAt, &c.RedeemedByOrder, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &c, nil
}

func (r *CodeRepo) Exists(ctx context.Context, code string) (bool, error) {
	const op = "postgres.CodeRepo.Exists"

	var exists bool
	err := r.handle().QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM exchange_codes WHERE code = $1)`,
		code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return exists, nil
}

// Create inserts a new code.
//
// Returns:
//   - error: repository.ErrConflict if the code already exists.
func (r *CodeRepo) Create(ctx context.Context, code, performerName string) (*domain.ExchangeCode, error) {
	const op = "postgres.CodeRepo.Create"

	var c domain.ExchangeCode
	err := r.handle().QueryRow(ctx,
		`INSERT INTO exchange_codes(code, performer_name)
		 VALUES ($1, $2)
		 RETURNING `+codeColumns,
		code, performerName,
	).Scan(&c.ID, &c.Code, &c.PerformerName, &c.Redeemed, &c.RedeemedAt, &c.RedeemedByOrder, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &c, nil
}

// List returns all codes, unredeemed first, newest first within each group.
func (r *CodeRepo) List(ctx context.Context) ([]domain.ExchangeCode, error) {
	const op = "postgres.CodeRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+codeColumns+`
		 FROM exchange_codes
		 ORDER BY redeemed, created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	defer rows.Close()

	var out []domain.ExchangeCode
	for rows.Next() {
		var c domain.ExchangeCode
		if err := rows.Scan(
			&c.ID, &c.Code, &c.PerformerName, &c.Redeemed,
			&c.RedeemedAt, &c.RedeemedByOrder, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}
