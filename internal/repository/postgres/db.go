package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

func (s *Store) Performances() *PerformanceRepo { return &PerformanceRepo{pool: s.pool} }
func (s *Store) Orders() *OrderRepo             { return &OrderRepo{pool: s.pool} }
func (s *Store) Tickets() *TicketRepo           { return &TicketRepo{pool: s.pool} }
func (s *Store) Codes() *CodeRepo               { return &CodeRepo{pool: s.pool} }
