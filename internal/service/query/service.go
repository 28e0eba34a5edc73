// Package query serves the read side of the public API: performance listings
// and order lookups.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calle1003/easel/internal/domain"
	redisx "github.com/calle1003/easel/internal/redis"
	"github.com/calle1003/easel/internal/repository"
	redisrepo "github.com/calle1003/easel/internal/repository/redis"
)

type PerformanceStore interface {
	Get(ctx context.Context, id int64) (*domain.Performance, error)
	List(ctx context.Context) ([]domain.Performance, error)
}

type OrderStore interface {
	GetWithTickets(ctx context.Context, id uuid.UUID) (*domain.OrderWithTickets, error)
}

type TicketStore interface {
	FindByCode(ctx context.Context, code string) (*domain.TicketWithOrder, error)
}

type Service struct {
	performances PerformanceStore
	orders       OrderStore
	tickets      TicketStore
	cache        *redisrepo.Cache
	logger       *slog.Logger
}

func New(performances PerformanceStore, orders OrderStore, tickets TicketStore, cache *redisrepo.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		performances: performances,
		orders:       orders,
		tickets:      tickets,
		cache:        cache,
		logger:       logger,
	}
}

// Listings change only on admin writes and confirmed sales, both of which
// invalidate, so a short TTL is just a backstop.
const performanceTTL = 30 * time.Second

func (s *Service) ListPerformances(ctx context.Context) ([]domain.Performance, error) {
	const op = "service.query.ListPerformances"

	if s.cache == nil {
		list, err := s.performances.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return list, nil
	}

	list, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyPerformanceList(), performanceTTL,
		func(ctx context.Context) ([]domain.Performance, error) {
			return s.performances.List(ctx)
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return list, nil
}

func (s *Service) GetPerformance(ctx context.Context, id int64) (*domain.Performance, error) {
	const op = "service.query.GetPerformance"

	load := func(ctx context.Context) (domain.Performance, error) {
		p, err := s.performances.Get(ctx, id)
		if err != nil {
			return domain.Performance{}, err
		}
		return *p, nil
	}

	if s.cache == nil {
		p, err := load(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrPerformanceNotFound
			}
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return &p, nil
	}

	p, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyPerformanceSummary(id), performanceTTL, load)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPerformanceNotFound
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return &p, nil
}

// GetOrder returns the order with its issued tickets. PENDING orders have no
// tickets yet and return an empty slice.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*domain.OrderWithTickets, error) {
	const op = "service.query.GetOrder"

	ot, err := s.orders.GetWithTickets(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return ot, nil
}

// GetTicket resolves a ticket by its code. Used tickets still resolve; the
// QR image stays renderable after entry.
func (s *Service) GetTicket(ctx context.Context, code string) (*domain.TicketWithOrder, error) {
	const op = "service.query.GetTicket"

	t, err := s.tickets.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return t, nil
}
