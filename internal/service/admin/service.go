// Package admin groups the staff-facing management operations: performance
// setup, manual order transitions and sales reporting.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calle1003/easel/internal/domain"
	"github.com/calle1003/easel/internal/repository"
	redisrepo "github.com/calle1003/easel/internal/repository/redis"
)

type OrderStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	SetStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus, now time.Time) (*domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	SalesStats(ctx context.Context) (*domain.SalesStats, error)
}

type PerformanceStore interface {
	Create(ctx context.Context, p *domain.Performance) (int64, error)
	SetSaleStatus(ctx context.Context, id int64, status domain.SaleStatus) error
}

type Service struct {
	orders       OrderStore
	performances PerformanceStore
	cache        *redisrepo.Cache
	logger       *slog.Logger
	now          func() time.Time
}

func New(orders OrderStore, performances PerformanceStore, cache *redisrepo.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		orders:       orders,
		performances: performances,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
	}
}

// SetOrderStatus applies a staff transition. PAID is reachable only through
// payment confirmation, so staff may move orders to CANCELLED or REFUNDED.
func (s *Service) SetOrderStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	const op = "service.admin.SetOrderStatus"

	if !domain.ValidOrderStatus(to) {
		return nil, ErrInvalidStatus
	}
	if to != domain.OrderCancelled && to != domain.OrderRefunded {
		return nil, ErrForbiddenTransition
	}

	cur, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !domain.CanTransition(cur.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrForbiddenTransition, cur.Status, to)
	}

	o, err := s.orders.SetStatus(ctx, orderID, cur.Status, to, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConcurrentChange
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("order status changed",
		"order_id", orderID, "from", cur.Status, "to", to)
	return o, nil
}

// ListOrders returns orders filtered by status, or all PAID orders when the
// filter is empty.
func (s *Service) ListOrders(ctx context.Context, status string) ([]domain.Order, error) {
	const op = "service.admin.ListOrders"

	st := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if st == "" {
		st = domain.OrderPaid
	}
	if !domain.ValidOrderStatus(st) {
		return nil, ErrInvalidStatus
	}

	orders, err := s.orders.ListByStatus(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return orders, nil
}

func (s *Service) SalesStats(ctx context.Context) (*domain.SalesStats, error) {
	const op = "service.admin.SalesStats"

	stats, err := s.orders.SalesStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return stats, nil
}

func (s *Service) CreatePerformance(ctx context.Context, p *domain.Performance) (int64, error) {
	const op = "service.admin.CreatePerformance"

	if p.SaleStatus == "" {
		p.SaleStatus = domain.SaleNotOnSale
	}
	id, err := s.performances.Create(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	s.invalidatePerformances(ctx, id)
	s.logger.Info("performance created", "performance_id", id, "title", p.Title)
	return id, nil
}

func (s *Service) SetSaleStatus(ctx context.Context, id int64, status domain.SaleStatus) error {
	const op = "service.admin.SetSaleStatus"

	switch status {
	case domain.SaleNotOnSale, domain.SaleOnSale, domain.SaleSoldOut, domain.SaleEnded:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.performances.SetSaleStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPerformanceNotFound
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidatePerformances(ctx, id)
	return nil
}

func (s *Service) invalidatePerformances(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePerformance(ctx, id); err != nil {
		s.logger.Warn("performance cache invalidation failed", "performance_id", id, "error", err)
	}
}
