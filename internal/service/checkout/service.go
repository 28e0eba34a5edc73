// Package checkout is the purchase pipeline: quote, PENDING order creation,
// and the PAID commit that issues tickets.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/calle1003/easel/internal/domain"
	"github.com/calle1003/easel/internal/pricing"
	"github.com/calle1003/easel/internal/repository"
	redisrepo "github.com/calle1003/easel/internal/repository/redis"
	"github.com/calle1003/easel/internal/service/exchange"
)

type PerformanceStore interface {
	Get(ctx context.Context, id int64) (*domain.Performance, error)
}

type OrderStore interface {
	CreatePending(ctx context.Context, o *domain.Order) error
	ConfirmPaid(
		ctx context.Context,
		orderID uuid.UUID,
		providerRef string,
		issue func(*domain.Order) []domain.Ticket,
	) (*domain.ConfirmedOrder, error)
}

// CodeValidator checks exchange codes without consuming them. Codes are only
// redeemed inside the PAID commit.
type CodeValidator interface {
	ValidateBatch(ctx context.Context, codes []string) ([]exchange.Validation, int, error)
}

// Mailer delivers the purchase confirmation. Implementations must not block
// the caller on SMTP.
type Mailer interface {
	SendPurchaseConfirmation(order domain.Order, tickets []domain.Ticket)
}

type Service struct {
	performances PerformanceStore
	orders       OrderStore
	codes        CodeValidator
	cache        *redisrepo.Cache
	mailer       Mailer
	logger       *slog.Logger
	maxPerOrder  int
}

const defaultMaxPerOrder = 10

func New(
	performances PerformanceStore,
	orders OrderStore,
	codes CodeValidator,
	cache *redisrepo.Cache,
	mailer Mailer,
	logger *slog.Logger,
	maxPerOrder int,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if maxPerOrder <= 0 {
		maxPerOrder = defaultMaxPerOrder
	}
	return &Service{
		performances: performances,
		orders:       orders,
		codes:        codes,
		cache:        cache,
		mailer:       mailer,
		logger:       logger,
		maxPerOrder:  maxPerOrder,
	}
}

type CreateOrderInput struct {
	PerformanceID    int64
	GeneralQuantity  int
	ReservedQuantity int
	ExchangeCodes    []string
	Customer         domain.Customer
}

// CreateResult is the checkout response body. Tickets is populated only for
// zero-total orders, which skip the payment provider and confirm immediately.
type CreateResult struct {
	Order        domain.Order
	AppliedCodes []string
	Tickets      []domain.Ticket
}

// CreateOrder validates the request, reprices it server-side and persists a
// PENDING order. Client-supplied amounts are never trusted; the quote is
// recomputed from the performance's stored prices.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateResult, error) {
	const op = "service.checkout.CreateOrder"

	if err := validateInput(in, s.maxPerOrder); err != nil {
		return nil, err
	}

	perf, err := s.performances.Get(ctx, in.PerformanceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPerformanceNotFound
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !perf.OnSale() {
		return nil, ErrNotOnSale
	}

	validCodes, err := s.checkCodes(ctx, in.ExchangeCodes)
	if err != nil {
		return nil, err
	}

	quote := pricing.Compute(
		in.GeneralQuantity, in.ReservedQuantity,
		perf.GeneralPrice, perf.ReservedPrice,
		len(validCodes),
	)
	applied := validCodes[:quote.DiscountedGeneralCount]

	order := domain.Order{
		ID:                     uuid.New(),
		PerformanceID:          perf.ID,
		GeneralQuantity:        in.GeneralQuantity,
		ReservedQuantity:       in.ReservedQuantity,
		GeneralUnitPrice:       perf.GeneralPrice,
		ReservedUnitPrice:      perf.ReservedPrice,
		ExchangeCodes:          applied,
		DiscountedGeneralCount: quote.DiscountedGeneralCount,
		DiscountAmount:         quote.DiscountAmount,
		TotalAmount:            quote.Total,
		Customer:               in.Customer,
		Status:                 domain.OrderPending,
	}

	if err := s.orders.CreatePending(ctx, &order); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrPerformanceNotFound
		case errors.Is(err, repository.ErrSoldOut):
			return nil, ErrSoldOut
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res := &CreateResult{Order: order, AppliedCodes: applied}

	// A fully discounted order has nothing to charge, so it bypasses the
	// payment provider and commits through the same confirm path.
	if quote.Total == 0 {
		confirmed, err := s.ConfirmPayment(ctx, order.ID, "free:"+order.ID.String())
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		res.Order = confirmed.Order
		res.Tickets = confirmed.Tickets
	}

	return res, nil
}

// ConfirmPayment is the PENDING to PAID commit. It is idempotent: a repeat
// confirmation for an already PAID order reports success without issuing
// tickets a second time.
func (s *Service) ConfirmPayment(
	ctx context.Context,
	orderID uuid.UUID,
	providerRef string,
) (*domain.ConfirmedOrder, error) {
	const op = "service.checkout.ConfirmPayment"

	confirmed, err := s.orders.ConfirmPaid(ctx, orderID, providerRef, domain.PlanTickets)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrOrderNotFound
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, ErrInvalidTransition
		case errors.Is(err, repository.ErrSoldOut):
			return nil, ErrSoldOut
		case errors.Is(err, repository.ErrCodeRedeemed):
			return nil, ErrCodeConflict
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !confirmed.AlreadyPaid {
		s.afterConfirm(ctx, confirmed)
	}

	return confirmed, nil
}

// afterConfirm runs the post-commit side effects. Failures here are logged
// and never surfaced: the order is already PAID.
func (s *Service) afterConfirm(ctx context.Context, c *domain.ConfirmedOrder) {
	if s.cache != nil {
		if err := s.cache.InvalidatePerformance(ctx, c.Order.PerformanceID); err != nil {
			s.logger.Warn("performance cache invalidation failed",
				"performance_id", c.Order.PerformanceID, "error", err)
		}
	}
	if s.mailer != nil {
		s.mailer.SendPurchaseConfirmation(c.Order, c.Tickets)
	}
	s.logger.Info("order confirmed",
		"order_id", c.Order.ID,
		"performance_id", c.Order.PerformanceID,
		"total", c.Order.TotalAmount,
		"tickets", len(c.Tickets))
}

// checkCodes dedupes and validates the submitted codes. Any invalid code
// rejects the whole request; valid codes are returned in submission order.
func (s *Service) checkCodes(ctx context.Context, codes []string) ([]string, error) {
	const op = "service.checkout.checkCodes"

	deduped := exchange.Dedupe(codes)
	if len(deduped) == 0 {
		return nil, nil
	}

	results, _, err := s.codes.ValidateBatch(ctx, deduped)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	valid := make([]string, 0, len(results))
	for _, v := range results {
		if !v.Valid {
			return nil, &InvalidCodeError{Code: v.Code, Reason: v.Reason}
		}
		valid = append(valid, v.Code)
	}
	return valid, nil
}

func validateInput(in CreateOrderInput, maxPerOrder int) error {
	if in.GeneralQuantity < 0 {
		return &ValidationError{Field: "generalQuantity", Msg: "must not be negative"}
	}
	if in.ReservedQuantity < 0 {
		return &ValidationError{Field: "reservedQuantity", Msg: "must not be negative"}
	}
	total := in.GeneralQuantity + in.ReservedQuantity
	if total < 1 {
		return &ValidationError{Field: "quantity", Msg: "order must contain at least one seat"}
	}
	if total > maxPerOrder {
		return &ValidationError{Field: "quantity", Msg: fmt.Sprintf("at most %d seats per order", maxPerOrder)}
	}
	if strings.TrimSpace(in.Customer.Name) == "" {
		return &ValidationError{Field: "customer.name", Msg: "required"}
	}
	if strings.TrimSpace(in.Customer.Email) == "" {
		return &ValidationError{Field: "customer.email", Msg: "required"}
	}
	return nil
}
