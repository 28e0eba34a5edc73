// Package checkin converts a scanned ticket code into an authoritative,
// idempotent entry decision. The used flip is a single conditional
// write, so two door stations scanning the same code within milliseconds
// produce exactly one admission.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calle1003/easel/internal/domain"
	"github.com/calle1003/easel/internal/repository"
	redisrepo "github.com/calle1003/easel/internal/repository/redis"
)

// TicketStore is the slice of the ticket repository the engine needs.
// CheckIn must be atomic: it commits the transition only when the ticket is
// unused and its order is PAID, and returns repository.ErrNotFound when the
// conditional write matched nothing.
type TicketStore interface {
	FindByCode(ctx context.Context, code string) (*domain.TicketWithOrder, error)
	CheckIn(ctx context.Context, code string, now time.Time) (*domain.TicketWithOrder, error)
}

type Service struct {
	tickets TicketStore
	cache   *redisrepo.Cache
	pubsub  StatsPublisher
	logger  *slog.Logger
	tz      *time.Location
	now     func() time.Time
}

type StatsPublisher interface {
	PublishCheckIn(ctx context.Context, ticketType string) error
}

func New(
	tickets TicketStore,
	cache *redisrepo.Cache,
	pubsub StatsPublisher,
	logger *slog.Logger,
	tz *time.Location,
) *Service {
	if tz == nil {
		tz = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		tickets: tickets,
		cache:   cache,
		pubsub:  pubsub,
		logger:  logger,
		tz:      tz,
		now:     time.Now,
	}
}

// Result is what door staff see. On AlreadyUsed failures Ticket is still
// populated so the staff can show who checked in and when.
type Result struct {
	Ticket      *domain.TicketWithOrder
	CheckedInAt time.Time
}

// CheckIn commits entry for the ticket carrying code.
//
// Returns:
//   - checkin.ErrTicketNotFound: no ticket carries the code.
//   - checkin.ErrInadmissible: the owning order is not PAID.
//   - checkin.ErrAlreadyUsed (wrapped in *AlreadyUsedError): the ticket was
//     used before this call, including losing a race against a concurrent
//     scan of the same code.
func (s *Service) CheckIn(ctx context.Context, code string) (*Result, error) {
	const op = "service.checkin.CheckIn"

	now := s.now()

	t, err := s.tickets.CheckIn(ctx, code, now)
	if err == nil {
		s.afterCheckIn(ctx, t)
		return &Result{Ticket: t, CheckedInAt: now}, nil
	}

	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// The commit matched nothing. Re-read and report the now-current truth:
	// if we lost a race against another station this reports AlreadyUsed with
	// the winner's timestamp, never a blind retry of the commit.
	cur, err := s.tickets.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTicketNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cur.IsUsed {
		return nil, fmt.Errorf("%s: %w", op, &AlreadyUsedError{Ticket: cur})
	}

	return nil, fmt.Errorf("%s: %w", op, ErrInadmissible)
}

// Verify is the read-only preview of the same decision. It never mutates and
// its answer is advisory: only a CheckIn commit authorizes entry.
func (s *Service) Verify(ctx context.Context, code string) (*domain.TicketWithOrder, error) {
	const op = "service.checkin.Verify"

	t, err := s.tickets.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTicketNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if t.IsUsed {
		return nil, fmt.Errorf("%s: %w", op, &AlreadyUsedError{Ticket: t})
	}

	if t.OrderStatus != domain.OrderPaid {
		return nil, fmt.Errorf("%s: %w", op, ErrInadmissible)
	}

	return t, nil
}

func (s *Service) afterCheckIn(ctx context.Context, t *domain.TicketWithOrder) {
	if s.cache != nil {
		day := s.now().In(s.tz).Format("2006-01-02")
		if err := s.cache.InvalidateStats(ctx, day); err != nil {
			s.logger.Warn("stats cache invalidation failed", "error", err)
		}
	}

	if s.pubsub != nil {
		if err := s.pubsub.PublishCheckIn(ctx, string(t.Type)); err != nil {
			s.logger.Warn("check-in publish failed", "error", err)
		}
	}
}

// AlreadyUsedError carries the original check-in context for staff display.
type AlreadyUsedError struct {
	Ticket *domain.TicketWithOrder
}

func (e *AlreadyUsedError) Error() string {
	if e.Ticket != nil && e.Ticket.UsedAt != nil {
		return fmt.Sprintf("ticket already used at %s", e.Ticket.UsedAt.Format(time.RFC3339))
	}
	return "ticket already used"
}

func (e *AlreadyUsedError) Unwrap() error { return ErrAlreadyUsed }
