// Package stats exposes aggregate check-in counters for the staff dashboard.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calle1003/easel/internal/domain"
	redisx "github.com/calle1003/easel/internal/redis"
	redisrepo "github.com/calle1003/easel/internal/repository/redis"
)

// TicketStats is the slice of the ticket repository the service reads from.
type TicketStats interface {
	CheckedInSince(ctx context.Context, since time.Time) (*domain.CheckInStats, error)
	Totals(ctx context.Context) (*domain.TicketTotals, error)
}

type Service struct {
	tickets TicketStats
	cache   *redisrepo.Cache
	logger  *slog.Logger
	tz      *time.Location
	now     func() time.Time
}

// New builds the service. cache may be nil; counters are then computed on
// every call.
func New(tickets TicketStats, cache *redisrepo.Cache, logger *slog.Logger, tz *time.Location) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Service{
		tickets: tickets,
		cache:   cache,
		logger:  logger,
		tz:      tz,
		now:     time.Now,
	}
}

const todayTTL = 5 * time.Second

// Today returns check-in counters for the current venue-local day. The day
// boundary follows the venue timezone, not the server clock's zone.
func (s *Service) Today(ctx context.Context) (*domain.CheckInStats, error) {
	const op = "service.stats.Today"

	now := s.now().In(s.tz)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.tz)
	day := now.Format("2006-01-02")

	if s.cache == nil {
		st, err := s.tickets.CheckedInSince(ctx, midnight)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return st, nil
	}

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyStatsToday(day), todayTTL,
		func(ctx context.Context) (domain.CheckInStats, error) {
			st, err := s.tickets.CheckedInSince(ctx, midnight)
			if err != nil {
				return domain.CheckInStats{}, err
			}
			return *st, nil
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return &out, nil
}

// Totals returns lifetime issued/used counters across all performances.
func (s *Service) Totals(ctx context.Context) (*domain.TicketTotals, error) {
	const op = "service.stats.Totals"

	if s.cache == nil {
		t, err := s.tickets.Totals(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return t, nil
	}

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyStatsTotals(), todayTTL,
		func(ctx context.Context) (domain.TicketTotals, error) {
			t, err := s.tickets.Totals(ctx)
			if err != nil {
				return domain.TicketTotals{}, err
			}
			return *t, nil
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return &out, nil
}
