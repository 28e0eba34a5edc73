package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calle1003/easel/internal/domain"
)

type fakeTicketStats struct {
	lastSince time.Time
	stats     domain.CheckInStats
	totals    domain.TicketTotals
}

func (f *fakeTicketStats) CheckedInSince(_ context.Context, since time.Time) (*domain.CheckInStats, error) {
	f.lastSince = since
	st := f.stats
	return &st, nil
}

func (f *fakeTicketStats) Totals(_ context.Context) (*domain.TicketTotals, error) {
	t := f.totals
	return &t, nil
}

func TestTodayUsesVenueLocalMidnight(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	store := &fakeTicketStats{stats: domain.CheckInStats{TotalCheckedIn: 7, GeneralCheckedIn: 5, ReservedCheckedIn: 2}}
	svc := New(store, nil, nil, tokyo)
	// 2026-08-31 01:30 JST is still 2026-08-30 in UTC.
	svc.now = func() time.Time {
		return time.Date(2026, 8, 30, 16, 30, 0, 0, time.UTC)
	}

	got, err := svc.Today(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.TotalCheckedIn)
	assert.Equal(t, int64(5), got.GeneralCheckedIn)
	assert.Equal(t, int64(2), got.ReservedCheckedIn)

	want := time.Date(2026, 8, 31, 0, 0, 0, 0, tokyo)
	assert.True(t, store.lastSince.Equal(want), "since = %v, want %v", store.lastSince, want)
}

func TestTotals(t *testing.T) {
	store := &fakeTicketStats{totals: domain.TicketTotals{TotalTickets: 10, UsedTickets: 4, UnusedTickets: 6}}
	svc := New(store, nil, nil, nil)

	got, err := svc.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.TotalTickets)
	assert.Equal(t, int64(4), got.UsedTickets)
	assert.Equal(t, int64(6), got.UnusedTickets)
}
