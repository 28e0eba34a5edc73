package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsPubSub fans out check-in events so door-station UIs can refresh their
// counters without polling.
type StatsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewStatsPubSub(rdb *redis.Client) *StatsPubSub {
	return &StatsPubSub{
		rdb:     rdb,
		channel: ChannelStatsChanged(),
	}
}

type checkInMsg struct {
	Type       string `json:"type"`
	TicketType string `json:"ticket_type"`
	TsUnix     int64  `json:"ts_unix"`
}

func (p *StatsPubSub) PublishCheckIn(ctx context.Context, ticketType string) error {
	msg := checkInMsg{
		Type:       "checked_in",
		TicketType: ticketType,
		TsUnix:     time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *StatsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ticketType string)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev checkInMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.Type == "checked_in" {
				handler(ctx, ev.TicketType)
			}
		}
	}
}
