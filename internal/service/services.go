package service

import (
	"log/slog"
	"time"

	postgres "github.com/calle1003/easel/internal/repository/postgres"
	redisrepo "github.com/calle1003/easel/internal/repository/redis"
	"github.com/calle1003/easel/internal/service/admin"
	"github.com/calle1003/easel/internal/service/checkin"
	"github.com/calle1003/easel/internal/service/checkout"
	"github.com/calle1003/easel/internal/service/exchange"
	"github.com/calle1003/easel/internal/service/query"
	"github.com/calle1003/easel/internal/service/stats"
)

type Services struct {
	Checkout *checkout.Service
	CheckIn  *checkin.Service
	Exchange *exchange.Service
	Query    *query.Service
	Stats    *stats.Service
	Admin    *admin.Service
}

type Config struct {
	VenueTZ     *time.Location
	MaxPerOrder int
}

func NewServices(
	store *postgres.Store,
	cache *redisrepo.Cache,
	pubsub checkin.StatsPublisher,
	mailer checkout.Mailer,
	logger *slog.Logger,
	cfg Config,
) *Services {
	exchangeSvc := exchange.New(store.Codes())
	return &Services{
		Checkout: checkout.New(store.Performances(), store.Orders(), exchangeSvc, cache, mailer, logger, cfg.MaxPerOrder),
		CheckIn:  checkin.New(store.Tickets(), cache, pubsub, logger, cfg.VenueTZ),
		Exchange: exchangeSvc,
		Query:    query.New(store.Performances(), store.Orders(), store.Tickets(), cache, logger),
		Stats:    stats.New(store.Tickets(), cache, logger, cfg.VenueTZ),
		Admin:    admin.New(store.Orders(), store.Performances(), cache, logger),
	}
}
