package bootstrap

import (
	"context"
	"fmt"

	"github.com/Domenick1991/railbooking/api"
	"github.com/Domenick1991/railbooking/config"
	"github.com/Domenick1991/railbooking/internal/auth"
	"github.com/Domenick1991/railbooking/internal/authz"
	"github.com/Domenick1991/railbooking/internal/cache"
	"github.com/Domenick1991/railbooking/internal/kafka"
	"github.com/Domenick1991/railbooking/internal/media"
	"github.com/Domenick1991/railbooking/internal/repository"
	"github.com/Domenick1991/railbooking/internal/repository/memory"
	"github.com/Domenick1991/railbooking/internal/service/catalog"
	"github.com/Domenick1991/railbooking/internal/service/orders"
	"github.com/Domenick1991/railbooking/internal/service/trips"
	"github.com/rs/zerolog/log"
)

type repositories struct {
	stations   repository.StationRepository
	trainTypes repository.TrainTypeRepository
	trains     repository.TrainRepository
	routes     repository.RouteRepository
	crew       repository.CrewRepository
	trips      repository.TripRepository
	orders     repository.OrderRepository
}

// Container holds the wired services of one process and the resources they own.
type Container struct {
	Catalog *catalog.CatalogService
	Trips   *trips.TripService
	Orders  *orders.OrderService
	Images  *media.LocalStore

	checks  map[string]api.HealthCheck
	closers []func()
}

// NewContainer connects to the configured backends and builds the services.
// Redis and kafka are optional: without them orders are created without
// idempotency keys and without events.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{checks: map[string]api.HealthCheck{}}

	repos, err := c.openRepositories(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	var orderOpts []orders.OrderServiceOption
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis)
		c.checks["redis"] = redisCache.Ping
		c.closers = append(c.closers, func() { _ = redisCache.Close() })
		orderOpts = append(orderOpts, orders.WithIdempotency(redisCache))
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.OrdersTopic != "" {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		c.closers = append(c.closers, func() { _ = producer.Close() })
		orderOpts = append(orderOpts,
			orders.WithEvents(producer, cfg.Kafka.OrdersTopic),
			orders.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}

	c.Images = media.NewLocalStore(cfg.Media)
	c.Catalog = catalog.NewCatalogService(catalog.Repositories{
		Stations:   repos.stations,
		TrainTypes: repos.trainTypes,
		Trains:     repos.trains,
		Routes:     repos.routes,
		Crew:       repos.crew,
	}, c.Images)
	c.Trips = trips.NewTripService(repos.trips, repos.routes, repos.trains, repos.trainTypes, repos.crew)
	c.Orders = orders.NewOrderService(repos.orders, repos.trips, orderOpts...)

	return c, nil
}

func (c *Container) openRepositories(ctx context.Context, cfg config.DatabaseConfig) (*repositories, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn().Msg("using in-memory storage, data is lost on exit")
		store := memory.NewStore()
		return &repositories{
			stations:   store.Stations(),
			trainTypes: store.TrainTypes(),
			trains:     store.Trains(),
			routes:     store.Routes(),
			crew:       store.Crew(),
			trips:      store.Trips(),
			orders:     store.Orders(),
		}, nil
	}

	pool, err := repository.Connect(ctx, cfg.DSN(), cfg.ConnectTimeout())
	if err != nil {
		return nil, err
	}
	c.checks["postgres"] = pool.Ping
	c.closers = append(c.closers, pool.Close)

	return &repositories{
		stations:   repository.NewStationRepository(pool),
		trainTypes: repository.NewTrainTypeRepository(pool),
		trains:     repository.NewTrainRepository(pool),
		routes:     repository.NewRouteRepository(pool),
		crew:       repository.NewCrewRepository(pool),
		trips:      repository.NewTripRepository(pool),
		orders:     repository.NewOrderRepository(pool),
	}, nil
}

// APIDeps wires authentication and authorization around the container's services.
func (c *Container) APIDeps(ctx context.Context, cfg *config.Config) (*api.Deps, error) {
	authenticator, err := auth.NewAuthenticator(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("build authenticator: %w", err)
	}
	authorizer, err := authz.NewAuthorizer(ctx)
	if err != nil {
		return nil, fmt.Errorf("build authorizer: %w", err)
	}

	return &api.Deps{
		Stations:      c.Catalog,
		Trains:        c.Catalog,
		Routes:        c.Catalog,
		Crew:          c.Catalog,
		Trips:         c.Trips,
		Orders:        c.Orders,
		Images:        c.Images,
		Authenticator: authenticator,
		Authorizer:    authorizer,
		AllowOrigins:  cfg.HTTP.AllowOrigins,
		MediaDir:      c.Images.Dir(),
		MediaURL:      cfg.Media.BaseURL,
		Checks:        c.checks,
	}, nil
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
