package orders

import (
	"context"
	"errors"
	"strconv"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/Domenick1991/railbooking/internal/kafka"
	"github.com/Domenick1991/railbooking/internal/repository"
	"github.com/rs/zerolog/log"
)

type OrderUseCase interface {
	Create(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	ListForUser(ctx context.Context, userID int64) (*OrderHistory, error)
}

// IdempotencyStore remembers which order an Idempotency-Key produced.
type IdempotencyStore interface {
	Reserve(ctx context.Context, userID int64, key string) (orderID int64, reserved bool, err error)
	Bind(ctx context.Context, userID int64, key string, orderID int64) error
	Release(ctx context.Context, userID int64, key string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type TicketInput struct {
	TripID int64 `json:"trip"`
	Cargo  int   `json:"cargo"`
	Seat   int   `json:"seat"`
}

type CreateOrderInput struct {
	UserID         int64
	Tickets        []TicketInput
	IdempotencyKey string
}

// OrderHistory holds a user's orders, newest first, and the list view of
// every trip their tickets reference.
type OrderHistory struct {
	Orders []domain.Order
	Trips  map[int64]domain.TripSummary
}

type OrderServiceOption func(*OrderService)

func WithIdempotency(store IdempotencyStore) OrderServiceOption {
	return func(s *OrderService) {
		s.idempotency = store
	}
}

func WithEvents(producer Producer, ordersTopic string) OrderServiceOption {
	return func(s *OrderService) {
		s.producer = producer
		s.ordersTopic = ordersTopic
	}
}

func WithNotificationsTopic(topic string) OrderServiceOption {
	return func(s *OrderService) {
		s.notificationsTopic = topic
	}
}

type OrderService struct {
	orders             repository.OrderRepository
	trips              repository.TripRepository
	idempotency        IdempotencyStore
	producer           Producer
	ordersTopic        string
	notificationsTopic string
}

func NewOrderService(orders repository.OrderRepository, trips repository.TripRepository, opts ...OrderServiceOption) *OrderService {
	service := &OrderService{orders: orders, trips: trips}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Create validates every requested ticket, then stores the order with all of
// its tickets atomically. With an idempotency key a repeated request returns
// the order created the first time.
func (s *OrderService) Create(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if len(input.Tickets) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	for i, t := range input.Tickets {
		if err := s.validateTicket(ctx, t); err != nil {
			return nil, domain.TicketError(i, err)
		}
	}

	if s.idempotency != nil && input.IdempotencyKey != "" {
		orderID, reserved, err := s.idempotency.Reserve(ctx, input.UserID, input.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if !reserved {
			log.Info().Int64("order_id", orderID).Int64("user_id", input.UserID).Msg("idempotent replay of order")
			return s.orders.GetByID(ctx, input.UserID, orderID)
		}
	}

	order := &domain.Order{UserID: input.UserID, Tickets: make([]domain.Ticket, 0, len(input.Tickets))}
	for _, t := range input.Tickets {
		order.Tickets = append(order.Tickets, domain.Ticket{TripID: t.TripID, Cargo: t.Cargo, Seat: t.Seat})
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.releaseKey(ctx, input)
		return nil, err
	}

	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.Bind(ctx, input.UserID, input.IdempotencyKey, order.ID); err != nil {
			log.Warn().Err(err).Int64("order_id", order.ID).Msg("failed to bind idempotency key")
		}
	}

	if err := s.publish(ctx, order); err != nil {
		log.Warn().Err(err).Int64("order_id", order.ID).Msg("failed to publish order_created event")
	}
	return order, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID int64) (*OrderHistory, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	history := &OrderHistory{Orders: orders, Trips: make(map[int64]domain.TripSummary)}
	seen := make(map[int64]struct{})
	var tripIDs []int64
	for _, o := range orders {
		for _, t := range o.Tickets {
			if _, ok := seen[t.TripID]; !ok {
				seen[t.TripID] = struct{}{}
				tripIDs = append(tripIDs, t.TripID)
			}
		}
	}
	if len(tripIDs) == 0 {
		return history, nil
	}

	summaries, err := s.trips.ListByIDs(ctx, tripIDs)
	if err != nil {
		return nil, err
	}
	for _, summary := range summaries {
		history.Trips[summary.ID] = summary
	}
	return history, nil
}

func (s *OrderService) validateTicket(ctx context.Context, t TicketInput) error {
	if t.TripID <= 0 {
		return domain.NewValidationError("trip", "this field is required")
	}
	train, err := s.trips.TrainForTrip(ctx, t.TripID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.ReferenceError{Field: "trip", ID: t.TripID}
		}
		return err
	}
	return domain.ValidateTicket(t.Cargo, t.Seat, *train)
}

func (s *OrderService) releaseKey(ctx context.Context, input CreateOrderInput) {
	if s.idempotency == nil || input.IdempotencyKey == "" {
		return
	}
	if err := s.idempotency.Release(ctx, input.UserID, input.IdempotencyKey); err != nil {
		log.Warn().Err(err).Int64("user_id", input.UserID).Msg("failed to release idempotency key")
	}
}

func (s *OrderService) publish(ctx context.Context, order *domain.Order) error {
	if s.producer == nil || s.ordersTopic == "" {
		return nil
	}
	event := kafka.OrderEvent{
		Type:      kafka.EventOrderCreated,
		OrderID:   order.ID,
		UserID:    order.UserID,
		CreatedAt: order.CreatedAt,
		Tickets:   make([]kafka.TicketEvent, 0, len(order.Tickets)),
	}
	for _, t := range order.Tickets {
		event.Tickets = append(event.Tickets, kafka.TicketEvent{TripID: t.TripID, Cargo: t.Cargo, Seat: t.Seat})
	}

	key := strconv.FormatInt(order.ID, 10)
	if err := s.producer.Publish(ctx, s.ordersTopic, key, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, key, event)
	}
	return nil
}

var _ OrderUseCase = (*OrderService)(nil)
