package email

import (
	"context"

	"github.com/Domenick1991/railbooking/internal/kafka"
	"github.com/rs/zerolog"
)

// Sender delivers order notifications. Delivery is a structured log line;
// there is no mail transport.
type Sender struct {
	logger zerolog.Logger
}

func NewSender(logger zerolog.Logger) *Sender {
	return &Sender{logger: logger.With().Str("component", "notifications").Logger()}
}

func (s *Sender) Send(ctx context.Context, event kafka.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	places := zerolog.Arr()
	for _, t := range event.Tickets {
		places.Dict(zerolog.Dict().Int64("trip_id", t.TripID).Int("cargo", t.Cargo).Int("seat", t.Seat))
	}
	s.logger.Info().
		Str("event", event.Type).
		Int64("order_id", event.OrderID).
		Int64("user_id", event.UserID).
		Time("created_at", event.CreatedAt).
		Array("tickets", places).
		Msg("order confirmation sent")
	return nil
}
