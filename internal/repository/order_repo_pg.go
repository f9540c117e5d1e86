package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type OrderRepository interface {
	// Create stores the order and all of its tickets in one transaction.
	// On any error nothing is persisted.
	Create(ctx context.Context, order *domain.Order) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	GetByID(ctx context.Context, userID, id int64) (*domain.Order, error)
}

const orderSelect = `
SELECT o.id, o.user_id, o.created_at, tk.id, tk.trip_id, tk.cargo, tk.seat
FROM orders o
LEFT JOIN tickets tk ON tk.order_id = o.id`

type PGOrderRepository struct {
	db DB
}

func NewOrderRepository(db DB) OrderRepository {
	return &PGOrderRepository{db: db}
}

func (r *PGOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `INSERT INTO orders (user_id) VALUES ($1) RETURNING id, created_at`, order.UserID).
		Scan(&order.ID, &order.CreatedAt); err != nil {
		return err
	}

	for i := range order.Tickets {
		ticket := &order.Tickets[i]
		if err := insertTicket(ctx, tx, order.ID, ticket); err != nil {
			return domain.TicketError(i, err)
		}
	}

	return tx.Commit(ctx)
}

func insertTicket(ctx context.Context, tx pgx.Tx, orderID int64, ticket *domain.Ticket) error {
	train, err := scanTrain(tx.QueryRow(ctx, trainForTripSQL, ticket.TripID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.ReferenceError{Field: "trip", ID: ticket.TripID}
		}
		return err
	}
	if err := domain.ValidateTicket(ticket.Cargo, ticket.Seat, *train); err != nil {
		return err
	}

	ticket.OrderID = orderID
	err = tx.QueryRow(ctx, `INSERT INTO tickets (trip_id, order_id, cargo, seat) VALUES ($1, $2, $3, $4) RETURNING id`,
		ticket.TripID, orderID, ticket.Cargo, ticket.Seat).Scan(&ticket.ID)
	return mapError(err, "ticket")
}

func (r *PGOrderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, orderSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC, tk.id`, userID)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

func (r *PGOrderRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Order, error) {
	rows, err := r.db.Query(ctx, orderSelect+` WHERE o.id = $1 AND o.user_id = $2 ORDER BY tk.id`, id, userID)
	if err != nil {
		return nil, err
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("order %w", domain.ErrNotFound)
	}
	return &orders[0], nil
}

// scanOrders folds the order/ticket join back into aggregates, keeping row order.
func scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()

	orders := make([]domain.Order, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var (
			orderID, userID int64
			createdAt       time.Time
			ticketID        *int64
			tripID          *int64
			cargo, seat     *int
		)
		if err := rows.Scan(&orderID, &userID, &createdAt, &ticketID, &tripID, &cargo, &seat); err != nil {
			return nil, err
		}
		pos, ok := index[orderID]
		if !ok {
			orders = append(orders, domain.Order{ID: orderID, UserID: userID, CreatedAt: createdAt, Tickets: []domain.Ticket{}})
			pos = len(orders) - 1
			index[orderID] = pos
		}
		if ticketID != nil {
			orders[pos].Tickets = append(orders[pos].Tickets, domain.Ticket{
				ID:      *ticketID,
				TripID:  *tripID,
				OrderID: orderID,
				Cargo:   *cargo,
				Seat:    *seat,
			})
		}
	}
	return orders, rows.Err()
}

var _ OrderRepository = (*PGOrderRepository)(nil)
