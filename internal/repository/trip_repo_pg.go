package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
	// List returns trips matching filter together with their availability.
	List(ctx context.Context, filter domain.TripFilter) ([]domain.TripSummary, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.TripSummary, error)
	GetSummary(ctx context.Context, id int64) (*domain.TripSummary, error)
	TrainForTrip(ctx context.Context, tripID int64) (*domain.Train, error)
}

// tripSummarySelect computes availability in the same statement as the listing.
const tripSummarySelect = `
SELECT t.id, t.route_id, r.source_id, s.name, r.destination_id, d.name,
       t.train_id, tr.name, tr.cargo_num * tr.places_in_cargo,
       t.departure_time, t.arrival_time,
       tr.cargo_num * tr.places_in_cargo - COUNT(tk.id) AS tickets_available
FROM trips t
JOIN routes r ON r.id = t.route_id
JOIN stations s ON s.id = r.source_id
JOIN stations d ON d.id = r.destination_id
JOIN trains tr ON tr.id = t.train_id
LEFT JOIN tickets tk ON tk.trip_id = t.id`

const tripSummaryGroup = `
GROUP BY t.id, r.id, s.id, d.id, tr.id
ORDER BY t.id`

const trainForTripSQL = `
SELECT tr.id, tr.name, tr.cargo_num, tr.places_in_cargo, tr.train_type_id
FROM trips t
JOIN trains tr ON tr.id = t.train_id
WHERE t.id = $1`

type PGTripRepository struct {
	db DB
}

func NewTripRepository(db DB) TripRepository {
	return &PGTripRepository{db: db}
}

func (r *PGTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `INSERT INTO trips (route_id, train_id, departure_time, arrival_time) VALUES ($1, $2, $3, $4) RETURNING id`,
		trip.RouteID, trip.TrainID, trip.DepartureTime, trip.ArrivalTime).Scan(&trip.ID)
	if err != nil {
		return mapError(err, "trip")
	}
	for _, crewID := range trip.CrewIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO trip_crew (trip_id, crew_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, trip.ID, crewID); err != nil {
			return mapError(err, "trip")
		}
	}
	return tx.Commit(ctx)
}

func (r *PGTripRepository) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	var t domain.Trip
	err := r.db.QueryRow(ctx, `
		SELECT t.id, t.route_id, t.train_id, t.departure_time, t.arrival_time,
		       COALESCE(array_agg(tc.crew_id ORDER BY tc.crew_id) FILTER (WHERE tc.crew_id IS NOT NULL), '{}')
		FROM trips t
		LEFT JOIN trip_crew tc ON tc.trip_id = t.id
		WHERE t.id = $1
		GROUP BY t.id`, id).
		Scan(&t.ID, &t.RouteID, &t.TrainID, &t.DepartureTime, &t.ArrivalTime, &t.CrewIDs)
	if err != nil {
		return nil, mapError(err, "trip")
	}
	return &t, nil
}

func (r *PGTripRepository) List(ctx context.Context, filter domain.TripFilter) ([]domain.TripSummary, error) {
	where, args := tripFilterClause(filter)
	rows, err := r.db.Query(ctx, tripSummarySelect+where+tripSummaryGroup, args...)
	if err != nil {
		return nil, err
	}
	return scanTripSummaries(rows)
}

func (r *PGTripRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.TripSummary, error) {
	rows, err := r.db.Query(ctx, tripSummarySelect+` WHERE t.id = ANY($1)`+tripSummaryGroup, ids)
	if err != nil {
		return nil, err
	}
	return scanTripSummaries(rows)
}

func (r *PGTripRepository) GetSummary(ctx context.Context, id int64) (*domain.TripSummary, error) {
	rows, err := r.db.Query(ctx, tripSummarySelect+` WHERE t.id = $1`+tripSummaryGroup, id)
	if err != nil {
		return nil, err
	}
	summaries, err := scanTripSummaries(rows)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("trip %w", domain.ErrNotFound)
	}
	return &summaries[0], nil
}

func (r *PGTripRepository) TrainForTrip(ctx context.Context, tripID int64) (*domain.Train, error) {
	return scanTrain(r.db.QueryRow(ctx, trainForTripSQL, tripID))
}

func tripFilterClause(filter domain.TripFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.SourceID != nil {
		args = append(args, *filter.SourceID)
		conds = append(conds, fmt.Sprintf("r.source_id = $%d", len(args)))
	}
	if filter.DestinationID != nil {
		args = append(args, *filter.DestinationID)
		conds = append(conds, fmt.Sprintf("r.destination_id = $%d", len(args)))
	}
	if filter.DepartureDate != nil {
		args = append(args, filter.DepartureDate.Format(domain.DateLayout))
		conds = append(conds, fmt.Sprintf("(t.departure_time AT TIME ZONE 'UTC')::date >= $%d::date", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanTripSummaries(rows pgx.Rows) ([]domain.TripSummary, error) {
	defer rows.Close()

	trips := make([]domain.TripSummary, 0)
	for rows.Next() {
		var s domain.TripSummary
		if err := rows.Scan(&s.ID, &s.RouteID, &s.SourceID, &s.SourceName, &s.DestinationID, &s.DestinationName,
			&s.TrainID, &s.TrainName, &s.Capacity, &s.DepartureTime, &s.ArrivalTime, &s.TicketsAvailable); err != nil {
			return nil, err
		}
		trips = append(trips, s)
	}
	return trips, rows.Err()
}

func scanTrain(row pgx.Row) (*domain.Train, error) {
	var t domain.Train
	if err := row.Scan(&t.ID, &t.Name, &t.CargoNum, &t.PlacesInCargo, &t.TrainTypeID); err != nil {
		return nil, mapError(err, "trip")
	}
	return &t, nil
}

var _ TripRepository = (*PGTripRepository)(nil)
