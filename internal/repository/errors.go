package repository

import (
	"errors"
	"fmt"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// constraintFields maps foreign key and unique constraints to the input field they guard.
var constraintFields = map[string]string{
	"stations_name_key":           "name",
	"train_types_name_key":        "name",
	"trains_name_key":             "name",
	"trains_train_type_id_fkey":   "train_type",
	"routes_source_id_fkey":       "source",
	"routes_destination_id_fkey":  "destination",
	"trips_route_id_fkey":         "route",
	"trips_train_id_fkey":         "train",
	"trip_crew_crew_id_fkey":      "crew",
	"tickets_trip_id_fkey":        "trip",
	"tickets_trip_cargo_seat_key": "seat",
}

// mapError translates driver errors into domain errors. entity names the
// object for conflict messages, e.g. "station".
func mapError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %w", entity, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		if pgErr.ConstraintName == "tickets_trip_cargo_seat_key" {
			return domain.ErrTicketTaken
		}
		field := constraintFields[pgErr.ConstraintName]
		if field == "" {
			field = "field"
		}
		return fmt.Errorf("%s with this %s %w", entity, field, domain.ErrConflict)
	case codeForeignKeyViolation:
		return &domain.ReferenceError{Field: constraintFields[pgErr.ConstraintName]}
	}
	return err
}
