// Package memory keeps the whole booking schema in a go-memdb database. It
// enforces the same unique and foreign key rules as the postgres schema and is
// used for local runs (database.driver: memory) and tests.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/Domenick1991/railbooking/internal/repository"
	"github.com/hashicorp/go-memdb"
)

type Store struct {
	db     *memdb.MemDB
	lastID atomic.Int64
	now    func() time.Time
}

func NewStore() *Store {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		// the schema is static, so this only fails on a programming error
		panic(fmt.Sprintf("memory: invalid schema: %v", err))
	}
	return &Store{db: db, now: time.Now}
}

func (s *Store) Stations() repository.StationRepository     { return stationRepo{s} }
func (s *Store) TrainTypes() repository.TrainTypeRepository { return trainTypeRepo{s} }
func (s *Store) Trains() repository.TrainRepository         { return trainRepo{s} }
func (s *Store) Routes() repository.RouteRepository         { return routeRepo{s} }
func (s *Store) Crew() repository.CrewRepository            { return crewRepo{s} }
func (s *Store) Trips() repository.TripRepository           { return tripRepo{s} }
func (s *Store) Orders() repository.OrderRepository         { return orderRepo{s} }

func (s *Store) nextID() int64 {
	return s.lastID.Add(1)
}

func notFound(entity string) error {
	return fmt.Errorf("%s %w", entity, domain.ErrNotFound)
}

func conflict(entity, field string) error {
	return fmt.Errorf("%s with this %s %w", entity, field, domain.ErrConflict)
}

// get returns a copy of the row with the given id.
func get[T any](txn *memdb.Txn, table string, id int64) (T, bool, error) {
	var zero T
	raw, err := txn.First(table, "id", id)
	if err != nil {
		return zero, false, fmt.Errorf("lookup %s: %w", table, err)
	}
	if raw == nil {
		return zero, false, nil
	}
	return *raw.(*T), true, nil
}

func exists(txn *memdb.Txn, table string, id int64) (bool, error) {
	raw, err := txn.First(table, "id", id)
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", table, err)
	}
	return raw != nil, nil
}

// all returns every row of table ordered by id.
func all[T any](txn *memdb.Txn, table string, id func(T) int64) ([]T, error) {
	it, err := txn.Get(table, "id")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", table, err)
	}
	out := make([]T, 0)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, *raw.(*T))
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return out, nil
}

// insertNamed stores a row whose Name must be unique in table.
func insertNamed(s *Store, table, entity, name string, row any, setID func(int64)) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	taken, err := txn.First(table, "name", name)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", table, err)
	}
	if taken != nil {
		return conflict(entity, "name")
	}
	setID(s.nextID())
	if err := txn.Insert(table, row); err != nil {
		return fmt.Errorf("insert %s: %w", entity, err)
	}
	txn.Commit()
	return nil
}

type stationRepo struct{ s *Store }

func (r stationRepo) Create(_ context.Context, station *domain.Station) error {
	row := *station
	if err := insertNamed(r.s, tableStations, "station", row.Name, &row, func(id int64) { row.ID = id }); err != nil {
		return err
	}
	station.ID = row.ID
	return nil
}

func (r stationRepo) List(_ context.Context) ([]domain.Station, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	return all(txn, tableStations, func(s domain.Station) int64 { return s.ID })
}

func (r stationRepo) GetByID(_ context.Context, id int64) (*domain.Station, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	station, ok, err := get[domain.Station](txn, tableStations, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("station")
	}
	return &station, nil
}

func (r stationRepo) UpdateImage(_ context.Context, id int64, image string) (*domain.Station, error) {
	txn := r.s.db.Txn(true)
	defer txn.Abort()
	station, ok, err := get[domain.Station](txn, tableStations, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("station")
	}
	station.Image = image
	updated := station
	if err := txn.Insert(tableStations, &updated); err != nil {
		return nil, fmt.Errorf("update station: %w", err)
	}
	txn.Commit()
	return &station, nil
}

type trainTypeRepo struct{ s *Store }

func (r trainTypeRepo) Create(_ context.Context, trainType *domain.TrainType) error {
	row := *trainType
	if err := insertNamed(r.s, tableTrainTypes, "train type", row.Name, &row, func(id int64) { row.ID = id }); err != nil {
		return err
	}
	trainType.ID = row.ID
	return nil
}

func (r trainTypeRepo) List(_ context.Context) ([]domain.TrainType, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	return all(txn, tableTrainTypes, func(t domain.TrainType) int64 { return t.ID })
}

func (r trainTypeRepo) GetByID(_ context.Context, id int64) (*domain.TrainType, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	tt, ok, err := get[domain.TrainType](txn, tableTrainTypes, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("train type")
	}
	return &tt, nil
}

type trainRepo struct{ s *Store }

func (r trainRepo) Create(_ context.Context, train *domain.Train) error {
	txn := r.s.db.Txn(true)
	defer txn.Abort()

	taken, err := txn.First(tableTrains, "name", train.Name)
	if err != nil {
		return fmt.Errorf("lookup trains: %w", err)
	}
	if taken != nil {
		return conflict("train", "name")
	}
	if train.TrainTypeID != nil {
		ok, err := exists(txn, tableTrainTypes, *train.TrainTypeID)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.ReferenceError{Field: "train_type", ID: *train.TrainTypeID}
		}
	}

	row := *train
	row.ID = r.s.nextID()
	if err := txn.Insert(tableTrains, &row); err != nil {
		return fmt.Errorf("insert train: %w", err)
	}
	txn.Commit()
	train.ID = row.ID
	return nil
}

func (r trainRepo) List(_ context.Context) ([]domain.Train, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	return all(txn, tableTrains, func(t domain.Train) int64 { return t.ID })
}

func (r trainRepo) GetByID(_ context.Context, id int64) (*domain.Train, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	train, ok, err := get[domain.Train](txn, tableTrains, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("train")
	}
	return &train, nil
}

type routeRepo struct{ s *Store }

func (r routeRepo) Create(_ context.Context, route *domain.Route) error {
	txn := r.s.db.Txn(true)
	defer txn.Abort()

	refs := []struct {
		field string
		id    int64
	}{{"source", route.SourceID}, {"destination", route.DestinationID}}
	for _, ref := range refs {
		ok, err := exists(txn, tableStations, ref.id)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.ReferenceError{Field: ref.field, ID: ref.id}
		}
	}

	row := *route
	row.ID = r.s.nextID()
	if err := txn.Insert(tableRoutes, &row); err != nil {
		return fmt.Errorf("insert route: %w", err)
	}
	txn.Commit()
	route.ID = row.ID
	return nil
}

func (r routeRepo) List(_ context.Context) ([]domain.Route, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	return all(txn, tableRoutes, func(r domain.Route) int64 { return r.ID })
}

func (r routeRepo) GetByID(_ context.Context, id int64) (*domain.Route, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	route, ok, err := get[domain.Route](txn, tableRoutes, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("route")
	}
	return &route, nil
}

type crewRepo struct{ s *Store }

func (r crewRepo) Create(_ context.Context, crew *domain.Crew) error {
	txn := r.s.db.Txn(true)
	defer txn.Abort()
	row := *crew
	row.ID = r.s.nextID()
	if err := txn.Insert(tableCrew, &row); err != nil {
		return fmt.Errorf("insert crew: %w", err)
	}
	txn.Commit()
	crew.ID = row.ID
	return nil
}

func (r crewRepo) List(_ context.Context) ([]domain.Crew, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	return all(txn, tableCrew, func(c domain.Crew) int64 { return c.ID })
}

func (r crewRepo) ListByIDs(_ context.Context, ids []int64) ([]domain.Crew, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()

	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	found := make([]domain.Crew, 0, len(unique))
	for _, id := range unique {
		member, ok, err := get[domain.Crew](txn, tableCrew, id)
		if err != nil {
			return nil, err
		}
		if ok {
			found = append(found, member)
		}
	}
	return found, nil
}

type tripRepo struct{ s *Store }

func (r tripRepo) Create(_ context.Context, trip *domain.Trip) error {
	txn := r.s.db.Txn(true)
	defer txn.Abort()

	if ok, err := exists(txn, tableRoutes, trip.RouteID); err != nil {
		return err
	} else if !ok {
		return &domain.ReferenceError{Field: "route", ID: trip.RouteID}
	}
	if ok, err := exists(txn, tableTrains, trip.TrainID); err != nil {
		return err
	} else if !ok {
		return &domain.ReferenceError{Field: "train", ID: trip.TrainID}
	}

	crewIDs := slices.Clone(trip.CrewIDs)
	slices.Sort(crewIDs)
	crewIDs = slices.Compact(crewIDs)
	for _, id := range trip.CrewIDs {
		ok, err := exists(txn, tableCrew, id)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.ReferenceError{Field: "crew", ID: id}
		}
	}

	row := *trip
	row.ID = r.s.nextID()
	row.CrewIDs = crewIDs
	if err := txn.Insert(tableTrips, &row); err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	txn.Commit()
	trip.ID = row.ID
	return nil
}

func (r tripRepo) GetByID(_ context.Context, id int64) (*domain.Trip, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	trip, ok, err := get[domain.Trip](txn, tableTrips, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("trip")
	}
	trip.CrewIDs = slices.Clone(trip.CrewIDs)
	return &trip, nil
}

func (r tripRepo) List(_ context.Context, filter domain.TripFilter) ([]domain.TripSummary, error) {
	return r.summaries(func(s domain.TripSummary) bool { return filter.Matches(s) })
}

func (r tripRepo) ListByIDs(_ context.Context, ids []int64) ([]domain.TripSummary, error) {
	return r.summaries(func(s domain.TripSummary) bool { return slices.Contains(ids, s.ID) })
}

func (r tripRepo) summaries(keep func(domain.TripSummary) bool) ([]domain.TripSummary, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()

	trips, err := all(txn, tableTrips, func(t domain.Trip) int64 { return t.ID })
	if err != nil {
		return nil, err
	}
	out := make([]domain.TripSummary, 0)
	for _, trip := range trips {
		summary, err := summarize(txn, trip)
		if err != nil {
			return nil, err
		}
		if keep(summary) {
			out = append(out, summary)
		}
	}
	return out, nil
}

func (r tripRepo) GetSummary(_ context.Context, id int64) (*domain.TripSummary, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	trip, ok, err := get[domain.Trip](txn, tableTrips, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("trip")
	}
	summary, err := summarize(txn, trip)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r tripRepo) TrainForTrip(_ context.Context, tripID int64) (*domain.Train, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	return trainForTrip(txn, tripID)
}

func trainForTrip(txn *memdb.Txn, tripID int64) (*domain.Train, error) {
	trip, ok, err := get[domain.Trip](txn, tableTrips, tripID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("trip")
	}
	train, _, err := get[domain.Train](txn, tableTrains, trip.TrainID)
	if err != nil {
		return nil, err
	}
	return &train, nil
}

// summarize resolves names and counts sold tickets through the trip index.
func summarize(txn *memdb.Txn, trip domain.Trip) (domain.TripSummary, error) {
	route, _, err := get[domain.Route](txn, tableRoutes, trip.RouteID)
	if err != nil {
		return domain.TripSummary{}, err
	}
	train, _, err := get[domain.Train](txn, tableTrains, trip.TrainID)
	if err != nil {
		return domain.TripSummary{}, err
	}
	source, _, err := get[domain.Station](txn, tableStations, route.SourceID)
	if err != nil {
		return domain.TripSummary{}, err
	}
	destination, _, err := get[domain.Station](txn, tableStations, route.DestinationID)
	if err != nil {
		return domain.TripSummary{}, err
	}

	it, err := txn.Get(tableTickets, "trip", trip.ID)
	if err != nil {
		return domain.TripSummary{}, fmt.Errorf("scan tickets: %w", err)
	}
	sold := 0
	for raw := it.Next(); raw != nil; raw = it.Next() {
		sold++
	}

	return domain.TripSummary{
		ID:               trip.ID,
		RouteID:          route.ID,
		SourceID:         route.SourceID,
		SourceName:       source.Name,
		DestinationID:    route.DestinationID,
		DestinationName:  destination.Name,
		TrainID:          train.ID,
		TrainName:        train.Name,
		Capacity:         train.Capacity(),
		DepartureTime:    trip.DepartureTime,
		ArrivalTime:      trip.ArrivalTime,
		TicketsAvailable: train.Capacity() - sold,
	}, nil
}

type orderRepo struct{ s *Store }

// Create writes the order and its tickets in one write transaction. The
// transaction is aborted on the first bad ticket, so nothing is kept.
func (r orderRepo) Create(_ context.Context, order *domain.Order) error {
	txn := r.s.db.Txn(true)
	defer txn.Abort()

	row := *order
	row.ID = r.s.nextID()
	row.CreatedAt = r.s.now().UTC()
	row.Tickets = slices.Clone(order.Tickets)

	for i := range row.Tickets {
		ticket := &row.Tickets[i]
		train, err := trainForTrip(txn, ticket.TripID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.TicketError(i, &domain.ReferenceError{Field: "trip", ID: ticket.TripID})
			}
			return err
		}
		if err := domain.ValidateTicket(ticket.Cargo, ticket.Seat, *train); err != nil {
			return domain.TicketError(i, err)
		}

		taken, err := txn.First(tableTickets, "seat", ticket.TripID, ticket.Cargo, ticket.Seat)
		if err != nil {
			return fmt.Errorf("lookup ticket: %w", err)
		}
		if taken != nil {
			return domain.ErrTicketTaken
		}

		ticket.ID = r.s.nextID()
		ticket.OrderID = row.ID
		stored := *ticket
		if err := txn.Insert(tableTickets, &stored); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
	}

	stored := row
	stored.Tickets = slices.Clone(row.Tickets)
	if err := txn.Insert(tableOrders, &stored); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	txn.Commit()

	*order = row
	return nil
}

func (r orderRepo) ListByUser(_ context.Context, userID int64) ([]domain.Order, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableOrders, "user", userID)
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	out := make([]domain.Order, 0)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		order := *raw.(*domain.Order)
		order.Tickets = slices.Clone(order.Tickets)
		out = append(out, order)
	}
	slices.SortFunc(out, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r orderRepo) GetByID(_ context.Context, userID, id int64) (*domain.Order, error) {
	txn := r.s.db.Txn(false)
	defer txn.Abort()
	order, ok, err := get[domain.Order](txn, tableOrders, id)
	if err != nil {
		return nil, err
	}
	if !ok || order.UserID != userID {
		return nil, notFound("order")
	}
	order.Tickets = slices.Clone(order.Tickets)
	return &order, nil
}

var (
	_ repository.StationRepository   = stationRepo{}
	_ repository.TrainTypeRepository = trainTypeRepo{}
	_ repository.TrainRepository     = trainRepo{}
	_ repository.RouteRepository     = routeRepo{}
	_ repository.CrewRepository      = crewRepo{}
	_ repository.TripRepository      = tripRepo{}
	_ repository.OrderRepository     = orderRepo{}
)
