package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *Store
	minsk   domain.Station
	brest   domain.Station
	grodno  domain.Station
	train   domain.Train
	route   domain.Route
	back    domain.Route
	morning domain.Trip
	evening domain.Trip
	inbound domain.Trip
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: NewStore()}

	f.minsk = domain.Station{Name: "Minsk", Latitude: 53.9, Longitude: 27.56}
	f.brest = domain.Station{Name: "Brest", Latitude: 52.09, Longitude: 23.68}
	f.grodno = domain.Station{Name: "Grodno", Latitude: 53.67, Longitude: 23.83}
	for _, st := range []*domain.Station{&f.minsk, &f.brest, &f.grodno} {
		require.NoError(t, f.store.Stations().Create(ctx, st))
	}

	f.train = domain.Train{Name: "Intercity 701", CargoNum: 9, PlacesInCargo: 50}
	require.NoError(t, f.store.Trains().Create(ctx, &f.train))

	f.route = domain.Route{SourceID: f.minsk.ID, DestinationID: f.brest.ID, Distance: 350}
	f.back = domain.Route{SourceID: f.brest.ID, DestinationID: f.minsk.ID, Distance: 350}
	require.NoError(t, f.store.Routes().Create(ctx, &f.route))
	require.NoError(t, f.store.Routes().Create(ctx, &f.back))

	f.morning = domain.Trip{RouteID: f.route.ID, TrainID: f.train.ID,
		DepartureTime: time.Date(2025, 6, 1, 7, 30, 0, 0, time.UTC),
		ArrivalTime:   time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)}
	f.evening = domain.Trip{RouteID: f.route.ID, TrainID: f.train.ID,
		DepartureTime: time.Date(2025, 6, 2, 23, 50, 0, 0, time.UTC),
		ArrivalTime:   time.Date(2025, 6, 3, 3, 0, 0, 0, time.UTC)}
	f.inbound = domain.Trip{RouteID: f.back.ID, TrainID: f.train.ID,
		DepartureTime: time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC),
		ArrivalTime:   time.Date(2025, 6, 3, 12, 30, 0, 0, time.UTC)}
	for _, trip := range []*domain.Trip{&f.morning, &f.evening, &f.inbound} {
		require.NoError(t, f.store.Trips().Create(ctx, trip))
	}
	return f
}

func (f *fixture) counts(t *testing.T) (orders, tickets int) {
	t.Helper()
	txn := f.store.db.Txn(false)
	defer txn.Abort()

	count := func(table string) int {
		it, err := txn.Get(table, "id")
		require.NoError(t, err)
		n := 0
		for raw := it.Next(); raw != nil; raw = it.Next() {
			n++
		}
		return n
	}
	return count(tableOrders), count(tableTickets)
}

func TestStore_UniqueNames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.store.Stations().Create(ctx, &domain.Station{Name: "Minsk"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	tt := domain.TrainType{Name: "Express"}
	require.NoError(t, f.store.TrainTypes().Create(ctx, &tt))
	assert.ErrorIs(t, f.store.TrainTypes().Create(ctx, &domain.TrainType{Name: "Express"}), domain.ErrConflict)

	err = f.store.Trains().Create(ctx, &domain.Train{Name: "Intercity 701", CargoNum: 1, PlacesInCargo: 1})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestStore_References(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	missing := int64(999)
	err := f.store.Trains().Create(ctx, &domain.Train{Name: "Regional", CargoNum: 2, PlacesInCargo: 10, TrainTypeID: &missing})
	var refErr *domain.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "train_type", refErr.Field)

	err = f.store.Routes().Create(ctx, &domain.Route{SourceID: f.minsk.ID, DestinationID: missing, Distance: 10})
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "destination", refErr.Field)

	err = f.store.Trips().Create(ctx, &domain.Trip{RouteID: f.route.ID, TrainID: f.train.ID, CrewIDs: []int64{missing}})
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "crew", refErr.Field)
	assert.ErrorIs(t, err, domain.ErrReferenceNotFound)
}

func TestStore_TripCrew(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	anna := domain.Crew{FirstName: "Anna", LastName: "Kovaleva"}
	ivan := domain.Crew{FirstName: "Ivan", LastName: "Petrov"}
	require.NoError(t, f.store.Crew().Create(ctx, &anna))
	require.NoError(t, f.store.Crew().Create(ctx, &ivan))

	trip := domain.Trip{RouteID: f.route.ID, TrainID: f.train.ID, CrewIDs: []int64{ivan.ID, anna.ID, ivan.ID}}
	require.NoError(t, f.store.Trips().Create(ctx, &trip))

	got, err := f.store.Trips().GetByID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{anna.ID, ivan.ID}, got.CrewIDs)

	crew, err := f.store.Crew().ListByIDs(ctx, got.CrewIDs)
	require.NoError(t, err)
	require.Len(t, crew, 2)
	assert.Equal(t, "Anna Kovaleva", crew[0].FullName())
}

func TestStore_CreateOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	order := domain.Order{UserID: 7, Tickets: []domain.Ticket{
		{TripID: f.morning.ID, Cargo: 9, Seat: 50},
		{TripID: f.morning.ID, Cargo: 1, Seat: 1},
	}}
	require.NoError(t, f.store.Orders().Create(ctx, &order))
	assert.NotZero(t, order.ID)
	assert.False(t, order.CreatedAt.IsZero())
	for _, tk := range order.Tickets {
		assert.NotZero(t, tk.ID)
		assert.Equal(t, order.ID, tk.OrderID)
	}

	err := f.store.Orders().Create(ctx, &domain.Order{UserID: 8, Tickets: []domain.Ticket{{TripID: f.morning.ID, Cargo: 9, Seat: 50}}})
	assert.ErrorIs(t, err, domain.ErrTicketTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// same place on another trip is free
	require.NoError(t, f.store.Orders().Create(ctx, &domain.Order{UserID: 8, Tickets: []domain.Ticket{{TripID: f.evening.ID, Cargo: 9, Seat: 50}}}))
}

func TestStore_CreateOrder_RollsBack(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		tickets func(f *fixture) []domain.Ticket
		check   func(t *testing.T, err error)
	}{
		{
			name: "invalid seat in second ticket",
			tickets: func(f *fixture) []domain.Ticket {
				return []domain.Ticket{{TripID: f.morning.ID, Cargo: 1, Seat: 1}, {TripID: f.morning.ID, Cargo: 1, Seat: 51}}
			},
			check: func(t *testing.T, err error) {
				var vErr *domain.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, "tickets[1].seat", vErr.Field)
			},
		},
		{
			name: "missing trip in third ticket",
			tickets: func(f *fixture) []domain.Ticket {
				return []domain.Ticket{
					{TripID: f.morning.ID, Cargo: 1, Seat: 1},
					{TripID: f.morning.ID, Cargo: 1, Seat: 2},
					{TripID: 12345, Cargo: 1, Seat: 3},
				}
			},
			check: func(t *testing.T, err error) {
				var refErr *domain.ReferenceError
				require.ErrorAs(t, err, &refErr)
				assert.Equal(t, "tickets[2].trip", refErr.Field)
			},
		},
		{
			name: "duplicate place within one order",
			tickets: func(f *fixture) []domain.Ticket {
				return []domain.Ticket{{TripID: f.morning.ID, Cargo: 2, Seat: 7}, {TripID: f.morning.ID, Cargo: 2, Seat: 7}}
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrTicketTaken)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.store.Orders().Create(ctx, &domain.Order{UserID: 1, Tickets: tc.tickets(f)})
			require.Error(t, err)
			tc.check(t, err)

			orders, tickets := f.counts(t)
			assert.Zero(t, orders)
			assert.Zero(t, tickets)

			summary, err := f.store.Trips().GetSummary(ctx, f.morning.ID)
			require.NoError(t, err)
			assert.Equal(t, 450, summary.TicketsAvailable)
		})
	}
}

func TestStore_ConcurrentSamePlace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const buyers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			err := f.store.Orders().Create(ctx, &domain.Order{UserID: user, Tickets: []domain.Ticket{{TripID: f.morning.ID, Cargo: 3, Seat: 14}}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrTicketTaken):
				conflicts++
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, conflicts)
	orders, tickets := f.counts(t)
	assert.Equal(t, 1, orders)
	assert.Equal(t, 1, tickets)
}

func TestStore_Availability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sold := 0
	for cargo := 1; cargo <= 3; cargo++ {
		tickets := make([]domain.Ticket, 0, cargo)
		for seat := 1; seat <= cargo; seat++ {
			tickets = append(tickets, domain.Ticket{TripID: f.morning.ID, Cargo: cargo, Seat: seat})
		}
		require.NoError(t, f.store.Orders().Create(ctx, &domain.Order{UserID: 1, Tickets: tickets}))
		sold += len(tickets)

		summary, err := f.store.Trips().GetSummary(ctx, f.morning.ID)
		require.NoError(t, err)
		assert.Equal(t, f.train.Capacity()-sold, summary.TicketsAvailable)
	}

	// a failed order does not change availability
	_ = f.store.Orders().Create(ctx, &domain.Order{UserID: 1, Tickets: []domain.Ticket{{TripID: f.morning.ID, Cargo: 1, Seat: 1}}})
	summary, err := f.store.Trips().GetSummary(ctx, f.morning.ID)
	require.NoError(t, err)
	assert.Equal(t, 444, summary.TicketsAvailable)

	other, err := f.store.Trips().GetSummary(ctx, f.evening.ID)
	require.NoError(t, err)
	assert.Equal(t, 450, other.TicketsAvailable)
	assert.Equal(t, "Minsk -> Brest", other.RouteName())
}

func TestStore_ListTrips(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	date := func(s string) *time.Time {
		d, err := time.Parse(domain.DateLayout, s)
		require.NoError(t, err)
		return &d
	}
	id := func(v int64) *int64 { return &v }

	testCases := []struct {
		name   string
		filter domain.TripFilter
		want   []int64
	}{
		{name: "no filter", want: []int64{f.morning.ID, f.evening.ID, f.inbound.ID}},
		{name: "by source", filter: domain.TripFilter{SourceID: id(f.minsk.ID)}, want: []int64{f.morning.ID, f.evening.ID}},
		{name: "by destination", filter: domain.TripFilter{DestinationID: id(f.minsk.ID)}, want: []int64{f.inbound.ID}},
		{name: "departure date is inclusive", filter: domain.TripFilter{DepartureDate: date("2025-06-02")}, want: []int64{f.evening.ID, f.inbound.ID}},
		{name: "combined", filter: domain.TripFilter{SourceID: id(f.minsk.ID), DepartureDate: date("2025-06-02")}, want: []int64{f.evening.ID}},
		{name: "nothing matches", filter: domain.TripFilter{SourceID: id(f.grodno.ID)}, want: []int64{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trips, err := f.store.Trips().List(ctx, tc.filter)
			require.NoError(t, err)
			got := make([]int64, 0, len(trips))
			for _, trip := range trips {
				got = append(got, trip.ID)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStore_OrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	clock := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	f.store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	var ids []int64
	for seat := 1; seat <= 3; seat++ {
		order := domain.Order{UserID: 5, Tickets: []domain.Ticket{{TripID: f.morning.ID, Cargo: 1, Seat: seat}}}
		require.NoError(t, f.store.Orders().Create(ctx, &order))
		ids = append(ids, order.ID)
	}
	require.NoError(t, f.store.Orders().Create(ctx, &domain.Order{UserID: 6, Tickets: []domain.Ticket{{TripID: f.morning.ID, Cargo: 2, Seat: 1}}}))

	orders, err := f.store.Orders().ListByUser(ctx, 5)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{orders[0].ID, orders[1].ID, orders[2].ID})

	_, err = f.store.Orders().GetByID(ctx, 6, ids[0])
	assert.ErrorIs(t, err, domain.ErrNotFound)
	got, err := f.store.Orders().GetByID(ctx, 5, ids[0])
	require.NoError(t, err)
	assert.Len(t, got.Tickets, 1)
}

func TestStore_CreateOrder_TakenPlaceAbortsWholeOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.store.Orders().Create(ctx, &domain.Order{UserID: 1, Tickets: []domain.Ticket{{TripID: f.morning.ID, Cargo: 9, Seat: 50}}}))

	order := domain.Order{UserID: 2, Tickets: []domain.Ticket{
		{TripID: f.morning.ID, Cargo: 1, Seat: 1},
		{TripID: f.morning.ID, Cargo: 9, Seat: 50},
	}}
	err := f.store.Orders().Create(ctx, &order)
	assert.ErrorIs(t, err, domain.ErrTicketTaken)
	assert.Zero(t, order.ID)
	assert.Zero(t, order.Tickets[0].ID)

	orders, tickets := f.counts(t)
	assert.Equal(t, 1, orders)
	assert.Equal(t, 1, tickets)

	// the first place of the aborted order is still for sale
	require.NoError(t, f.store.Orders().Create(ctx, &domain.Order{UserID: 3, Tickets: []domain.Ticket{{TripID: f.morning.ID, Cargo: 1, Seat: 1}}}))
}
