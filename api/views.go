package api

import (
	"fmt"
	"time"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/Domenick1991/railbooking/internal/service/catalog"
	"github.com/Domenick1991/railbooking/internal/service/trips"
	"github.com/jinzhu/copier"
)

// Views are chosen per action by the handlers: list views stay flat,
// detail views nest related objects.

type StationView struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type StationDetailView struct {
	StationView
	Image *string `json:"image"`
}

type TrainTypeView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CrewView struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type trainFields struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CargoNum      int    `json:"cargo_num"`
	PlacesInCargo int    `json:"places_in_cargo"`
	Capacity      int    `json:"capacity"`
}

// TrainView is returned on create: the train type is referenced by id.
type TrainView struct {
	trainFields
	TrainType *int64 `json:"train_type"`
}

type TrainListView struct {
	trainFields
	TrainType *string `json:"train_type"`
}

type TrainDetailView struct {
	trainFields
	TrainType *TrainTypeView `json:"train_type"`
}

type RouteView struct {
	ID          int64  `json:"id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Distance    int    `json:"distance"`
}

type TripView struct {
	ID            int64     `json:"id"`
	Train         int64     `json:"train"`
	Route         int64     `json:"route"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	Crew          []int64   `json:"crew"`
}

type TripListView struct {
	ID               int64     `json:"id"`
	RouteName        string    `json:"route_name"`
	TrainName        string    `json:"train_name"`
	DepartureTime    time.Time `json:"departure_time"`
	ArrivalTime      time.Time `json:"arrival_time"`
	TicketsAvailable int       `json:"tickets_available"`
}

type TripDetailView struct {
	ID               int64           `json:"id"`
	Route            RouteView       `json:"route"`
	Train            TrainDetailView `json:"train"`
	DepartureTime    time.Time       `json:"departure_time"`
	ArrivalTime      time.Time       `json:"arrival_time"`
	Crew             []CrewView      `json:"crew"`
	TicketsAvailable int             `json:"tickets_available"`
}

type TicketView struct {
	ID    int64 `json:"id"`
	Cargo int   `json:"cargo"`
	Seat  int   `json:"seat"`
	Trip  int64 `json:"trip"`
}

type TicketListView struct {
	ID    int64        `json:"id"`
	Cargo int          `json:"cargo"`
	Seat  int          `json:"seat"`
	Trip  TripListView `json:"trip"`
}

type OrderView struct {
	ID        int64        `json:"id"`
	Tickets   []TicketView `json:"tickets"`
	CreatedAt time.Time    `json:"created_at"`
}

type OrderListView struct {
	ID        int64            `json:"id"`
	Tickets   []TicketListView `json:"tickets"`
	CreatedAt time.Time        `json:"created_at"`
}

// copyView copies same-named fields of src into a new T. copier fails only
// when the view and the domain type disagree on a field's kind, which the
// Recovery middleware then reports as a 500.
func copyView[T any](src any) T {
	var v T
	if err := copier.Copy(&v, src); err != nil {
		panic(fmt.Sprintf("api: build %T: %v", v, err))
	}
	return v
}

func stationView(s domain.Station) StationView {
	return copyView[StationView](&s)
}

func stationDetailView(s domain.Station, urlFor func(string) string) StationDetailView {
	v := StationDetailView{StationView: stationView(s)}
	if s.Image != "" {
		url := urlFor(s.Image)
		v.Image = &url
	}
	return v
}

func trainTypeView(t domain.TrainType) TrainTypeView {
	return copyView[TrainTypeView](&t)
}

func crewViews(crew []domain.Crew) []CrewView {
	views := copyView[[]CrewView](&crew)
	if views == nil {
		views = []CrewView{}
	}
	return views
}

func newTrainFields(t domain.Train) trainFields {
	return trainFields{
		ID:            t.ID,
		Name:          t.Name,
		CargoNum:      t.CargoNum,
		PlacesInCargo: t.PlacesInCargo,
		Capacity:      t.Capacity(),
	}
}

func trainView(t domain.Train) TrainView {
	return TrainView{trainFields: newTrainFields(t), TrainType: t.TrainTypeID}
}

func trainListView(d catalog.TrainDetails) TrainListView {
	v := TrainListView{trainFields: newTrainFields(d.Train)}
	if d.Type != nil {
		name := d.Type.Name
		v.TrainType = &name
	}
	return v
}

func trainDetailView(train domain.Train, tt *domain.TrainType) TrainDetailView {
	v := TrainDetailView{trainFields: newTrainFields(train)}
	if tt != nil {
		ttv := trainTypeView(*tt)
		v.TrainType = &ttv
	}
	return v
}

func routeView(d catalog.RouteDetails) RouteView {
	return RouteView{ID: d.ID, Source: d.Source.Name, Destination: d.Destination.Name, Distance: d.Distance}
}

func tripView(t domain.Trip) TripView {
	crew := t.CrewIDs
	if crew == nil {
		crew = []int64{}
	}
	return TripView{
		ID:            t.ID,
		Train:         t.TrainID,
		Route:         t.RouteID,
		DepartureTime: t.DepartureTime,
		ArrivalTime:   t.ArrivalTime,
		Crew:          crew,
	}
}

func tripListView(s domain.TripSummary) TripListView {
	return TripListView{
		ID:               s.ID,
		RouteName:        s.RouteName(),
		TrainName:        s.TrainName,
		DepartureTime:    s.DepartureTime,
		ArrivalTime:      s.ArrivalTime,
		TicketsAvailable: s.TicketsAvailable,
	}
}

func tripDetailView(d trips.TripDetails) TripDetailView {
	return TripDetailView{
		ID: d.ID,
		Route: RouteView{
			ID:          d.RouteID,
			Source:      d.SourceName,
			Destination: d.DestinationName,
			Distance:    d.Distance,
		},
		Train:            trainDetailView(d.Train, d.TrainType),
		DepartureTime:    d.DepartureTime,
		ArrivalTime:      d.ArrivalTime,
		Crew:             crewViews(d.Crew),
		TicketsAvailable: d.TicketsAvailable,
	}
}

func orderView(o domain.Order) OrderView {
	v := OrderView{ID: o.ID, CreatedAt: o.CreatedAt, Tickets: make([]TicketView, 0, len(o.Tickets))}
	for _, t := range o.Tickets {
		v.Tickets = append(v.Tickets, TicketView{ID: t.ID, Cargo: t.Cargo, Seat: t.Seat, Trip: t.TripID})
	}
	return v
}

func orderListView(o domain.Order, tripsByID map[int64]domain.TripSummary) OrderListView {
	v := OrderListView{ID: o.ID, CreatedAt: o.CreatedAt, Tickets: make([]TicketListView, 0, len(o.Tickets))}
	for _, t := range o.Tickets {
		v.Tickets = append(v.Tickets, TicketListView{
			ID:    t.ID,
			Cargo: t.Cargo,
			Seat:  t.Seat,
			Trip:  tripListView(tripsByID[t.TripID]),
		})
	}
	return v
}
