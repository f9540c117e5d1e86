package domain

import "time"

type Trip struct {
	ID            int64
	RouteID       int64
	TrainID       int64
	DepartureTime time.Time
	ArrivalTime   time.Time
	CrewIDs       []int64
}

// TripSummary is the list read model of a trip: names are resolved and
// availability is computed by the store in the same query.
type TripSummary struct {
	ID               int64
	RouteID          int64
	SourceID         int64
	SourceName       string
	DestinationID    int64
	DestinationName  string
	TrainID          int64
	TrainName        string
	Capacity         int
	DepartureTime    time.Time
	ArrivalTime      time.Time
	TicketsAvailable int
}

func (s TripSummary) RouteName() string {
	return s.SourceName + " -> " + s.DestinationName
}
