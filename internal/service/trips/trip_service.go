package trips

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/Domenick1991/railbooking/internal/repository"
)

type TripUseCase interface {
	Create(ctx context.Context, input CreateTripInput) (*domain.Trip, error)
	List(ctx context.Context, filter domain.TripFilter) ([]domain.TripSummary, error)
	Get(ctx context.Context, id int64) (*TripDetails, error)
}

type CreateTripInput struct {
	RouteID       int64     `json:"route"`
	TrainID       int64     `json:"train"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	CrewIDs       []int64   `json:"crew"`
}

// TripDetails is the full read model of one trip.
type TripDetails struct {
	domain.TripSummary
	Distance  int
	Train     domain.Train
	TrainType *domain.TrainType
	Crew      []domain.Crew
}

type TripService struct {
	trips      repository.TripRepository
	routes     repository.RouteRepository
	trains     repository.TrainRepository
	trainTypes repository.TrainTypeRepository
	crew       repository.CrewRepository
}

func NewTripService(
	trips repository.TripRepository,
	routes repository.RouteRepository,
	trains repository.TrainRepository,
	trainTypes repository.TrainTypeRepository,
	crew repository.CrewRepository,
) *TripService {
	return &TripService{trips: trips, routes: routes, trains: trains, trainTypes: trainTypes, crew: crew}
}

// Create stores a trip. Unknown route, train or crew ids are reported by the
// store as reference errors.
func (s *TripService) Create(ctx context.Context, input CreateTripInput) (*domain.Trip, error) {
	if input.RouteID <= 0 {
		return nil, domain.NewValidationError("route", "this field is required")
	}
	if input.TrainID <= 0 {
		return nil, domain.NewValidationError("train", "this field is required")
	}
	if input.DepartureTime.IsZero() {
		return nil, domain.NewValidationError("departure_time", "this field is required")
	}
	if input.ArrivalTime.IsZero() {
		return nil, domain.NewValidationError("arrival_time", "this field is required")
	}

	if len(input.CrewIDs) == 0 {
		return nil, domain.NewValidationError("crew", "at least one crew member is required")
	}

	trip := &domain.Trip{
		RouteID:       input.RouteID,
		TrainID:       input.TrainID,
		DepartureTime: input.DepartureTime.UTC(),
		ArrivalTime:   input.ArrivalTime.UTC(),
		CrewIDs:       input.CrewIDs,
	}
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

func (s *TripService) List(ctx context.Context, filter domain.TripFilter) ([]domain.TripSummary, error) {
	return s.trips.List(ctx, filter)
}

func (s *TripService) Get(ctx context.Context, id int64) (*TripDetails, error) {
	summary, err := s.trips.GetSummary(ctx, id)
	if err != nil {
		return nil, err
	}
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	route, err := s.routes.GetByID(ctx, trip.RouteID)
	if err != nil {
		return nil, fmt.Errorf("resolve route of trip %d: %w", id, err)
	}
	train, err := s.trains.GetByID(ctx, trip.TrainID)
	if err != nil {
		return nil, fmt.Errorf("resolve train of trip %d: %w", id, err)
	}

	details := &TripDetails{
		TripSummary: *summary,
		Distance:    route.Distance,
		Train:       *train,
		Crew:        []domain.Crew{},
	}
	if train.TrainTypeID != nil {
		tt, err := s.trainTypes.GetByID(ctx, *train.TrainTypeID)
		if err != nil {
			return nil, fmt.Errorf("resolve train type of trip %d: %w", id, err)
		}
		details.TrainType = tt
	}
	if len(trip.CrewIDs) > 0 {
		crew, err := s.crew.ListByIDs(ctx, trip.CrewIDs)
		if err != nil {
			return nil, err
		}
		details.Crew = crew
	}
	return details, nil
}

var _ TripUseCase = (*TripService)(nil)
