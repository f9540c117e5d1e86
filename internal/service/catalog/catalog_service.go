// Package catalog manages the reference data trips are built from: stations,
// train types, trains, routes and crew.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/Domenick1991/railbooking/internal/media"
	"github.com/Domenick1991/railbooking/internal/repository"
	"github.com/rs/zerolog/log"
)

type StationUseCase interface {
	CreateStation(ctx context.Context, input CreateStationInput) (*domain.Station, error)
	ListStations(ctx context.Context) ([]domain.Station, error)
	GetStation(ctx context.Context, id int64) (*domain.Station, error)
	UploadStationImage(ctx context.Context, id int64, image io.Reader) (*domain.Station, error)
}

type TrainUseCase interface {
	CreateTrainType(ctx context.Context, input CreateTrainTypeInput) (*domain.TrainType, error)
	ListTrainTypes(ctx context.Context) ([]domain.TrainType, error)
	CreateTrain(ctx context.Context, input CreateTrainInput) (*TrainDetails, error)
	ListTrains(ctx context.Context) ([]TrainDetails, error)
	GetTrain(ctx context.Context, id int64) (*TrainDetails, error)
}

type RouteUseCase interface {
	CreateRoute(ctx context.Context, input CreateRouteInput) (*RouteDetails, error)
	ListRoutes(ctx context.Context) ([]RouteDetails, error)
}

type CrewUseCase interface {
	CreateCrew(ctx context.Context, input CreateCrewInput) (*domain.Crew, error)
	ListCrew(ctx context.Context) ([]domain.Crew, error)
}

// ImageStore persists uploaded pictures and returns their media-relative path.
type ImageStore interface {
	Save(prefix, name string, r io.Reader) (string, error)
	Remove(rel string) error
}

type CreateStationInput struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type CreateTrainTypeInput struct {
	Name string `json:"name"`
}

type CreateTrainInput struct {
	Name          string `json:"name"`
	CargoNum      int    `json:"cargo_num"`
	PlacesInCargo int    `json:"places_in_cargo"`
	TrainTypeID   *int64 `json:"train_type"`
}

type CreateRouteInput struct {
	SourceID      int64 `json:"source"`
	DestinationID int64 `json:"destination"`
	Distance      int   `json:"distance"`
}

type CreateCrewInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TrainDetails is a train with its type resolved. Type is nil for untyped trains.
type TrainDetails struct {
	domain.Train
	Type *domain.TrainType
}

type RouteDetails struct {
	domain.Route
	Source      domain.Station
	Destination domain.Station
}

type Repositories struct {
	Stations   repository.StationRepository
	TrainTypes repository.TrainTypeRepository
	Trains     repository.TrainRepository
	Routes     repository.RouteRepository
	Crew       repository.CrewRepository
}

type CatalogService struct {
	stations   repository.StationRepository
	trainTypes repository.TrainTypeRepository
	trains     repository.TrainRepository
	routes     repository.RouteRepository
	crew       repository.CrewRepository
	images     ImageStore
}

func NewCatalogService(repos Repositories, images ImageStore) *CatalogService {
	return &CatalogService{
		stations:   repos.Stations,
		trainTypes: repos.TrainTypes,
		trains:     repos.Trains,
		routes:     repos.Routes,
		crew:       repos.Crew,
		images:     images,
	}
}

func (s *CatalogService) CreateStation(ctx context.Context, input CreateStationInput) (*domain.Station, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "this field may not be blank")
	}
	station := &domain.Station{Name: name, Latitude: input.Latitude, Longitude: input.Longitude}
	if err := s.stations.Create(ctx, station); err != nil {
		return nil, err
	}
	return station, nil
}

func (s *CatalogService) ListStations(ctx context.Context) ([]domain.Station, error) {
	return s.stations.List(ctx)
}

func (s *CatalogService) GetStation(ctx context.Context, id int64) (*domain.Station, error) {
	return s.stations.GetByID(ctx, id)
}

// UploadStationImage replaces the station picture. The previous file is
// removed only after the new path is stored.
func (s *CatalogService) UploadStationImage(ctx context.Context, id int64, image io.Reader) (*domain.Station, error) {
	current, err := s.stations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}

	rel, err := s.images.Save(media.StationsPrefix, current.Name, image)
	if err != nil {
		return nil, err
	}
	updated, err := s.stations.UpdateImage(ctx, id, rel)
	if err != nil {
		if rmErr := s.images.Remove(rel); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", rel).Msg("failed to remove orphaned image")
		}
		return nil, err
	}
	if current.Image != "" && current.Image != rel {
		if err := s.images.Remove(current.Image); err != nil {
			log.Warn().Err(err).Str("path", current.Image).Msg("failed to remove previous station image")
		}
	}
	return updated, nil
}

func (s *CatalogService) CreateTrainType(ctx context.Context, input CreateTrainTypeInput) (*domain.TrainType, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "this field may not be blank")
	}
	tt := &domain.TrainType{Name: name}
	if err := s.trainTypes.Create(ctx, tt); err != nil {
		return nil, err
	}
	return tt, nil
}

func (s *CatalogService) ListTrainTypes(ctx context.Context) ([]domain.TrainType, error) {
	return s.trainTypes.List(ctx)
}

func (s *CatalogService) CreateTrain(ctx context.Context, input CreateTrainInput) (*TrainDetails, error) {
	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		return nil, domain.NewValidationError("name", "this field may not be blank")
	case input.CargoNum <= 0:
		return nil, domain.NewValidationError("cargo_num", "must be a positive number")
	case input.PlacesInCargo <= 0:
		return nil, domain.NewValidationError("places_in_cargo", "must be a positive number")
	}

	details := &TrainDetails{Train: domain.Train{
		Name:          name,
		CargoNum:      input.CargoNum,
		PlacesInCargo: input.PlacesInCargo,
		TrainTypeID:   input.TrainTypeID,
	}}
	if input.TrainTypeID != nil {
		tt, err := s.trainTypes.GetByID(ctx, *input.TrainTypeID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.ReferenceError{Field: "train_type", ID: *input.TrainTypeID}
			}
			return nil, err
		}
		details.Type = tt
	}
	if err := s.trains.Create(ctx, &details.Train); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *CatalogService) ListTrains(ctx context.Context) ([]TrainDetails, error) {
	trains, err := s.trains.List(ctx)
	if err != nil {
		return nil, err
	}
	types, err := s.trainTypes.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.TrainType, len(types))
	for _, tt := range types {
		byID[tt.ID] = tt
	}

	out := make([]TrainDetails, 0, len(trains))
	for _, train := range trains {
		d := TrainDetails{Train: train}
		if train.TrainTypeID != nil {
			if tt, ok := byID[*train.TrainTypeID]; ok {
				d.Type = &tt
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *CatalogService) GetTrain(ctx context.Context, id int64) (*TrainDetails, error) {
	train, err := s.trains.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &TrainDetails{Train: *train}
	if train.TrainTypeID != nil {
		tt, err := s.trainTypes.GetByID(ctx, *train.TrainTypeID)
		if err != nil {
			return nil, fmt.Errorf("resolve train type of train %d: %w", id, err)
		}
		d.Type = tt
	}
	return d, nil
}

func (s *CatalogService) CreateRoute(ctx context.Context, input CreateRouteInput) (*RouteDetails, error) {
	if input.Distance <= 0 {
		return nil, domain.NewValidationError("distance", "must be a positive number")
	}
	source, err := s.resolveStation(ctx, "source", input.SourceID)
	if err != nil {
		return nil, err
	}
	destination, err := s.resolveStation(ctx, "destination", input.DestinationID)
	if err != nil {
		return nil, err
	}

	d := &RouteDetails{
		Route:       domain.Route{SourceID: input.SourceID, DestinationID: input.DestinationID, Distance: input.Distance},
		Source:      *source,
		Destination: *destination,
	}
	if err := s.routes.Create(ctx, &d.Route); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *CatalogService) ListRoutes(ctx context.Context) ([]RouteDetails, error) {
	routes, err := s.routes.List(ctx)
	if err != nil {
		return nil, err
	}
	stations, err := s.stations.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Station, len(stations))
	for _, st := range stations {
		byID[st.ID] = st
	}

	out := make([]RouteDetails, 0, len(routes))
	for _, r := range routes {
		out = append(out, RouteDetails{Route: r, Source: byID[r.SourceID], Destination: byID[r.DestinationID]})
	}
	return out, nil
}

func (s *CatalogService) CreateCrew(ctx context.Context, input CreateCrewInput) (*domain.Crew, error) {
	first, last := strings.TrimSpace(input.FirstName), strings.TrimSpace(input.LastName)
	if first == "" {
		return nil, domain.NewValidationError("first_name", "this field may not be blank")
	}
	if last == "" {
		return nil, domain.NewValidationError("last_name", "this field may not be blank")
	}
	c := &domain.Crew{FirstName: first, LastName: last}
	if err := s.crew.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) ListCrew(ctx context.Context) ([]domain.Crew, error) {
	return s.crew.List(ctx)
}

func (s *CatalogService) resolveStation(ctx context.Context, field string, id int64) (*domain.Station, error) {
	st, err := s.stations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ReferenceError{Field: field, ID: id}
		}
		return nil, err
	}
	return st, nil
}

var (
	_ StationUseCase = (*CatalogService)(nil)
	_ TrainUseCase   = (*CatalogService)(nil)
	_ RouteUseCase   = (*CatalogService)(nil)
	_ CrewUseCase    = (*CatalogService)(nil)
)
