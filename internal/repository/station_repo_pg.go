package repository

import (
	"context"

	"github.com/Domenick1991/railbooking/internal/domain"
)

type StationRepository interface {
	Create(ctx context.Context, station *domain.Station) error
	List(ctx context.Context) ([]domain.Station, error)
	GetByID(ctx context.Context, id int64) (*domain.Station, error)
	UpdateImage(ctx context.Context, id int64, image string) (*domain.Station, error)
}

type PGStationRepository struct {
	db DB
}

func NewStationRepository(db DB) StationRepository {
	return &PGStationRepository{db: db}
}

func (r *PGStationRepository) Create(ctx context.Context, station *domain.Station) error {
	err := r.db.QueryRow(ctx, `INSERT INTO stations (name, latitude, longitude) VALUES ($1, $2, $3) RETURNING id`,
		station.Name, station.Latitude, station.Longitude).Scan(&station.ID)
	return mapError(err, "station")
}

func (r *PGStationRepository) List(ctx context.Context) ([]domain.Station, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, latitude, longitude, image FROM stations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]domain.Station, 0)
	for rows.Next() {
		var s domain.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.Image); err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

func (r *PGStationRepository) GetByID(ctx context.Context, id int64) (*domain.Station, error) {
	var s domain.Station
	err := r.db.QueryRow(ctx, `SELECT id, name, latitude, longitude, image FROM stations WHERE id=$1`, id).
		Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.Image)
	if err != nil {
		return nil, mapError(err, "station")
	}
	return &s, nil
}

func (r *PGStationRepository) UpdateImage(ctx context.Context, id int64, image string) (*domain.Station, error) {
	var s domain.Station
	err := r.db.QueryRow(ctx, `UPDATE stations SET image=$1 WHERE id=$2 RETURNING id, name, latitude, longitude, image`, image, id).
		Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.Image)
	if err != nil {
		return nil, mapError(err, "station")
	}
	return &s, nil
}

var _ StationRepository = (*PGStationRepository)(nil)
