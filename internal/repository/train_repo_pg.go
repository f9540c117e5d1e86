package repository

import (
	"context"

	"github.com/Domenick1991/railbooking/internal/domain"
)

type TrainTypeRepository interface {
	Create(ctx context.Context, trainType *domain.TrainType) error
	List(ctx context.Context) ([]domain.TrainType, error)
	GetByID(ctx context.Context, id int64) (*domain.TrainType, error)
}

type TrainRepository interface {
	Create(ctx context.Context, train *domain.Train) error
	List(ctx context.Context) ([]domain.Train, error)
	GetByID(ctx context.Context, id int64) (*domain.Train, error)
}

type PGTrainTypeRepository struct {
	db DB
}

func NewTrainTypeRepository(db DB) TrainTypeRepository {
	return &PGTrainTypeRepository{db: db}
}

func (r *PGTrainTypeRepository) Create(ctx context.Context, trainType *domain.TrainType) error {
	err := r.db.QueryRow(ctx, `INSERT INTO train_types (name) VALUES ($1) RETURNING id`, trainType.Name).Scan(&trainType.ID)
	return mapError(err, "train type")
}

func (r *PGTrainTypeRepository) List(ctx context.Context) ([]domain.TrainType, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM train_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]domain.TrainType, 0)
	for rows.Next() {
		var tt domain.TrainType
		if err := rows.Scan(&tt.ID, &tt.Name); err != nil {
			return nil, err
		}
		types = append(types, tt)
	}
	return types, rows.Err()
}

func (r *PGTrainTypeRepository) GetByID(ctx context.Context, id int64) (*domain.TrainType, error) {
	var tt domain.TrainType
	if err := r.db.QueryRow(ctx, `SELECT id, name FROM train_types WHERE id=$1`, id).Scan(&tt.ID, &tt.Name); err != nil {
		return nil, mapError(err, "train type")
	}
	return &tt, nil
}

type PGTrainRepository struct {
	db DB
}

func NewTrainRepository(db DB) TrainRepository {
	return &PGTrainRepository{db: db}
}

func (r *PGTrainRepository) Create(ctx context.Context, train *domain.Train) error {
	err := r.db.QueryRow(ctx, `INSERT INTO trains (name, cargo_num, places_in_cargo, train_type_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		train.Name, train.CargoNum, train.PlacesInCargo, train.TrainTypeID).Scan(&train.ID)
	return mapError(err, "train")
}

func (r *PGTrainRepository) List(ctx context.Context) ([]domain.Train, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, cargo_num, places_in_cargo, train_type_id FROM trains ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trains := make([]domain.Train, 0)
	for rows.Next() {
		var t domain.Train
		if err := rows.Scan(&t.ID, &t.Name, &t.CargoNum, &t.PlacesInCargo, &t.TrainTypeID); err != nil {
			return nil, err
		}
		trains = append(trains, t)
	}
	return trains, rows.Err()
}

func (r *PGTrainRepository) GetByID(ctx context.Context, id int64) (*domain.Train, error) {
	var t domain.Train
	err := r.db.QueryRow(ctx, `SELECT id, name, cargo_num, places_in_cargo, train_type_id FROM trains WHERE id=$1`, id).
		Scan(&t.ID, &t.Name, &t.CargoNum, &t.PlacesInCargo, &t.TrainTypeID)
	if err != nil {
		return nil, mapError(err, "train")
	}
	return &t, nil
}

var (
	_ TrainTypeRepository = (*PGTrainTypeRepository)(nil)
	_ TrainRepository     = (*PGTrainRepository)(nil)
)
