package repository

import (
	"context"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type CrewRepository interface {
	Create(ctx context.Context, crew *domain.Crew) error
	List(ctx context.Context) ([]domain.Crew, error)
	// ListByIDs returns the crew members found among ids; missing ids are skipped.
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Crew, error)
}

type PGCrewRepository struct {
	db DB
}

func NewCrewRepository(db DB) CrewRepository {
	return &PGCrewRepository{db: db}
}

func (r *PGCrewRepository) Create(ctx context.Context, crew *domain.Crew) error {
	err := r.db.QueryRow(ctx, `INSERT INTO crew (first_name, last_name) VALUES ($1, $2) RETURNING id`,
		crew.FirstName, crew.LastName).Scan(&crew.ID)
	return mapError(err, "crew")
}

func (r *PGCrewRepository) List(ctx context.Context) ([]domain.Crew, error) {
	rows, err := r.db.Query(ctx, `SELECT id, first_name, last_name FROM crew ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanCrew(rows)
}

func (r *PGCrewRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Crew, error) {
	rows, err := r.db.Query(ctx, `SELECT id, first_name, last_name FROM crew WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return scanCrew(rows)
}

func scanCrew(rows pgx.Rows) ([]domain.Crew, error) {
	defer rows.Close()

	crew := make([]domain.Crew, 0)
	for rows.Next() {
		var c domain.Crew
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName); err != nil {
			return nil, err
		}
		crew = append(crew, c)
	}
	return crew, rows.Err()
}

var _ CrewRepository = (*PGCrewRepository)(nil)
