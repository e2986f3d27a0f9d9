package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type CalculationRun struct {
	ID            uuid.UUID `json:"id"`
	Project       string    `json:"project"`
	Normative     string    `json:"normative"`
	CircuitType   string    `json:"circuit_type"`
	TotalCircuits int       `json:"total_circuits"`
	Successful    int       `json:"successful"`
	Failed        int       `json:"failed"`
	CreatedAt     time.Time `json:"created_at"`
}

type Repository interface {
	CreateUser(ctx context.Context, login, email, password string) (int, error)
	GetBylogin(ctx context.Context, login string) (int, string, error)
	RecordCalculationRun(ctx context.Context, run CalculationRun) error
	ListCalculationRuns(ctx context.Context, project string, limit int) ([]CalculationRun, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresDB(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateUser(ctx context.Context, login, email, password string) (int, error) {
	var id int
	query := "INSERT INTO users (login, email, password) VALUES ($1, $2, $3) RETURNING id"
	err := r.db.QueryRowContext(ctx, query, login, email, password).Scan(&id)
	return id, err
}

func (r *PostgresRepository) GetBylogin(ctx context.Context, login string) (int, string, error) {
	var id int
	var hash string

	query := "SELECT id, password FROM users WHERE login=$1"

	err := r.db.QueryRowContext(ctx, query, login).Scan(&id, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, "", nil
		}
		return 0, "", err
	}
	return id, hash, nil
}

func (r *PostgresRepository) RecordCalculationRun(ctx context.Context, run CalculationRun) error {
	query := `INSERT INTO calculation_runs
		(id, project, normative, circuit_type, total_circuits, successful, failed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Project, run.Normative, run.CircuitType,
		run.TotalCircuits, run.Successful, run.Failed, run.CreatedAt)
	return err
}

func (r *PostgresRepository) ListCalculationRuns(ctx context.Context, project string, limit int) ([]CalculationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, project, normative, circuit_type, total_circuits, successful, failed, created_at
		FROM calculation_runs WHERE project=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, project, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CalculationRun
	for rows.Next() {
		var run CalculationRun
		if err := rows.Scan(&run.ID, &run.Project, &run.Normative, &run.CircuitType,
			&run.TotalCircuits, &run.Successful, &run.Failed, &run.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
