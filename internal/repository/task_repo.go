package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasktracker/internal/domain"
)

// TaskRepository define el contrato de persistencia para tareas.
type TaskRepository interface {
	Save(ctx context.Context, task domain.Task) error
	GetByID(ctx context.Context, id string) (domain.Task, error)
	ListByParticipant(ctx context.Context, identityID string) ([]domain.Task, error)
	Delete(ctx context.Context, id string) error
	DeleteVacant(ctx context.Context) (int64, error)
}

type PgTaskRepository struct {
	pool *pgxpool.Pool
}

func NewPgTaskRepository(pool *pgxpool.Pool) *PgTaskRepository {
	return &PgTaskRepository{pool: pool}
}

const taskColumns = `id, title, description, created_by, participants, start_date, end_date, status, created_at`

// Save inserta o reemplaza la tarea completa.
func (r *PgTaskRepository) Save(ctx context.Context, task domain.Task) error {
	const query = `
		INSERT INTO tasks (id, title, description, created_by, participants, start_date, end_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			created_by = EXCLUDED.created_by,
			participants = EXCLUDED.participants,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			status = EXCLUDED.status
	`
	participants := task.Participants
	if participants == nil {
		participants = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.CreatedBy,
		participants,
		task.StartDate,
		task.EndDate,
		string(task.Status),
		task.CreatedAt,
	)
	return err
}

func (r *PgTaskRepository) GetByID(ctx context.Context, id string) (domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return domain.Task{}, err
	}
	return pgx.CollectExactlyOneRow(rows, scanTask)
}

func (r *PgTaskRepository) ListByParticipant(ctx context.Context, identityID string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE $1 = ANY(participants) ORDER BY end_date`
	rows, err := r.pool.Query(ctx, query, identityID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanTask)
}

func (r *PgTaskRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

// DeleteVacant elimina las tareas sin participantes.
func (r *PgTaskRepository) DeleteVacant(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE cardinality(participants) = 0`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanTask(row pgx.CollectableRow) (domain.Task, error) {
	var (
		t      domain.Task
		status string
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.CreatedBy,
		&t.Participants,
		&t.StartDate,
		&t.EndDate,
		&status,
		&t.CreatedAt,
	)
	t.Status = domain.TaskStatus(status)
	return t, err
}
