package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

// TaskService coordina lectura y escritura de tareas con el grafo de relaciones.
type TaskService struct {
	logger     *zap.Logger
	tasks      repository.TaskRepository
	graph      *RelationshipGraph
	gate       *AuthorizationGate
	visibility TaskVisibilityResolver
	now        func() time.Time
}

func NewTaskService(logger *zap.Logger, tasks repository.TaskRepository, graph *RelationshipGraph, gate *AuthorizationGate) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		logger: logger,
		tasks:  tasks,
		graph:  graph,
		gate:   gate,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// TaskListing es lo que ve una identidad en su pagina de tareas.
type TaskListing struct {
	People []domain.Peer     `json:"people"`
	Tasks  []domain.TaskView `json:"tasks"`
}

// List devuelve las tareas donde participa identityID. Como efecto secundario
// agrega relaciones por defecto con los coparticipantes desconocidos.
func (s *TaskService) List(ctx context.Context, identityID string) (TaskListing, error) {
	tasks, err := s.tasks.ListByParticipant(ctx, identityID)
	if err != nil {
		return TaskListing{}, err
	}

	var participants []string
	for _, task := range tasks {
		participants = append(participants, task.Participants...)
	}
	if err := s.graph.Backfill(ctx, identityID, participants); err != nil {
		return TaskListing{}, err
	}

	people, err := s.graph.List(ctx, identityID)
	if err != nil {
		return TaskListing{}, err
	}

	return TaskListing{
		People: people,
		Tasks:  s.visibility.ResolveAll(tasks, s.now()),
	}, nil
}

type SaveTaskInput struct {
	ID           string
	Title        string
	Description  string
	StartDate    *time.Time
	EndDate      *time.Time
	Participants []string
	Status       string
}

// Save crea una tarea nueva (sin ID) o reemplaza una existente.
func (s *TaskService) Save(ctx context.Context, editor domain.Identity, input SaveTaskInput) (domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Task{}, newValidationError("title", "The Title field is required.")
	}
	if input.StartDate == nil || input.StartDate.IsZero() {
		return domain.Task{}, newValidationError("startDate", "The Start Date field is required.")
	}
	if input.EndDate == nil || input.EndDate.IsZero() {
		return domain.Task{}, newValidationError("endDate", "The End Date field is required.")
	}
	if input.EndDate.Before(*input.StartDate) {
		return domain.Task{}, newValidationError("endDate", "The End Date cannot be before the Start Date.")
	}

	status := domain.TaskStatus(strings.TrimSpace(input.Status))
	switch status {
	case "":
		status = domain.TaskStatusIncomplete
	case domain.TaskStatusComplete, domain.TaskStatusIncomplete:
	default:
		return domain.Task{}, newValidationError("status", "The Status must be Complete or Incomplete.")
	}

	var task domain.Task
	if input.ID == "" {
		task = domain.Task{
			ID:        uuid.NewString(),
			CreatedBy: editor.DisplayName,
			CreatedAt: s.now(),
		}
	} else {
		existing, err := s.tasks.GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.Task{}, ErrNotFound
			}
			return domain.Task{}, err
		}
		task = existing
	}

	participants := dedupe(input.Participants)
	if err := s.gate.AuthorizeParticipants(ctx, editor.ID, task.Participants, participants); err != nil {
		return domain.Task{}, err
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = "-"
	}

	task.Title = title
	task.Description = description
	task.StartDate = input.StartDate.UTC()
	task.EndDate = input.EndDate.UTC()
	task.Participants = participants
	task.Status = status

	if err := s.tasks.Save(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// Delete elimina una tarea; solo un participante puede hacerlo.
func (s *TaskService) Delete(ctx context.Context, identityID, taskID string) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !task.HasParticipant(identityID) {
		return ErrNotFound
	}
	return s.tasks.Delete(ctx, taskID)
}

var csvHeader = []string{"Title", "Description", "Status", "Created By", "Start Date", "End Date"}

// ExportCSV escribe las tareas de identityID en formato CSV.
func (s *TaskService) ExportCSV(ctx context.Context, identityID string, w io.Writer) error {
	tasks, err := s.tasks.ListByParticipant(ctx, identityID)
	if err != nil {
		return err
	}
	now := s.now()
	out := csv.NewWriter(w)
	if err := out.Write(csvHeader); err != nil {
		return err
	}
	for _, task := range tasks {
		record := []string{
			task.Title,
			task.Description,
			string(ResolveStatus(task, now)),
			task.CreatedBy,
			task.StartDate.Format(time.RFC3339),
			task.EndDate.Format(time.RFC3339),
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

// PruneVacant borra tareas sin participantes.
func (s *TaskService) PruneVacant(ctx context.Context) (int64, error) {
	n, err := s.tasks.DeleteVacant(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("removed vacant tasks", zap.Int64("count", n))
	}
	return n, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
