package service

import (
	"fmt"
	"sort"
	"time"

	"tasktracker/internal/domain"
)

// TaskVisibilityResolver deriva el estado de lectura de una tarea.
type TaskVisibilityResolver struct{}

func (TaskVisibilityResolver) Resolve(task domain.Task, now time.Time) domain.TaskView {
	return domain.TaskView{
		Task:          task,
		DisplayStatus: ResolveStatus(task, now),
		TimeRemaining: HumanizeRemaining(task.EndDate, now),
	}
}

// ResolveAll resuelve y ordena las tareas, las que terminan antes primero.
func (r TaskVisibilityResolver) ResolveAll(tasks []domain.Task, now time.Time) []domain.TaskView {
	views := make([]domain.TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, r.Resolve(task, now))
	}
	SortBySoonestEnding(views, now)
	return views
}

// ResolveStatus conserva Complete; si no, Overdue gana sobre Future.
func ResolveStatus(task domain.Task, now time.Time) domain.TaskStatus {
	if task.Status == domain.TaskStatusComplete {
		return domain.TaskStatusComplete
	}
	switch {
	case now.After(task.EndDate):
		return domain.TaskStatusOverdue
	case now.Before(task.StartDate):
		return domain.TaskStatusFuture
	default:
		return domain.TaskStatusOpen
	}
}

// HumanizeRemaining expresa el tiempo hasta end en dias, o en horas si faltan
// (o pasaron) menos de 5 dias. Trunca hacia cero.
func HumanizeRemaining(end, now time.Time) string {
	remaining := end.Sub(now)
	days := int64(remaining / (24 * time.Hour))
	if days < 5 && days > -5 {
		return fmt.Sprintf("%d Hours", int64(remaining/time.Hour))
	}
	return fmt.Sprintf("%d Days", days)
}

func SortBySoonestEnding(views []domain.TaskView, now time.Time) {
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].EndDate.Sub(now) < views[j].EndDate.Sub(now)
	})
}
