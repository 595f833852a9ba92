package domain

import "time"

type TaskStatus string

const (
	TaskStatusComplete   TaskStatus = "Complete"
	TaskStatusIncomplete TaskStatus = "Incomplete"
	TaskStatusFuture     TaskStatus = "Future"
	TaskStatusOverdue    TaskStatus = "Overdue"
	TaskStatusOpen       TaskStatus = "Open"
)

type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	CreatedBy    string     `json:"created_by"`
	Participants []string   `json:"people"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      time.Time  `json:"end_date"`
	Status       TaskStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HasParticipant informa si id figura entre los participantes.
func (t Task) HasParticipant(id string) bool {
	for _, p := range t.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// TaskView es la tarea con el estado derivado para lectura.
type TaskView struct {
	Task
	DisplayStatus TaskStatus `json:"display_status"`
	TimeRemaining string     `json:"time_remaining"`
}

// Peer es la vista de una relacion para listados.
type Peer struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	Email           string `json:"email"`
	CanShare        bool   `json:"can_share"`
	CanBeSharedWith bool   `json:"can_be_shared_with"`
}

// Pending indica que el par ya permite compartir con el duenio pero el duenio
// todavia no devolvio el permiso.
func (p Peer) Pending() bool {
	return p.CanBeSharedWith && !p.CanShare
}
