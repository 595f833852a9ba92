package http

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/service"
)

// TaskHandler expone las tareas de la identidad en sesion.
type TaskHandler struct {
	logger *zap.Logger
	tasks  *service.TaskService
}

func NewTaskHandler(logger *zap.Logger, tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{logger: logger, tasks: tasks}
}

// List maneja GET /.
func (h *TaskHandler) List(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	listing, err := h.tasks.List(c.Request.Context(), identity.ID)
	if err != nil {
		respondError(c, h.logger, "list tasks", err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Save maneja POST /: crea una tarea si no hay id, si no la reemplaza.
func (h *TaskHandler) Save(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req struct {
		ID          string   `json:"id"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		StartDate   string   `json:"startDate"`
		EndDate     string   `json:"endDate"`
		People      []string `json:"people"`
		Status      string   `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "The request body is not valid JSON.")
		return
	}

	start, err := parseTaskDate(req.StartDate)
	if err != nil {
		badRequest(c, "The Start Date is not a valid date.")
		return
	}
	end, err := parseTaskDate(req.EndDate)
	if err != nil {
		badRequest(c, "The End Date is not a valid date.")
		return
	}

	task, err := h.tasks.Save(c.Request.Context(), identity, service.SaveTaskInput{
		ID:           req.ID,
		Title:        req.Title,
		Description:  req.Description,
		StartDate:    start,
		EndDate:      end,
		Participants: req.People,
		Status:       req.Status,
	})
	if err != nil {
		respondError(c, h.logger, "save task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Delete maneja DELETE /.
func (h *TaskHandler) Delete(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		badRequest(c, "The \"id\" field is required.")
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), identity.ID, req.ID); err != nil {
		respondError(c, h.logger, "delete task", err)
		return
	}
	c.Status(http.StatusOK)
}

// ExportCSV maneja GET /csv.
func (h *TaskHandler) ExportCSV(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.tasks.ExportCSV(c.Request.Context(), identity.ID, &buf); err != nil {
		respondError(c, h.logger, "export csv", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="tasks.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

var taskDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseTaskDate devuelve nil para un valor vacio; el servicio decide si es requerido.
func parseTaskDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range taskDateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
