package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sinkapp/sink/internal/handler/dto"
	"github.com/sinkapp/sink/internal/service"
)

// TaskHandler handles chores.
type TaskHandler struct {
	svc    *service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/apartment/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	_, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}
	tasks, err := h.svc.ListTasks(r.Context(), apt.Code)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewListResponse(tasks))
}

// Create handles POST /api/v1/apartment/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	task, err := h.svc.CreateTask(r.Context(), apt, principal.UserID, service.CreateTaskInput{
		Title:    req.Title,
		Room:     req.Room,
		DueAt:    req.DueAt,
		Assignee: req.Assignee,
		ImageKey: req.ImageKey,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Complete handles POST /api/v1/apartment/tasks/{id}/complete.
// Completed tasks are removed.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	principal, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}
	if err := h.svc.CompleteTask(r.Context(), apt.Code, chi.URLParam(r, "id"), principal.UserID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
