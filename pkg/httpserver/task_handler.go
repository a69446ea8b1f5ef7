package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// TaskCreator is the subset of scheduler.Scheduler the dashboard handler
// needs to accept an operator-submitted task.
type TaskCreator interface {
	Create(spec types.Task) (*types.Task, error)
	Tasks() []*types.Task
	Task(id string) (*types.Task, bool)
	Cancel(id string) error
}

// TaskHandler exposes the task scheduler over HTTP for an operator
// dashboard: list/inspect running tasks, submit one manually, cancel one.
type TaskHandler struct {
	scheduler TaskCreator
	logger    *zap.Logger
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(scheduler TaskCreator, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{scheduler: scheduler, logger: logger}
}

// HandleList handles GET /api/tasks.
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, http.StatusOK, h.scheduler.Tasks())
}

// HandleCreate handles POST /api/tasks. The request body is a types.Task
// with Kind/Strategy/MarketIDA/ConditionIDB/ArbSide/Quantity/Params set;
// the scheduler assigns ID/Status/CreatedAt.
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var spec types.Task
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		h.writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	task, err := h.scheduler.Create(spec)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, types.ErrMarketBusy) {
			status = http.StatusConflict
		}
		var valErr *types.ValidationError
		if errors.As(err, &valErr) {
			status = http.StatusBadRequest
		}
		h.writeError(w, err.Error(), status)
		return
	}

	h.writeJSON(w, http.StatusCreated, task)
}

// HandleCancel handles POST /api/tasks/{id}/cancel.
func (h *TaskHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	taskID := chi.URLParam(r, "id")
	if taskID == "" {
		h.writeError(w, "missing task id", http.StatusBadRequest)
		return
	}

	if err := h.scheduler.Cancel(taskID); err != nil {
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *TaskHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *TaskHandler) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
