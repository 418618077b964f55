package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"cnlistener/internal/supervisor"
)

type UnitHandler struct {
	sup    *supervisor.Supervisor
	logger *zap.Logger
}

func NewUnitHandler(sup *supervisor.Supervisor, logger *zap.Logger) *UnitHandler {
	return &UnitHandler{sup: sup, logger: logger}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h *UnitHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode json response", zap.Error(err))
	}
}

func (h *UnitHandler) writeError(w http.ResponseWriter, status int, err error, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   err.Error(),
		Message: message,
	})
}

func (h *UnitHandler) GetUnits(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.sup.Units())
}

func (h *UnitHandler) StartUnit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	if err := h.sup.Start(name); err != nil {
		if errors.Is(err, supervisor.ErrUnitNotFound) {
			h.writeError(w, http.StatusNotFound, err, "Unit not found: "+name)
			return
		}
		if errors.Is(err, supervisor.ErrUnitAlreadyRunning) {
			h.writeError(w, http.StatusConflict, err, "Unit already running: "+name)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err, "Failed to start unit")
		return
	}

	h.writeJSON(w, http.StatusOK, SuccessResponse{
		Status:  "started",
		Message: "Unit " + name + " started successfully",
	})
}

func (h *UnitHandler) StopUnit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	if err := h.sup.Stop(name); err != nil {
		if errors.Is(err, supervisor.ErrUnitNotFound) {
			h.writeError(w, http.StatusNotFound, err, "Unit not found: "+name)
			return
		}
		if errors.Is(err, supervisor.ErrUnitNotRunning) {
			h.writeError(w, http.StatusConflict, err, "Unit not running: "+name)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err, "Failed to stop unit")
		return
	}

	h.writeJSON(w, http.StatusOK, SuccessResponse{
		Status:  "stopped",
		Message: "Unit " + name + " stopped successfully",
	})
}

func (h *UnitHandler) RestartUnit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	if err := h.sup.Restart(name); err != nil {
		if errors.Is(err, supervisor.ErrUnitNotFound) {
			h.writeError(w, http.StatusNotFound, err, "Unit not found: "+name)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err, "Failed to restart unit")
		return
	}

	h.writeJSON(w, http.StatusOK, SuccessResponse{
		Status:  "restarted",
		Message: "Unit " + name + " restarted successfully",
	})
}

func (h *UnitHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.sup.Logs(50))
}

func (h *UnitHandler) GetUnitLogs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	h.writeJSON(w, http.StatusOK, h.sup.LogsByUnit(name, 50))
}
