package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
)

// TimerHandler handles the per-subject pause/resume timer endpoints
type TimerHandler struct {
	timerService interfaces.TimerService
	logger       arbor.ILogger
}

// NewTimerHandler creates a new timer handler
func NewTimerHandler(timerService interfaces.TimerService, logger arbor.ILogger) *TimerHandler {
	return &TimerHandler{
		timerService: timerService,
		logger:       logger,
	}
}

// timerRequest is the PUT body. Both fields are pointers so that an omitted
// field can be told apart from a zero value.
type timerRequest struct {
	IsWorking *bool      `json:"isWorking" validate:"required"`
	PausedAt  *time.Time `json:"pausedAt"`
}

// PutTimerHandler handles PUT /api/timer/{subjectId} - pauses or resumes the timer.
// Responds 201 when the record was created and 200 when it was updated.
func (h *TimerHandler) PutTimerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}
	if _, ok := RequireIdentity(w, r); !ok {
		return
	}

	subjectID, ok := h.subjectID(w, r)
	if !ok {
		return
	}

	var req timerRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.timerService.Apply(r.Context(), subjectID, interfaces.TimerUpdate{
		IsWorking: req.IsWorking,
		PausedAt:  req.PausedAt,
	})
	if err != nil {
		WriteServiceError(w, h.logger, err, http.StatusNotFound)
		return
	}

	statusCode := http.StatusOK
	message := "Timer updated successfully"
	if result.Created {
		statusCode = http.StatusCreated
		message = "Timer created successfully"
	}

	h.logger.Debug().
		Str("subject_id", subjectID).
		Bool("is_working", result.Record.IsWorking).
		Bool("created", result.Created).
		Msg("Timer transition applied")

	WriteJSON(w, statusCode, map[string]interface{}{
		"status":    "success",
		"message":   message,
		"subjectId": subjectID,
		"created":   result.Created,
		"timer":     result.Record,
	})
}

// GetTimerHandler handles GET /api/timer/{subjectId}. A missing record is a
// 400 on this endpoint, which existing clients depend on.
func (h *TimerHandler) GetTimerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if _, ok := RequireIdentity(w, r); !ok {
		return
	}

	subjectID, ok := h.subjectID(w, r)
	if !ok {
		return
	}

	record, err := h.timerService.GetState(r.Context(), subjectID)
	if err != nil {
		WriteServiceError(w, h.logger, err, http.StatusBadRequest)
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

func (h *TimerHandler) subjectID(w http.ResponseWriter, r *http.Request) (string, bool) {
	segments, err := PathSegments(r, "/api/timer/")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	if len(segments) != 1 {
		WriteError(w, http.StatusBadRequest, "Subject ID is required")
		return "", false
	}
	return segments[0], true
}
