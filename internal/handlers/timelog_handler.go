package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
)

// TimeLogHandler handles the interval-based time log endpoints
type TimeLogHandler struct {
	timeLogService interfaces.TimeLogService
	logger         arbor.ILogger
}

// NewTimeLogHandler creates a new time log handler
func NewTimeLogHandler(timeLogService interfaces.TimeLogService, logger arbor.ILogger) *TimeLogHandler {
	return &TimeLogHandler{
		timeLogService: timeLogService,
		logger:         logger,
	}
}

type startSessionRequest struct {
	MemberID string `json:"memberId" validate:"required"`
	Task     string `json:"task" validate:"max=512"`
}

// TimeLogRoutes dispatches /api/timelogs/{parentId}[/{action}]
func (h *TimeLogHandler) TimeLogRoutes(w http.ResponseWriter, r *http.Request) {
	segments, err := PathSegments(r, "/api/timelogs/")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch len(segments) {
	case 1:
		h.GetTimeLogHandler(w, r, segments[0])
	case 2:
		parentID, action := segments[0], segments[1]
		switch action {
		case "start":
			h.StartSessionHandler(w, r, parentID)
		case "pause":
			h.transition(w, r, parentID, action, h.timeLogService.PauseSession)
		case "resume":
			h.transition(w, r, parentID, action, h.timeLogService.ResumeSession)
		case "complete":
			h.transition(w, r, parentID, action, h.timeLogService.CompleteSession)
		default:
			WriteError(w, http.StatusNotFound, "Unknown time log action: "+action)
		}
	default:
		WriteError(w, http.StatusBadRequest, "Parent ID is required")
	}
}

// StartSessionHandler handles POST /api/timelogs/{parentId}/start.
// Responds 201 when the log was created and 200 when a paused log was reopened.
func (h *TimeLogHandler) StartSessionHandler(w http.ResponseWriter, r *http.Request, parentID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := RequireIdentity(w, r); !ok {
		return
	}

	var req startSessionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.timeLogService.StartSession(r.Context(), parentID, req.MemberID, req.Task)
	if err != nil {
		WriteServiceError(w, h.logger, err, http.StatusNotFound)
		return
	}

	statusCode := http.StatusOK
	if result.Created {
		statusCode = http.StatusCreated
	}

	h.logger.Debug().
		Str("parent_id", parentID).
		Str("member_id", req.MemberID).
		Bool("created", result.Created).
		Msg("Time log session started")

	WriteJSON(w, statusCode, map[string]interface{}{
		"status":  "success",
		"created": result.Created,
		"timeLog": result.Log,
	})
}

func (h *TimeLogHandler) transition(w http.ResponseWriter, r *http.Request, parentID, action string,
	fn func(ctx context.Context, parentID string) (*interfaces.TimeLogResult, error)) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if _, ok := RequireIdentity(w, r); !ok {
		return
	}

	result, err := fn(r.Context(), parentID)
	if err != nil {
		WriteServiceError(w, h.logger, err, http.StatusNotFound)
		return
	}

	h.logger.Debug().
		Str("parent_id", parentID).
		Str("action", action).
		Str("status", string(result.Log.Status)).
		Int64("total_elapsed_ms", result.Log.TotalElapsedMs).
		Msg("Time log transition applied")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"timeLog": result.Log,
	})
}

// GetTimeLogHandler handles GET /api/timelogs/{parentId}
func (h *TimeLogHandler) GetTimeLogHandler(w http.ResponseWriter, r *http.Request, parentID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if _, ok := RequireIdentity(w, r); !ok {
		return
	}

	view, err := h.timeLogService.GetSession(r.Context(), parentID)
	if err != nil {
		WriteServiceError(w, h.logger, err, http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, view)
}

// MemberTimeLogsHandler handles GET /api/members/{memberId}/timelogs
func (h *TimeLogHandler) MemberTimeLogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if _, ok := RequireIdentity(w, r); !ok {
		return
	}

	segments, err := PathSegments(r, "/api/members/")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(segments) != 2 || segments[1] != "timelogs" {
		WriteError(w, http.StatusNotFound, "Unknown member resource")
		return
	}

	views, err := h.timeLogService.ListMemberSessions(r.Context(), segments[0])
	if err != nil {
		WriteServiceError(w, h.logger, err, http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"memberId": segments[0],
		"count":    len(views),
		"timeLogs": views,
	})
}
