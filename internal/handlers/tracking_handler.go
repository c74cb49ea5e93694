package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
)

// TrackingHandler serves the tracking event history
type TrackingHandler struct {
	trackingService interfaces.TrackingService
	logger          arbor.ILogger
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(trackingService interfaces.TrackingService, logger arbor.ILogger) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
		logger:          logger,
	}
}

// ListTrackingHandler handles GET /api/timelogTracking/{userId} - the most
// recent events for the user, newest first. Callers may read their own
// history; elevated roles may read anyone's.
func (h *TrackingHandler) ListTrackingHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	identity, ok := RequireIdentity(w, r)
	if !ok {
		return
	}

	segments, err := PathSegments(r, "/api/timelogTracking/")
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(segments) != 1 {
		WriteError(w, http.StatusBadRequest, "User ID is required")
		return
	}
	userID := segments[0]

	events, err := h.trackingService.ListRecent(r.Context(), identity, userID)
	if err != nil {
		WriteServiceError(w, h.logger, err, http.StatusNotFound)
		return
	}

	h.logger.Debug().
		Str("user_id", userID).
		Str("requester", identity.UserID).
		Int("count", len(events)).
		Msg("Listed tracking events")

	WriteJSON(w, http.StatusOK, events)
}
