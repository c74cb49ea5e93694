package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route - live tracking feed
	mux.HandleFunc("/ws/tracking", s.app.WSHandler.HandleWebSocket)

	// API routes - Timers (pause/resume state machine)
	mux.HandleFunc("/api/timer/", s.handleTimerRoutes) // GET/PUT /{subjectId}

	// API routes - Time logs (interval-based sessions)
	mux.HandleFunc("/api/timelogs/", s.app.TimeLogHandler.TimeLogRoutes)         // GET /{parentId}, POST /{parentId}/{action}
	mux.HandleFunc("/api/members/", s.app.TimeLogHandler.MemberTimeLogsHandler) // GET /{memberId}/timelogs

	// API routes - Tracking history
	mux.HandleFunc("/api/timelogTracking/", s.app.TrackingHandler.ListTrackingHandler) // GET /{userId}

	// API routes - Scheduler
	mux.HandleFunc("/api/jobs", s.app.SchedulerHandler.ListJobsHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleTimerRoutes routes /api/timer/{subjectId} by method
func (s *Server) handleTimerRoutes(w http.ResponseWriter, r *http.Request) {
	RouteResourceItem(w, r, s.app.TimerHandler.GetTimerHandler, s.app.TimerHandler.PutTimerHandler)
}
