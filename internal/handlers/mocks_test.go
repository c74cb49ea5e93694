package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
)

// mockTimerService implements interfaces.TimerService for testing
type mockTimerService struct {
	applyFunc    func(ctx context.Context, subjectID string, update interfaces.TimerUpdate) (*interfaces.TimerResult, error)
	getStateFunc func(ctx context.Context, subjectID string) (*models.TimerRecord, error)
}

func (m *mockTimerService) Pause(ctx context.Context, subjectID string, pausedAt time.Time) (*interfaces.TimerResult, error) {
	working := false
	return m.Apply(ctx, subjectID, interfaces.TimerUpdate{IsWorking: &working, PausedAt: &pausedAt})
}

func (m *mockTimerService) Resume(ctx context.Context, subjectID string) (*interfaces.TimerResult, error) {
	working := true
	return m.Apply(ctx, subjectID, interfaces.TimerUpdate{IsWorking: &working})
}

func (m *mockTimerService) Apply(ctx context.Context, subjectID string, update interfaces.TimerUpdate) (*interfaces.TimerResult, error) {
	if m.applyFunc != nil {
		return m.applyFunc(ctx, subjectID, update)
	}
	return nil, interfaces.ErrNotFound
}

func (m *mockTimerService) GetState(ctx context.Context, subjectID string) (*models.TimerRecord, error) {
	if m.getStateFunc != nil {
		return m.getStateFunc(ctx, subjectID)
	}
	return nil, interfaces.ErrNotFound
}

func (m *mockTimerService) AutoPauseStale(ctx context.Context, maxWorking time.Duration) ([]string, error) {
	return nil, nil
}

// mockTimeLogService implements interfaces.TimeLogService for testing
type mockTimeLogService struct {
	startFunc      func(ctx context.Context, parentID, memberID, task string) (*interfaces.TimeLogResult, error)
	transitionFunc func(action, parentID string) (*interfaces.TimeLogResult, error)
	getFunc        func(ctx context.Context, parentID string) (*interfaces.SessionView, error)
	listFunc       func(ctx context.Context, memberID string) ([]*interfaces.SessionView, error)
}

func (m *mockTimeLogService) StartSession(ctx context.Context, parentID, memberID, task string) (*interfaces.TimeLogResult, error) {
	if m.startFunc != nil {
		return m.startFunc(ctx, parentID, memberID, task)
	}
	return nil, interfaces.ErrInvalidTransition
}

func (m *mockTimeLogService) PauseSession(ctx context.Context, parentID string) (*interfaces.TimeLogResult, error) {
	return m.transition("pause", parentID)
}

func (m *mockTimeLogService) ResumeSession(ctx context.Context, parentID string) (*interfaces.TimeLogResult, error) {
	return m.transition("resume", parentID)
}

func (m *mockTimeLogService) CompleteSession(ctx context.Context, parentID string) (*interfaces.TimeLogResult, error) {
	return m.transition("complete", parentID)
}

func (m *mockTimeLogService) transition(action, parentID string) (*interfaces.TimeLogResult, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(action, parentID)
	}
	return nil, interfaces.ErrNotFound
}

func (m *mockTimeLogService) GetSession(ctx context.Context, parentID string) (*interfaces.SessionView, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, parentID)
	}
	return nil, interfaces.ErrNotFound
}

func (m *mockTimeLogService) ListMemberSessions(ctx context.Context, memberID string) ([]*interfaces.SessionView, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, memberID)
	}
	return []*interfaces.SessionView{}, nil
}

// mockTrackingService implements interfaces.TrackingService for testing
type mockTrackingService struct {
	listFunc func(ctx context.Context, requester models.Identity, subjectID string) ([]*models.TrackingEvent, error)
}

func (m *mockTrackingService) Record(ctx context.Context, subjectID string, eventType models.TrackingEventType, timestamp time.Time) (*models.TrackingEvent, error) {
	return &models.TrackingEvent{SubjectID: subjectID, EventType: eventType, Timestamp: timestamp}, nil
}

func (m *mockTrackingService) ListRecent(ctx context.Context, requester models.Identity, subjectID string) ([]*models.TrackingEvent, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, requester, subjectID)
	}
	return []*models.TrackingEvent{}, nil
}

// selfOrAdmin mirrors the production authorization rule
type selfOrAdmin struct{}

func (selfOrAdmin) CanViewTracking(requester models.Identity, subjectID string) error {
	if requester.UserID == subjectID || requester.Role == models.RoleAdministrator || requester.Role == models.RoleOwner {
		return nil
	}
	return interfaces.ErrForbidden
}

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

// newRequest builds a request authenticated as userID (anonymous when empty)
func newRequest(method, target, body, userID string, role models.Role) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req = req.WithContext(WithIdentity(req.Context(), models.Identity{UserID: userID, Role: role}))
	}
	return req
}
