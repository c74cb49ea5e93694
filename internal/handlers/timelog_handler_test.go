package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
)

func TestStartSessionHandler(t *testing.T) {
	var gotMember, gotTask string
	service := &mockTimeLogService{
		startFunc: func(ctx context.Context, parentID, memberID, task string) (*interfaces.TimeLogResult, error) {
			gotMember, gotTask = memberID, task
			if parentID == "done" {
				return nil, fmt.Errorf("%w: time log is completed", interfaces.ErrInvalidTransition)
			}
			return &interfaces.TimeLogResult{
				Log:     &models.TimeLog{ID: parentID, MemberID: memberID, Status: models.TimeLogStatusOngoing},
				Created: parentID == "new",
			}, nil
		},
	}
	handler := NewTimeLogHandler(service, testLogger())

	rec := httptest.NewRecorder()
	handler.TimeLogRoutes(rec, newRequest("POST", "/api/timelogs/new/start", `{"memberId":"m1","task":"sorting"}`, "m1", ""))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "m1", gotMember)
	assert.Equal(t, "sorting", gotTask)

	rec = httptest.NewRecorder()
	handler.TimeLogRoutes(rec, newRequest("POST", "/api/timelogs/paused/start", `{"memberId":"m1"}`, "m1", ""))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.TimeLogRoutes(rec, newRequest("POST", "/api/timelogs/done/start", `{"memberId":"m1"}`, "m1", ""))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	handler.TimeLogRoutes(rec, newRequest("POST", "/api/timelogs/new/start", `{"task":"x"}`, "m1", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimeLogTransitions(t *testing.T) {
	var actions []string
	service := &mockTimeLogService{
		transitionFunc: func(action, parentID string) (*interfaces.TimeLogResult, error) {
			if parentID == "missing" {
				return nil, fmt.Errorf("%w: time log %s", interfaces.ErrNotFound, parentID)
			}
			if parentID == "done" {
				return nil, interfaces.ErrInvalidTransition
			}
			actions = append(actions, action)
			return &interfaces.TimeLogResult{Log: &models.TimeLog{ID: parentID, Status: models.TimeLogStatusPaused}}, nil
		},
	}
	handler := NewTimeLogHandler(service, testLogger())

	for _, action := range []string{"pause", "resume", "complete"} {
		rec := httptest.NewRecorder()
		handler.TimeLogRoutes(rec, newRequest("POST", "/api/timelogs/p1/"+action, "", "m1", ""))
		assert.Equal(t, http.StatusOK, rec.Code, action)
	}
	assert.Equal(t, []string{"pause", "resume", "complete"}, actions)

	rec := httptest.NewRecorder()
	handler.TimeLogRoutes(rec, newRequest("POST", "/api/timelogs/missing/pause", "", "m1", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.TimeLogRoutes(rec, newRequest("POST", "/api/timelogs/done/resume", "", "m1", ""))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	handler.TimeLogRoutes(rec, newRequest("POST", "/api/timelogs/p1/explode", "", "m1", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.TimeLogRoutes(rec, newRequest("GET", "/api/timelogs/p1/pause", "", "m1", ""))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetTimeLogHandler(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	service := &mockTimeLogService{
		getFunc: func(ctx context.Context, parentID string) (*interfaces.SessionView, error) {
			if parentID != "p1" {
				return nil, interfaces.ErrNotFound
			}
			return &interfaces.SessionView{
				Log: &models.TimeLog{
					ID:             "p1",
					MemberID:       "m1",
					Status:         models.TimeLogStatusOngoing,
					Intervals:      []models.Interval{{StartTime: start}},
					TotalElapsedMs: 60000,
				},
				CurrentSessionMs: 5000,
				ElapsedMs:        65000,
			}, nil
		},
	}
	handler := NewTimeLogHandler(service, testLogger())

	rec := httptest.NewRecorder()
	handler.TimeLogRoutes(rec, newRequest("GET", "/api/timelogs/p1", "", "m1", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TimeLog          models.TimeLog `json:"timeLog"`
		CurrentSessionMs int64          `json:"currentSessionMs"`
		ElapsedMs        int64          `json:"elapsedMs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "p1", body.TimeLog.ID)
	assert.Equal(t, int64(60000), body.TimeLog.TotalElapsedMs)
	assert.Equal(t, int64(5000), body.CurrentSessionMs)
	assert.Equal(t, int64(65000), body.ElapsedMs)

	rec = httptest.NewRecorder()
	handler.TimeLogRoutes(rec, newRequest("GET", "/api/timelogs/p2", "", "m1", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMemberTimeLogsHandler(t *testing.T) {
	service := &mockTimeLogService{
		listFunc: func(ctx context.Context, memberID string) ([]*interfaces.SessionView, error) {
			return []*interfaces.SessionView{
				{Log: &models.TimeLog{ID: "p2", MemberID: memberID}},
				{Log: &models.TimeLog{ID: "p1", MemberID: memberID}},
			}, nil
		},
	}
	handler := NewTimeLogHandler(service, testLogger())

	rec := httptest.NewRecorder()
	handler.MemberTimeLogsHandler(rec, newRequest("GET", "/api/members/m1/timelogs", "", "m1", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "m1", body["memberId"])
	assert.Equal(t, float64(2), body["count"])

	rec = httptest.NewRecorder()
	handler.MemberTimeLogsHandler(rec, newRequest("GET", "/api/members/m1/other", "", "m1", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
