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

func TestPutTimerHandler_CreatedVsUpdated(t *testing.T) {
	existing := map[string]bool{}
	service := &mockTimerService{
		applyFunc: func(ctx context.Context, subjectID string, update interfaces.TimerUpdate) (*interfaces.TimerResult, error) {
			created := !existing[subjectID]
			existing[subjectID] = true
			return &interfaces.TimerResult{
				Record:  &models.TimerRecord{SubjectID: subjectID, IsWorking: *update.IsWorking},
				Created: created,
			}, nil
		},
	}
	handler := NewTimerHandler(service, testLogger())

	rec := httptest.NewRecorder()
	handler.PutTimerHandler(rec, newRequest("PUT", "/api/timer/u1", `{"isWorking":true}`, "u1", models.RoleVolunteer))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u1", body["subjectId"])
	assert.Equal(t, true, body["created"])

	rec = httptest.NewRecorder()
	handler.PutTimerHandler(rec, newRequest("PUT", "/api/timer/u1", `{"isWorking":false,"pausedAt":"2024-05-01T10:00:00Z"}`, "u1", models.RoleVolunteer))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["created"])
}

func TestPutTimerHandler_PassesPausedAt(t *testing.T) {
	var got interfaces.TimerUpdate
	service := &mockTimerService{
		applyFunc: func(ctx context.Context, subjectID string, update interfaces.TimerUpdate) (*interfaces.TimerResult, error) {
			got = update
			return &interfaces.TimerResult{Record: &models.TimerRecord{SubjectID: subjectID, PausedAt: update.PausedAt}}, nil
		},
	}
	handler := NewTimerHandler(service, testLogger())

	rec := httptest.NewRecorder()
	handler.PutTimerHandler(rec, newRequest("PUT", "/api/timer/u1", `{"isWorking":false,"pausedAt":"2024-05-01T10:00:00Z"}`, "u1", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, got.IsWorking)
	assert.False(t, *got.IsWorking)
	require.NotNil(t, got.PausedAt)
	assert.True(t, got.PausedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
}

func TestPutTimerHandler_Validation(t *testing.T) {
	called := false
	service := &mockTimerService{
		applyFunc: func(ctx context.Context, subjectID string, update interfaces.TimerUpdate) (*interfaces.TimerResult, error) {
			called = true
			return nil, fmt.Errorf("%w: pausedAt is required", interfaces.ErrValidation)
		},
	}
	handler := NewTimerHandler(service, testLogger())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"isWorking":`},
		{"missing isWorking", `{"pausedAt":"2024-05-01T10:00:00Z"}`},
		{"bad timestamp", `{"isWorking":false,"pausedAt":"yesterday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.PutTimerHandler(rec, newRequest("PUT", "/api/timer/u1", tt.body, "u1", ""))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.False(t, called, "service must not run for rejected bodies")

	rec := httptest.NewRecorder()
	handler.PutTimerHandler(rec, newRequest("PUT", "/api/timer/u1", `{"isWorking":false}`, "u1", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutTimerHandler_Ambiguous(t *testing.T) {
	service := &mockTimerService{
		applyFunc: func(ctx context.Context, subjectID string, update interfaces.TimerUpdate) (*interfaces.TimerResult, error) {
			return nil, fmt.Errorf("%w: commit timed out", interfaces.ErrPersistenceAmbiguous)
		},
	}
	handler := NewTimerHandler(service, testLogger())

	rec := httptest.NewRecorder()
	handler.PutTimerHandler(rec, newRequest("PUT", "/api/timer/u1", `{"isWorking":true}`, "u1", ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "re-read")
}

func TestGetTimerHandler(t *testing.T) {
	pausedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	service := &mockTimerService{
		getStateFunc: func(ctx context.Context, subjectID string) (*models.TimerRecord, error) {
			if subjectID != "u1" {
				return nil, fmt.Errorf("%w: timer %s", interfaces.ErrNotFound, subjectID)
			}
			return &models.TimerRecord{SubjectID: "u1", PausedAt: &pausedAt}, nil
		},
	}
	handler := NewTimerHandler(service, testLogger())

	rec := httptest.NewRecorder()
	handler.GetTimerHandler(rec, newRequest("GET", "/api/timer/u1", "", "u1", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var record models.TimerRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "u1", record.SubjectID)
	assert.False(t, record.IsWorking)

	// A missing timer is reported as 400 on this endpoint
	rec = httptest.NewRecorder()
	handler.GetTimerHandler(rec, newRequest("GET", "/api/timer/u2", "", "u1", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimerHandlers_RejectAnonymousAndBadMethods(t *testing.T) {
	handler := NewTimerHandler(&mockTimerService{}, testLogger())

	rec := httptest.NewRecorder()
	handler.GetTimerHandler(rec, newRequest("GET", "/api/timer/u1", "", "", ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	handler.GetTimerHandler(rec, newRequest("DELETE", "/api/timer/u1", "", "u1", ""))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	handler.GetTimerHandler(rec, newRequest("GET", "/api/timer/", "", "u1", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
