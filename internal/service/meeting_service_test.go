package service

import (
	"classhub_backend/internal/config"
	"classhub_backend/internal/util"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestZoom(t *testing.T, handler http.HandlerFunc) *ZoomClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &ZoomClient{baseURL: srv.URL, userID: "me", client: srv.Client()}
}

func TestNewZoomClientDisabled(t *testing.T) {
	assert.Nil(t, NewZoomClient(config.MeetingConfig{Enabled: false}))
}

func TestZoom_CreateMeeting(t *testing.T) {
	zoom := newTestZoom(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/me/meetings", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Fractions live", body["topic"])
		assert.Equal(t, "2025-03-10T10:00:00Z", body["start_time"])
		assert.EqualValues(t, 45, body["duration"])
		assert.Equal(t, "secret1", body["password"])
		settings := body["settings"].(map[string]interface{})
		assert.Equal(t, "cloud", settings["auto_recording"])
		assert.Equal(t, true, settings["waiting_room"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 85012345678, "join_url": "https://zoom.us/j/85012345678", "password": "secret1"}`))
	})

	start := time.Date(2025, 3, 10, 11, 0, 0, 0, time.FixedZone("CET", 3600))
	m, err := zoom.CreateMeeting(context.Background(), MeetingRequest{
		Title: "Fractions live", StartTime: start, DurationMinutes: 45,
		Record: true, WaitingRoom: true, Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "85012345678", m.ID)
	assert.Equal(t, "https://zoom.us/j/85012345678", m.JoinURL)
	assert.Equal(t, "secret1", m.Password)
}

func TestZoom_Participants(t *testing.T) {
	zoom := newTestZoom(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/report/meetings/850/participants", r.URL.Path)
		assert.Equal(t, "300", r.URL.Query().Get("page_size"))
		_, _ = w.Write([]byte(`{"participants":[
			{"id":"u1","name":"Ada","user_email":"ada@example.com","join_time":"2025-03-10T10:00:00Z","leave_time":"2025-03-10T10:40:00Z","duration":2400}
		]}`))
	})

	list, err := zoom.Participants(context.Background(), "850")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ada@example.com", list[0].Email)
	assert.Equal(t, 2400, list[0].Duration)
	assert.Equal(t, 40*time.Minute, list[0].LeaveTime.Sub(list[0].JoinTime))
}

func TestZoom_Recordings(t *testing.T) {
	zoom := newTestZoom(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meetings/850/recordings", r.URL.Path)
		_, _ = w.Write([]byte(`{"recording_files":[
			{"id":"f1","file_type":"MP4","play_url":"https://zoom.us/rec/play/f1","download_url":"https://zoom.us/rec/download/f1","file_size":1048576}
		]}`))
	})

	list, err := zoom.Recordings(context.Background(), "850")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "MP4", list[0].FileType)
	assert.EqualValues(t, 1048576, list[0].Size)
}

func TestZoom_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"error status", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"code":124,"message":"Invalid access token."}`, http.StatusUnauthorized)
		}},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"participants":`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestZoom(t, tt.handler).Participants(context.Background(), "850")
			assert.ErrorIs(t, err, util.ErrUpstreamUnavailable)
		})
	}
}
