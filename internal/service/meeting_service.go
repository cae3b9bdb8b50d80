package service

import (
	"bytes"
	"classhub_backend/internal/config"
	"classhub_backend/internal/util"
	"classhub_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type MeetingRequest struct {
	Title           string
	Description     string
	StartTime       time.Time
	DurationMinutes int
	Record          bool
	WaitingRoom     bool
	Password        string
}

type Meeting struct {
	ID       string `json:"meetingId"`
	JoinURL  string `json:"joinUrl"`
	Password string `json:"password,omitempty"`
}

type MeetingParticipant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	JoinTime  time.Time `json:"joinTime"`
	LeaveTime time.Time `json:"leaveTime"`
	Duration  int       `json:"duration"` // seconds
}

type MeetingRecording struct {
	ID          string    `json:"id"`
	FileType    string    `json:"fileType"`
	PlayURL     string    `json:"playUrl"`
	DownloadURL string    `json:"downloadUrl"`
	Size        int64     `json:"size"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt"`
}

// MeetingProvider hosts the remote sessions behind live classes.
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, req MeetingRequest) (*Meeting, error)
	Participants(ctx context.Context, meetingID string) ([]MeetingParticipant, error)
	Recordings(ctx context.Context, meetingID string) ([]MeetingRecording, error)
}

// ZoomClient talks to the Zoom REST API using server-to-server OAuth.
type ZoomClient struct {
	baseURL string
	userID  string
	client  *http.Client
}

// NewZoomClient returns nil when the provider is disabled.
func NewZoomClient(cfg config.MeetingConfig) *ZoomClient {
	if !cfg.Enabled {
		return nil
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		},
	}
	client := cc.Client(context.Background())
	client.Timeout = 15 * time.Second

	userID := cfg.UserID
	if userID == "" {
		userID = "me"
	}
	return &ZoomClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		userID:  userID,
		client:  client,
	}
}

func (z *ZoomClient) CreateMeeting(ctx context.Context, req MeetingRequest) (*Meeting, error) {
	recording := "none"
	if req.Record {
		recording = "cloud"
	}
	body := map[string]interface{}{
		"topic":      req.Title,
		"type":       2,
		"start_time": req.StartTime.UTC().Format(time.RFC3339),
		"duration":   req.DurationMinutes,
		"timezone":   "UTC",
		"agenda":     req.Description,
		"settings": map[string]interface{}{
			"auto_recording":   recording,
			"waiting_room":     req.WaitingRoom,
			"join_before_host": false,
		},
	}
	if req.Password != "" {
		body["password"] = req.Password
	}

	var out struct {
		ID       json.Number `json:"id"`
		JoinURL  string      `json:"join_url"`
		Password string      `json:"password"`
	}
	if err := z.do(ctx, http.MethodPost, "/users/"+url.PathEscape(z.userID)+"/meetings", body, &out); err != nil {
		return nil, err
	}
	return &Meeting{ID: out.ID.String(), JoinURL: out.JoinURL, Password: out.Password}, nil
}

func (z *ZoomClient) Participants(ctx context.Context, meetingID string) ([]MeetingParticipant, error) {
	var out struct {
		Participants []struct {
			ID        string    `json:"id"`
			Name      string    `json:"name"`
			Email     string    `json:"user_email"`
			JoinTime  time.Time `json:"join_time"`
			LeaveTime time.Time `json:"leave_time"`
			Duration  int       `json:"duration"`
		} `json:"participants"`
	}
	if err := z.do(ctx, http.MethodGet, "/report/meetings/"+url.PathEscape(meetingID)+"/participants?page_size=300", nil, &out); err != nil {
		return nil, err
	}

	list := make([]MeetingParticipant, 0, len(out.Participants))
	for _, p := range out.Participants {
		list = append(list, MeetingParticipant{
			ID:        p.ID,
			Name:      p.Name,
			Email:     p.Email,
			JoinTime:  p.JoinTime,
			LeaveTime: p.LeaveTime,
			Duration:  p.Duration,
		})
	}
	return list, nil
}

func (z *ZoomClient) Recordings(ctx context.Context, meetingID string) ([]MeetingRecording, error) {
	var out struct {
		Files []struct {
			ID          string    `json:"id"`
			FileType    string    `json:"file_type"`
			PlayURL     string    `json:"play_url"`
			DownloadURL string    `json:"download_url"`
			Size        int64     `json:"file_size"`
			Start       time.Time `json:"recording_start"`
			End         time.Time `json:"recording_end"`
		} `json:"recording_files"`
	}
	if err := z.do(ctx, http.MethodGet, "/meetings/"+url.PathEscape(meetingID)+"/recordings", nil, &out); err != nil {
		return nil, err
	}

	list := make([]MeetingRecording, 0, len(out.Files))
	for _, f := range out.Files {
		list = append(list, MeetingRecording{
			ID:          f.ID,
			FileType:    f.FileType,
			PlayURL:     f.PlayURL,
			DownloadURL: f.DownloadURL,
			Size:        f.Size,
			StartedAt:   f.Start,
			EndedAt:     f.End,
		})
	}
	return list, nil
}

// do performs one call. Every failure, including token errors, comes back as
// ErrUpstreamUnavailable.
func (z *ZoomClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, z.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := z.client.Do(req)
	if err != nil {
		return upstream("meeting", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= http.StatusBadRequest {
		return upstream("meeting", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return upstream("meeting", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func upstream(provider string, err error) error {
	monitoring.UpstreamFailures.WithLabelValues(provider).Inc()
	return fmt.Errorf("%w: %s: %v", util.ErrUpstreamUnavailable, provider, err)
}
