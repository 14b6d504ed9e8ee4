package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"classwatch/pkg/interfaces"
	"classwatch/pkg/types"
)

// Client talks to the monitoring backend's REST surface. Every call is
// a single attempt; retry policy belongs to the callers (polling loops
// retry on their next tick, commands never retry).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// startSessionRequest matches the backend's start-session body.
type startSessionRequest struct {
	ClassroomID  string `json:"classroom_id"`
	Subject      string `json:"materia"`
	StudentCount int    `json:"student_count"`
}

// activeSessionsEnvelope matches the backend's active-sessions wrapper.
type activeSessionsEnvelope struct {
	ActiveSessions []types.MonitoringSession `json:"active_sessions"`
}

// errorDetail matches the backend's error body.
type errorDetail struct {
	Detail string `json:"detail"`
}

// ListClassrooms fetches all classrooms.
func (c *Client) ListClassrooms(ctx context.Context) ([]types.Classroom, error) {
	var classrooms []types.Classroom
	if err := c.get(ctx, "/api/classroom/list", &classrooms); err != nil {
		return nil, fmt.Errorf("failed to list classrooms: %w", err)
	}
	return classrooms, nil
}

// ListActiveSessions fetches sessions in created or monitoring state.
func (c *Client) ListActiveSessions(ctx context.Context) ([]types.MonitoringSession, error) {
	var envelope activeSessionsEnvelope
	if err := c.get(ctx, "/api/classroom/active-sessions", &envelope); err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return envelope.ActiveSessions, nil
}

// StartSession creates a new monitoring session for a classroom.
func (c *Client) StartSession(ctx context.Context, classroomID, subject string, studentCount int) (*types.MonitoringSession, error) {
	body := startSessionRequest{
		ClassroomID:  classroomID,
		Subject:      subject,
		StudentCount: studentCount,
	}
	var session types.MonitoringSession
	if err := c.post(ctx, "/api/classroom/start-session", body, &session); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return &session, nil
}

// StartMonitoring moves a created session into monitoring state.
func (c *Client) StartMonitoring(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/api/classroom/%s/start-monitoring", sessionID)
	if err := c.sessionPost(ctx, sessionID, path, nil); err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}
	return nil
}

// StopMonitoring stops the monitoring leg without ending the session.
func (c *Client) StopMonitoring(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/api/classroom/%s/stop-monitoring", sessionID)
	if err := c.sessionPost(ctx, sessionID, path, nil); err != nil {
		return fmt.Errorf("failed to stop monitoring: %w", err)
	}
	return nil
}

// EndSession ends a session and returns the server-computed duration.
func (c *Client) EndSession(ctx context.Context, sessionID string) (*types.SessionEndResult, error) {
	path := fmt.Sprintf("/api/classroom/%s/end-session", sessionID)
	var result types.SessionEndResult
	if err := c.sessionPost(ctx, sessionID, path, &result); err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	return &result, nil
}

// StartCamera activates the remote camera.
func (c *Client) StartCamera(ctx context.Context) error {
	if err := c.post(ctx, "/api/emotion/start-camera", nil, nil); err != nil {
		return fmt.Errorf("failed to start camera: %w", err)
	}
	return nil
}

// StopCamera deactivates the remote camera.
func (c *Client) StopCamera(ctx context.Context) error {
	if err := c.post(ctx, "/api/emotion/stop-camera", nil, nil); err != nil {
		return fmt.Errorf("failed to stop camera: %w", err)
	}
	return nil
}

// CameraStatus fetches the authoritative camera on/off state.
func (c *Client) CameraStatus(ctx context.Context) (*types.CameraStatus, error) {
	var status types.CameraStatus
	if err := c.get(ctx, "/api/emotion/camera-status", &status); err != nil {
		return nil, fmt.Errorf("failed to get camera status: %w", err)
	}
	return &status, nil
}

// EmotionSnapshot fetches the realtime snapshot (primary endpoint).
func (c *Client) EmotionSnapshot(ctx context.Context) (*types.EmotionSnapshot, error) {
	var snapshot types.EmotionSnapshot
	if err := c.get(ctx, "/api/emotion/realtime-emotions", &snapshot); err != nil {
		return nil, fmt.Errorf("failed to get emotion snapshot: %w", err)
	}
	return &snapshot, nil
}

// EmotionDistribution fetches the aggregate fallback snapshot.
func (c *Client) EmotionDistribution(ctx context.Context) (*types.EmotionSnapshot, error) {
	var snapshot types.EmotionSnapshot
	if err := c.get(ctx, "/api/emotion/emotion-distribution", &snapshot); err != nil {
		return nil, fmt.Errorf("failed to get emotion distribution: %w", err)
	}
	return &snapshot, nil
}

// StreamURL builds the cache-busted live video resource URL.
func (c *Client) StreamURL(epoch int64) string {
	return fmt.Sprintf("%s/api/emotion/video-stream?t=%d", c.baseURL, epoch)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Correlation ID so command attempts can be traced backend-side.
	req.Header.Set("X-Request-ID", uuid.New().String())
	return c.do(req, out)
}

// sessionPost issues a session-scoped command. The backend answers 404
// for ids it no longer knows; callers branch on that as a missing
// session rather than a generic transport failure.
func (c *Client) sessionPost(ctx context.Context, sessionID, path string, out interface{}) error {
	err := c.post(ctx, path, nil, out)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w (%s): %w", interfaces.ErrSessionNotFound, sessionID, err)
	}
	return err
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := readDetail(resp.Body)
		zap.S().Debugw("backend request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"detail", detail)
		return &StatusError{Status: resp.StatusCode, Detail: detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// readDetail pulls the backend's detail field out of an error body, or
// falls back to the raw text when the body is not the expected JSON.
func readDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var detail errorDetail
	if err := json.Unmarshal(data, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}
	return strings.TrimSpace(string(data))
}
