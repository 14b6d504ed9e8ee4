package interfaces

import (
	"context"

	"classwatch/pkg/types"
)

// Backend is the monitoring service consumed by the client. All methods
// are single attempts: callers decide whether a failure is surfaced or
// swallowed, and nothing here retries.
type Backend interface {
	// ListClassrooms returns all classrooms (reference data).
	ListClassrooms(ctx context.Context) ([]types.Classroom, error)

	// ListActiveSessions returns sessions in created or monitoring state
	// across all classrooms.
	ListActiveSessions(ctx context.Context) ([]types.MonitoringSession, error)

	// StartSession creates a session for a classroom. The returned record
	// carries the backend-assigned ID and start time.
	StartSession(ctx context.Context, classroomID, subject string, studentCount int) (*types.MonitoringSession, error)

	// StartMonitoring moves a created session into monitoring state.
	StartMonitoring(ctx context.Context, sessionID string) error

	// StopMonitoring stops the monitoring leg without ending the session.
	StopMonitoring(ctx context.Context, sessionID string) error

	// EndSession ends a session; the result carries the server-computed
	// total duration.
	EndSession(ctx context.Context, sessionID string) (*types.SessionEndResult, error)

	// StartCamera / StopCamera toggle the remote camera.
	StartCamera(ctx context.Context) error
	StopCamera(ctx context.Context) error

	// CameraStatus returns the authoritative camera on/off state.
	CameraStatus(ctx context.Context) (*types.CameraStatus, error)

	// EmotionSnapshot fetches the realtime snapshot (primary endpoint).
	EmotionSnapshot(ctx context.Context) (*types.EmotionSnapshot, error)

	// EmotionDistribution fetches the aggregate fallback snapshot.
	EmotionDistribution(ctx context.Context) (*types.EmotionSnapshot, error)

	// StreamURL builds the cache-busted live video resource URL for a
	// given stream epoch.
	StreamURL(epoch int64) string
}
