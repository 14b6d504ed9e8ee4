package types

import (
	"time"
)

// Session status values as reported by the monitoring backend.
// A session moves created -> monitoring -> finished; finished is terminal.
const (
	SessionStatusCreated    = "created"
	SessionStatusMonitoring = "monitoring"
	SessionStatusFinished   = "finished"
)

// Push notification types delivered over the websocket channel.
// Notifications are invalidation signals only; they never carry state.
const (
	NotificationSessionUpdate = "session_update"
	NotificationEmotionUpdate = "emotion_update"
	NotificationCameraUpdate  = "camera_update"
)

// Classroom is immutable reference data owned by the backend.
type Classroom struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Number        string `json:"number"`
	TotalStudents int    `json:"total_students"`
	Description   string `json:"description,omitempty"`
}

// ClassSessionInfo is the operator-entered class metadata persisted to
// the recovery cache and used to pre-fill start-session requests.
// The JSON keys match the stored form the dashboard has always used.
type ClassSessionInfo struct {
	Subject       string `json:"materia"`
	StudentCount  int    `json:"studentCount"`
	ClassroomName string `json:"classroomName"`
}

// MonitoringSession is one bounded period of emotion monitoring bound
// to a single classroom. Immutable once Status is finished.
type MonitoringSession struct {
	ID                string     `json:"id"`
	ClassroomID       string     `json:"classroom_id"`
	ClassroomName     string     `json:"classroom_name"`
	Subject           string     `json:"materia"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	Status            string     `json:"status"`
	StudentCount      int        `json:"student_count"`
	DurationFormatted string     `json:"session_duration_formatted,omitempty"`
}

// IsEnded reports whether the session has reached its terminal state.
func (s *MonitoringSession) IsEnded() bool {
	return s.Status == SessionStatusFinished
}

// EmotionStat is one emotion's share of the detections in a snapshot.
type EmotionStat struct {
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// EmotionSnapshot is a point-in-time aggregate of detected emotions.
// Snapshots are replaced wholesale on every fetch, never merged.
type EmotionSnapshot struct {
	Happiness       EmotionStat `json:"felicidad"`
	Sadness         EmotionStat `json:"tristeza"`
	Anger           EmotionStat `json:"enojo"`
	Neutral         EmotionStat `json:"neutral"`
	TotalDetections int         `json:"total_detections"`
	CameraActive    bool        `json:"camera_active"`
}

// CameraStatus is the backend's authoritative camera on/off state.
type CameraStatus struct {
	Active bool `json:"active"`
}

// SessionEndResult is the backend's response to an end-session command.
type SessionEndResult struct {
	Message           string     `json:"message"`
	SessionID         string     `json:"session_id"`
	DurationFormatted string     `json:"session_duration_formatted"`
	EndTime           *time.Time `json:"end_time,omitempty"`
}

// Notification is one typed invalidation message from the push channel.
type Notification struct {
	Type string `json:"type"`
}

// SizeMode is the video display tier.
type SizeMode string

const (
	SizeNormal     SizeMode = "normal"
	SizeLarge      SizeMode = "large"
	SizeFullscreen SizeMode = "fullscreen"
)

// FitMode controls how the stream is fitted into its container.
// Cosmetic only; never sent to the backend.
type FitMode string

const (
	FitContain   FitMode = "contain"
	FitCover     FitMode = "cover"
	FitFill      FitMode = "fill"
	FitScaleDown FitMode = "scale-down"
	FitNone      FitMode = "none"
)

// SizePercent is the fullscreen width override. Cosmetic only.
type SizePercent string

const (
	SizeAuto SizePercent = "auto"
	Size25   SizePercent = "25%"
	Size50   SizePercent = "50%"
	Size75   SizePercent = "75%"
	Size100  SizePercent = "100%"
)

// VideoDisplayState is the purely client-side video presentation state.
// SizeMode, FitMode and SizePercent are independent enumerations; any
// combination is valid. StreamEpoch is a monotonic cache-busting token.
type VideoDisplayState struct {
	SizeMode    SizeMode    `json:"size_mode"`
	FitMode     FitMode     `json:"fit_mode"`
	SizePercent SizePercent `json:"size_percent"`
	StreamEpoch int64       `json:"stream_epoch"`
	Loading     bool        `json:"loading"`
}
