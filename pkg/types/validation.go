package types

import (
	"strings"
)

// Validate ensures operator-entered class info can back a start-session
// request. Validation happens locally before any backend call.
func (c *ClassSessionInfo) Validate() error {
	if strings.TrimSpace(c.Subject) == "" {
		return ErrEmptySubject
	}
	if c.StudentCount <= 0 {
		return ErrInvalidStudentCount
	}
	return nil
}

// Validate checks the snapshot's internal consistency: counts must sum
// to TotalDetections and TotalDetections must be non-negative.
func (e *EmotionSnapshot) Validate() error {
	if e.TotalDetections < 0 {
		return ErrNegativeDetections
	}
	sum := e.Happiness.Count + e.Sadness.Count + e.Anger.Count + e.Neutral.Count
	if sum != e.TotalDetections {
		return ErrDetectionMismatch
	}
	return nil
}

// IsValidNotificationType checks a push message type against the known set.
func IsValidNotificationType(t string) bool {
	switch t {
	case NotificationSessionUpdate,
		NotificationEmotionUpdate,
		NotificationCameraUpdate:
		return true
	default:
		return false
	}
}

// Validate rejects push messages whose type is outside the known set.
func (n *Notification) Validate() error {
	if !IsValidNotificationType(n.Type) {
		return ErrInvalidNotification
	}
	return nil
}

// Validate checks the display state enumerations. The three modes are
// independent; no combination is rejected beyond per-enum membership.
func (v *VideoDisplayState) Validate() error {
	switch v.SizeMode {
	case SizeNormal, SizeLarge, SizeFullscreen:
	default:
		return ErrInvalidSizeMode
	}
	switch v.FitMode {
	case FitContain, FitCover, FitFill, FitScaleDown, FitNone:
	default:
		return ErrInvalidFitMode
	}
	switch v.SizePercent {
	case SizeAuto, Size25, Size50, Size75, Size100:
	default:
		return ErrInvalidSizePercent
	}
	return nil
}
