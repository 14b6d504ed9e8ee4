package types

import "errors"

// Validation errors shared across components.
var (
	ErrEmptySubject        = errors.New("subject cannot be empty")
	ErrInvalidStudentCount = errors.New("student count must be greater than zero")
	ErrInvalidNotification = errors.New("unknown notification type")
	ErrNegativeDetections  = errors.New("total detections cannot be negative")
	ErrDetectionMismatch   = errors.New("emotion counts do not sum to total detections")
	ErrInvalidSizeMode     = errors.New("invalid size mode")
	ErrInvalidFitMode      = errors.New("invalid fit mode")
	ErrInvalidSizePercent  = errors.New("invalid size percent")
)
