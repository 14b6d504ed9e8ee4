package video

import "errors"

var (
	ErrStreamRender = errors.New("video stream failed to render")
)
