package cache

import "errors"

var (
	ErrStoreClosed = errors.New("recovery cache is closed")
)
