package push

import "errors"

var (
	ErrAlreadyConnected = errors.New("push channel already connected")
	ErrConnectFailed    = errors.New("push channel connect failed")
	ErrChannelLost      = errors.New("push channel lost")
)
