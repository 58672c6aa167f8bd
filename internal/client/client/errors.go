package client

import "errors"

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrNoSession   = errors.New("no session: log in first")
)
