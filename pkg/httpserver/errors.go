package httpserver

import "errors"

var (
	ErrServe    = errors.New("http server failed")
	ErrShutdown = errors.New("http server shutdown failed")
)
