package core

import "time"

const (
	httpRequestTimeout = 10 * time.Second
	httpServerTimeout  = 15 * time.Second
	shutdownTimeout    = 10 * time.Second
)
