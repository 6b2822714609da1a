package config

import "time"

const (
	BuildVersion = "v0.3.1"

	MaxMessageSize = 1024

	DefaultTransport = "udp"
	DefaultHost      = "127.0.0.1"
	DefaultPort      = 8080
	DefaultRPCPort   = 0

	DefaultServerRoot   = "server"
	DefaultClientOutput = "client/received_file.txt"

	SessionIdleTimeout = 30 * time.Second
	SessionLinger      = 15 * time.Second
	SessionReapPeriod  = time.Second
	DuplicateWindow    = 100 * time.Millisecond

	ClientAttempts       = 5
	ClientTimeout        = 500 * time.Millisecond
	ClientMaximumTimeout = 4 * time.Second
)
