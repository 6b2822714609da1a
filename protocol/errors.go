package protocol

import "errors"

var (
	ErrTransportSetup = errors.New("transport setup failed")
	ErrTransportIO    = errors.New("transport io failed")
	ErrFileNotFound   = errors.New("file not found")
	ErrFileAccess     = errors.New("file access failed")
	ErrTimeout        = errors.New("peer did not answer")
	ErrWordTooLong    = errors.New("word exceeds message size")
	ErrEmptyFilename  = errors.New("empty filename")
)
