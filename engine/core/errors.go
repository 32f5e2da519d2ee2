package core

import (
	"errors"
)

var (
	// GPU synchronization. Both are fatal for the frame that observes them.
	ErrFenceTimeout    = errors.New("fence wait exceeded the maximum number of retries")
	ErrFenceWaitFailed = errors.New("fence wait reported a failure")

	ErrStaleHandle       = errors.New("stale asset handle")
	ErrPoolExhausted     = errors.New("asset pool exhausted")
	ErrCapacityExceeded  = errors.New("request exceeds buffer capacity")
	ErrFrameNotBegun     = errors.New("no frame in progress, call Begin first")
	ErrFrameInProgress   = errors.New("frame already in progress, call End first")
	ErrUnsupportedFormat = errors.New("unsupported resource format")
	ErrShaderSource      = errors.New("shader source unavailable")
	ErrUnknown           = errors.New("unknown")
)
