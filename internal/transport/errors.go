package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedSignalingData is returned when a received candidate or
	// description cannot be reconstructed by the engine.
	ErrMalformedSignalingData = errors.New("malformed signaling data")

	// ErrChannelNotOpen is returned by TrySend and SendContext when the data
	// channel has not reported open yet.
	ErrChannelNotOpen = errors.New("data channel not open")

	// ErrNegotiationInProgress is returned when a negotiation operation starts
	// while another one on the same Channel has not returned.
	ErrNegotiationInProgress = errors.New("negotiation already in progress")

	// ErrClosed is returned by operations on a closed Channel.
	ErrClosed = errors.New("channel closed")
)

// EngineError wraps a failure reported by the connectivity engine together
// with the operation that produced it.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine: %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func engineErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Err: err}
}
