package transport

import (
	"context"
)

const (
	HighWaterMark = 256 * 1024 // pause sending when bufferedAmount exceeds this
	LowWaterMark  = 64 * 1024  // resume sending when bufferedAmount drops below this
)

// SendContext transmits one message like TrySend, but first waits while the
// data channel's buffered amount is above HighWaterMark. It returns when the
// buffer drains below LowWaterMark, ctx is cancelled, or the Channel closes.
func (c *Channel) SendContext(ctx context.Context, data []byte) error {
	for c.dc.BufferedAmount() > uint64(HighWaterMark) {
		select {
		case <-c.drainSignal:
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return ErrClosed
		}
	}

	return c.TrySend(data)
}
