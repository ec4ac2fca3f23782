package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide data channel traffic counter.
var Stats = &stats{}

type stats struct {
	MsgsSent  atomic.Int64 // messages handed to the data channel
	MsgsRecv  atomic.Int64 // messages delivered to the message handler
	BytesSent atomic.Int64 // cumulative bytes written to the data channel
	BytesRecv atomic.Int64 // cumulative bytes read from the data channel
	SendDrops atomic.Int64 // best-effort sends that the engine rejected
}

func (s *stats) AddSent(n int) { s.MsgsSent.Add(1); s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int) { s.MsgsRecv.Add(1); s.BytesRecv.Add(int64(n)) }
func (s *stats) AddDrop()      { s.SendDrops.Add(1) }

// Reset zeroes every counter.
func (s *stats) Reset() {
	s.MsgsSent.Store(0)
	s.MsgsRecv.Store(0)
	s.BytesSent.Store(0)
	s.BytesRecv.Store(0)
	s.SendDrops.Store(0)
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs channel statistics
// every interval. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		secs := interval.Seconds()

		var prevSent, prevRecv, prevMsgsSent, prevMsgsRecv int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()
				msgsSent := Stats.MsgsSent.Load()
				msgsRecv := Stats.MsgsRecv.Load()

				if msgsSent != prevMsgsSent || msgsRecv != prevMsgsRecv {
					pterm.DefaultLogger.Info(formatStats(
						float64(sent-prevSent)/secs,
						float64(recv-prevRecv)/secs,
						msgsSent-prevMsgsSent,
						msgsRecv-prevMsgsRecv,
						Stats.SendDrops.Load(),
					))
				}

				prevSent = sent
				prevRecv = recv
				prevMsgsSent = msgsSent
				prevMsgsRecv = msgsRecv

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(outS, inS float64, outM, inM, drops int64) string {
	return fmt.Sprintf("Out: %s/s | In: %s/s | Msgs: %3d↑ %3d↓ | Dropped: %d",
		formatBytes(outS),
		formatBytes(inS),
		outM,
		inM,
		drops,
	)
}
