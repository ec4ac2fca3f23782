package transport

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/p2pchan/internal/util"
)

// candidateStream carries the engine's "new candidate" notifications to a
// single consumer. A nil candidate is the engine's end-of-gathering sentinel.
type candidateStream struct {
	items chan *webrtc.ICECandidate

	mu       sync.Mutex
	finished bool // sentinel already pushed

	abandoned   chan struct{}
	abandonOnce sync.Once
}

func newCandidateStream() *candidateStream {
	return &candidateStream{
		items:     make(chan *webrtc.ICECandidate, 1),
		abandoned: make(chan struct{}),
	}
}

// push is the engine-side handler. It blocks while the single slot is full
// and returns early once the stream is abandoned, so the engine goroutine
// never outlives the consumer.
func (s *candidateStream) push(cand *webrtc.ICECandidate) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		if cand == nil {
			util.LogWarning("duplicate end-of-candidates notification dropped")
		} else {
			util.LogWarning("candidate after end-of-candidates dropped: %s", cand.String())
		}
		return
	}
	if cand == nil {
		s.finished = true
	}
	s.mu.Unlock()

	select {
	case s.items <- cand:
	case <-s.abandoned:
	}
}

func (s *candidateStream) abandon() {
	s.abandonOnce.Do(func() { close(s.abandoned) })
}

// listen registers the stream's push handler on the engine. Must be called
// before the local description is set: setting it starts gathering.
func (c *Channel) listen() *candidateStream {
	s := newCandidateStream()

	c.mu.Lock()
	c.stream = s
	c.mu.Unlock()

	c.pc.OnICECandidate(s.push)
	return s
}

// unlisten deregisters the handler installed by listen and releases any
// engine goroutine still blocked in push.
func (c *Channel) unlisten(s *candidateStream) {
	c.mu.Lock()
	owned := c.stream == s
	if owned {
		c.stream = nil
	}
	c.mu.Unlock()

	if owned {
		c.pc.OnICECandidate(dropCandidate)
	}
	s.abandon()
}

// dropCandidate stands in for the collector between negotiation rounds.
func dropCandidate(cand *webrtc.ICECandidate) {
	if cand != nil {
		util.LogDebug("local candidate outside negotiation ignored: %s", cand.String())
	}
}

// drain consumes s until the end-of-gathering sentinel and returns the
// candidates in discovery order. There is no timeout; ctx cancellation and
// Channel.Close are the only early exits. The handler is deregistered on
// every return path.
func (c *Channel) drain(ctx context.Context, s *candidateStream) ([]Candidate, error) {
	defer c.unlisten(s)

	var out []Candidate
	for {
		select {
		case cand := <-s.items:
			if cand == nil {
				util.LogDebug("candidate gathering complete: %d local candidates", len(out))
				return out, nil
			}
			out = append(out, EncodeCandidate(cand))

		case <-s.abandoned:
			return nil, ErrClosed

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
