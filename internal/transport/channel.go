// Package transport owns one connectivity engine session and its single data
// channel: the handshake that connects two peers and the send/receive/close
// contract afterwards.
package transport

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/p2pchan/internal/config"
	"github.com/1ureka/p2pchan/internal/util"
)

// State is the lifecycle state of a Channel.
type State int32

const (
	StateCreated State = iota
	StateNegotiating
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateNegotiating:
		return "negotiating"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Channel wraps a single engine session + data channel pair.
//
// Engine callbacks are registered once at construction and dispatch to the
// handler fields below, so replacing or clearing a handler never touches
// the engine. At most one handler exists per event kind.
type Channel struct {
	pc Engine
	dc DataChannel

	mu        sync.Mutex
	state     State
	released  bool // Close has run
	onOpen    func()
	onMessage func([]byte)
	onClose   func()
	stream    *candidateStream // active collector, if any

	negotiating atomic.Bool

	openSignal chan struct{}
	openOnce   sync.Once
	done       chan struct{}
	doneOnce   sync.Once

	drainSignal chan struct{}
}

// NewChannel creates a Channel backed by a new pion PeerConnection and a
// pre-negotiated DataChannel built from cfg.
func NewChannel(cfg config.Config) (*Channel, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, engineErr("new peer connection", err)
	}

	dc, err := newDataChannel(pc, cfg.Channel)
	if err != nil {
		pc.Close()
		return nil, engineErr("create data channel", err)
	}

	return NewChannelWithEngine(pc, dc), nil
}

// NewChannelWithEngine wires a Channel onto an existing engine session and
// data channel. The Channel takes ownership of both.
func NewChannelWithEngine(pc Engine, dc DataChannel) *Channel {
	c := &Channel{
		pc:          pc,
		dc:          dc,
		state:       StateCreated,
		openSignal:  make(chan struct{}),
		done:        make(chan struct{}),
		drainSignal: make(chan struct{}, 1),
	}

	// Some engines tear the session down when nobody observes ICE state
	// changes, so an observer is always installed.
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		util.LogDebug("ICE connection state: %s", state.String())
	})

	dc.OnOpen(c.handleOpen)
	dc.OnMessage(c.handleMessage)
	dc.OnClose(c.handleClose)

	dc.SetBufferedAmountLowThreshold(uint64(LowWaterMark))
	dc.OnBufferedAmountLow(func() {
		select {
		case c.drainSignal <- struct{}{}:
		default:
		}
	})

	return c
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready returns a channel that is closed when the data channel opens.
func (c *Channel) Ready() <-chan struct{} {
	return c.openSignal
}

// Done returns a channel that is closed when the Channel reaches
// StateClosed, by Close or by the peer.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close clears all handlers, closes the data channel and then the engine
// session. It aborts an in-flight candidate collection. Calling Close more
// than once is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil
	}
	c.released = true
	c.state = StateClosed
	c.onOpen = nil
	c.onMessage = nil
	c.onClose = nil
	stream := c.stream
	c.mu.Unlock()

	if stream != nil {
		stream.abandon()
	}
	c.markDone()

	return errors.Join(
		engineErr("close data channel", c.dc.Close()),
		engineErr("close peer connection", c.pc.Close()),
	)
}

func (c *Channel) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

// SetOnOpen replaces the open handler. Ignored once the Channel is closed.
func (c *Channel) SetOnOpen(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.onOpen = fn
	}
}

// SetOnMessage replaces the message handler. Each engine message event is
// delivered as exactly one byte slice. Ignored once the Channel is closed.
func (c *Channel) SetOnMessage(fn func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.onMessage = fn
	}
}

// SetOnClose replaces the close handler. It fires at most once, when the
// peer closes the channel. Ignored once the Channel is closed.
func (c *Channel) SetOnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.onClose = fn
	}
}

func (c *Channel) handleOpen() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateOpen
	fn := c.onOpen
	c.mu.Unlock()

	util.LogDebug("data channel open")
	c.openOnce.Do(func() { close(c.openSignal) })

	if fn != nil {
		fn()
	}
}

// handleMessage delivers every frame as raw bytes. Text frames from peers
// that ignore the binary framing are passed through unchanged.
func (c *Channel) handleMessage(msg webrtc.DataChannelMessage) {
	if msg.IsString {
		util.LogDebug("received text frame (%d bytes), delivering as bytes", len(msg.Data))
	}

	c.mu.Lock()
	fn := c.onMessage
	c.mu.Unlock()

	if fn == nil {
		return
	}

	util.Stats.AddRecv(len(msg.Data))
	fn(msg.Data)
}

func (c *Channel) handleClose() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	fn := c.onClose
	c.onOpen = nil
	c.onMessage = nil
	c.onClose = nil
	c.mu.Unlock()

	util.LogDebug("data channel closed by peer")
	c.markDone()

	if fn != nil {
		fn()
	}
}

// ---------------------------------------------------------------------------
// Data
// ---------------------------------------------------------------------------

// Send transmits one message, best-effort. Failures, including a channel
// that is not open yet, are counted and logged at debug level but not
// returned; use TrySend to observe them.
func (c *Channel) Send(data []byte) {
	if err := c.TrySend(data); err != nil {
		util.Stats.AddDrop()
		util.LogDebug("send dropped (%d bytes): %v", len(data), err)
	}
}

// TrySend transmits one message and reports why it could not be sent.
func (c *Channel) TrySend(data []byte) error {
	switch c.State() {
	case StateOpen:
	case StateClosed:
		return ErrClosed
	default:
		return ErrChannelNotOpen
	}

	if err := c.dc.Send(data); err != nil {
		return engineErr("send", err)
	}

	util.Stats.AddSent(len(data))
	return nil
}
