package transport

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"
)

// Compile-time interface checks.
var (
	_ Engine      = (*fakeEngine)(nil)
	_ DataChannel = (*fakeDataChannel)(nil)
)

// fakeEngine records every engine call. SetLocalDescription starts a
// goroutine that emits the configured candidates followed by the nil
// sentinel through whatever handler is registered at emission time.
type fakeEngine struct {
	mu    sync.Mutex
	calls []string
	log   *[]string // shared with fakeDataChannel to check close order

	onCandidate   func(*webrtc.ICECandidate)
	registrations int

	gather     []*webrtc.ICECandidate
	holdGather chan struct{} // when non-nil, emission waits for it to close
	gathered   chan struct{} // closed after the sentinel was handed off

	added []webrtc.ICECandidateInit

	createOfferErr  error
	createAnswerErr error
	setLocalErr     error
	setRemoteErr    error
	addErrAt        int // index of the AddICECandidate call that fails, -1 for none

	closed int
}

func newFakeEngine(log *[]string) *fakeEngine {
	return &fakeEngine{
		log:      log,
		addErrAt: -1,
		gathered: make(chan struct{}),
	}
}

func (e *fakeEngine) record(call string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
}

func (e *fakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *fakeEngine) Registrations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registrations
}

func (e *fakeEngine) CreateOffer(*webrtc.OfferOptions) (webrtc.SessionDescription, error) {
	e.record("create offer")
	if e.createOfferErr != nil {
		return webrtc.SessionDescription{}, e.createOfferErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 fake-offer"}, nil
}

func (e *fakeEngine) CreateAnswer(*webrtc.AnswerOptions) (webrtc.SessionDescription, error) {
	e.record("create answer")
	if e.createAnswerErr != nil {
		return webrtc.SessionDescription{}, e.createAnswerErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 fake-answer"}, nil
}

func (e *fakeEngine) SetLocalDescription(desc webrtc.SessionDescription) error {
	e.record(fmt.Sprintf("set local %s %s", desc.Type, desc.SDP))
	if e.setLocalErr != nil {
		return e.setLocalErr
	}
	go e.emit()
	return nil
}

func (e *fakeEngine) emit() {
	if e.holdGather != nil {
		<-e.holdGather
	}
	for _, cand := range e.gather {
		e.deliver(cand)
	}
	e.deliver(nil)
	close(e.gathered)
}

// deliver hands one notification to the currently registered handler.
func (e *fakeEngine) deliver(cand *webrtc.ICECandidate) {
	e.mu.Lock()
	fn := e.onCandidate
	e.mu.Unlock()
	if fn != nil {
		fn(cand)
	}
}

func (e *fakeEngine) SetRemoteDescription(desc webrtc.SessionDescription) error {
	e.record(fmt.Sprintf("set remote %s %s", desc.Type, desc.SDP))
	return e.setRemoteErr
}

func (e *fakeEngine) AddICECandidate(init webrtc.ICECandidateInit) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "add ice candidate")
	if e.addErrAt == len(e.added) {
		return errors.New("candidate rejected")
	}
	e.added = append(e.added, init)
	return nil
}

func (e *fakeEngine) OnICECandidate(f func(*webrtc.ICECandidate)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registrations++
	e.onCandidate = f
}

func (e *fakeEngine) OnICEConnectionStateChange(func(webrtc.ICEConnectionState)) {}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed++
	if e.log != nil {
		*e.log = append(*e.log, "engine close")
	}
	return nil
}

// fakeDataChannel lets tests fire the engine's channel events by hand.
type fakeDataChannel struct {
	mu  sync.Mutex
	log *[]string

	onOpen    func()
	onMessage func(webrtc.DataChannelMessage)
	onClose   func()
	onLow     func()

	sent     [][]byte
	sendErr  error
	buffered uint64
	closed   int
}

func (d *fakeDataChannel) OnOpen(f func()) { d.onOpen = f }
func (d *fakeDataChannel) OnMessage(f func(webrtc.DataChannelMessage)) { d.onMessage = f }
func (d *fakeDataChannel) OnClose(f func()) { d.onClose = f }
func (d *fakeDataChannel) OnBufferedAmountLow(f func()) { d.onLow = f }
func (d *fakeDataChannel) SetBufferedAmountLowThreshold(uint64) {}

func (d *fakeDataChannel) BufferedAmount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buffered
}

func (d *fakeDataChannel) setBuffered(n uint64) {
	d.mu.Lock()
	d.buffered = n
	d.mu.Unlock()
}

func (d *fakeDataChannel) Send(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, append([]byte(nil), data...))
	return nil
}

func (d *fakeDataChannel) Sent() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.sent...)
}

func (d *fakeDataChannel) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	if d.log != nil {
		*d.log = append(*d.log, "data channel close")
	}
	return nil
}

func (d *fakeDataChannel) fireOpen() { d.onOpen() }
func (d *fakeDataChannel) fireClose() { d.onClose() }
func (d *fakeDataChannel) fireMessage(b []byte) { d.onMessage(webrtc.DataChannelMessage{Data: b}) }
func (d *fakeDataChannel) fireText(s string) {
	d.onMessage(webrtc.DataChannelMessage{IsString: true, Data: []byte(s)})
}

func newFakeChannel(t *testing.T) (*Channel, *fakeEngine, *fakeDataChannel) {
	t.Helper()
	var log []string
	engine := newFakeEngine(&log)
	dc := &fakeDataChannel{log: &log}
	return NewChannelWithEngine(engine, dc), engine, dc
}

// hostCandidate builds an engine candidate with a parseable descriptor.
func hostCandidate(port uint16) *webrtc.ICECandidate {
	return &webrtc.ICECandidate{
		Foundation: fmt.Sprintf("f%d", port),
		Priority:   2130706431,
		Address:    "192.168.1.2",
		Protocol:   webrtc.ICEProtocolUDP,
		Port:       port,
		Typ:        webrtc.ICECandidateTypeHost,
		Component:  1,
	}
}
