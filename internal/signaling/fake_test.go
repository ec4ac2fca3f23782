package signaling

import (
	"context"
	"fmt"
	"sync"

	"github.com/1ureka/p2pchan/internal/transport"
)

var _ Negotiator = (*fakeNegotiator)(nil)

// fakeNegotiator records the handshake calls and hands out fixed
// descriptions and candidates.
type fakeNegotiator struct {
	name string

	mu     sync.Mutex
	calls  []string
	remote []transport.Candidate

	local []transport.Candidate
	fail  map[string]error
}

func newFakeNegotiator(name string, local ...transport.Candidate) *fakeNegotiator {
	return &fakeNegotiator{name: name, local: local, fail: map[string]error{}}
}

func (n *fakeNegotiator) record(call string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
	return n.fail[call]
}

func (n *fakeNegotiator) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

func (n *fakeNegotiator) Remote() []transport.Candidate {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]transport.Candidate(nil), n.remote...)
}

func (n *fakeNegotiator) PrepareOffer(ctx context.Context, existingSDP string, remote []transport.Candidate) (transport.Description, []transport.Candidate, error) {
	return n.Prepare(ctx, transport.Offer, existingSDP, remote)
}

func (n *fakeNegotiator) PrepareAnswer(_ context.Context, offerSDP string) (string, error) {
	if err := n.record("prepare answer " + offerSDP); err != nil {
		return "", err
	}
	return "sdp-answer-" + n.name, nil
}

func (n *fakeNegotiator) Prepare(_ context.Context, typ transport.DescriptionType, sdp string, remote []transport.Candidate) (transport.Description, []transport.Candidate, error) {
	if sdp == "" {
		sdp = fmt.Sprintf("sdp-%s-%s", typ, n.name)
	}
	if err := n.record(fmt.Sprintf("prepare %s %s", typ, sdp)); err != nil {
		return transport.Description{}, nil, err
	}
	n.mu.Lock()
	n.remote = append(n.remote, remote...)
	n.mu.Unlock()
	return transport.Description{Type: typ, SDP: sdp}, n.local, nil
}

func (n *fakeNegotiator) SetRemote(_ context.Context, typ transport.DescriptionType, sdp string) error {
	return n.record(fmt.Sprintf("set remote %s %s", typ, sdp))
}

func (n *fakeNegotiator) ApplyRemoteCandidates(_ context.Context, candidates []transport.Candidate) error {
	if err := n.record(fmt.Sprintf("apply %d candidates", len(candidates))); err != nil {
		return err
	}
	n.mu.Lock()
	n.remote = append(n.remote, candidates...)
	n.mu.Unlock()
	return nil
}

func strPtr(s string) *string { return &s }
func u16Ptr(n uint16) *uint16 { return &n }

var (
	offerCands = []transport.Candidate{
		{Descriptor: "candidate:1 1 udp 2130706431 192.168.1.2 50000 typ host", MediaID: strPtr("0"), MediaLineIndex: u16Ptr(0)},
		{Descriptor: "candidate:2 1 udp 1694498815 203.0.113.7 61000 typ srflx raddr 192.168.1.2 rport 50000", MediaID: strPtr("0"), MediaLineIndex: u16Ptr(0)},
	}
	answerCands = []transport.Candidate{
		{Descriptor: "candidate:3 1 udp 2130706431 10.0.0.5 40000 typ host", MediaID: strPtr("0"), MediaLineIndex: u16Ptr(0)},
	}
)
