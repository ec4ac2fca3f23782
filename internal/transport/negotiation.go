package transport

import (
	"context"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/p2pchan/internal/util"
)

// DescriptionType tags a session description as an offer or an answer.
type DescriptionType string

const (
	Offer  DescriptionType = "offer"
	Answer DescriptionType = "answer"
)

func (t DescriptionType) sdpType() (webrtc.SDPType, error) {
	switch t {
	case Offer:
		return webrtc.SDPTypeOffer, nil
	case Answer:
		return webrtc.SDPTypeAnswer, nil
	default:
		return 0, fmt.Errorf("unknown description type %q", string(t))
	}
}

// Description is one side's session description, exchanged verbatim.
type Description struct {
	Type DescriptionType `json:"type" cbor:"1,keyasint"`
	SDP  string          `json:"sdp" cbor:"2,keyasint"`
}

// beginNegotiation claims the Channel's single negotiation slot.
func (c *Channel) beginNegotiation(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.negotiating.CompareAndSwap(false, true) {
		return ErrNegotiationInProgress
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released || c.state == StateClosed {
		c.negotiating.Store(false)
		return ErrClosed
	}
	if c.state == StateCreated {
		c.state = StateNegotiating
	}
	return nil
}

func (c *Channel) endNegotiation() {
	c.negotiating.Store(false)
}

// PrepareOffer runs the offering side of the handshake. When existingSDP is
// empty a new offer is generated; otherwise the given offer is replayed.
// Remote candidates, if any, are applied after the local description. It
// returns once local candidate gathering has finished.
func (c *Channel) PrepareOffer(ctx context.Context, existingSDP string, remote []Candidate) (Description, []Candidate, error) {
	return c.Prepare(ctx, Offer, existingSDP, remote)
}

// Prepare is the role-generic form of PrepareOffer. The answering side uses
// Prepare(ctx, Answer, answerSDP, offerCandidates) to install its answer and
// collect its own candidates for trickling back.
func (c *Channel) Prepare(ctx context.Context, typ DescriptionType, sdp string, remote []Candidate) (Description, []Candidate, error) {
	sdpType, err := typ.sdpType()
	if err != nil {
		return Description{}, nil, err
	}

	if err := c.beginNegotiation(ctx); err != nil {
		return Description{}, nil, err
	}
	defer c.endNegotiation()

	// Listen before setting the local description: that call starts
	// gathering and the first candidates may arrive immediately.
	stream := c.listen()

	if sdp == "" {
		sdp, err = c.createDescription(typ)
		if err != nil {
			c.unlisten(stream)
			return Description{}, nil, err
		}
	}

	if err := c.pc.SetLocalDescription(webrtc.SessionDescription{Type: sdpType, SDP: sdp}); err != nil {
		c.unlisten(stream)
		return Description{}, nil, engineErr("set local description", err)
	}

	if len(remote) > 0 {
		if err := c.applyRemoteCandidates(remote); err != nil {
			c.unlisten(stream)
			return Description{}, nil, err
		}
	}

	local, err := c.drain(ctx, stream)
	if err != nil {
		return Description{}, nil, err
	}

	util.LogDebug("%s prepared with %d local candidates", typ, len(local))
	return Description{Type: typ, SDP: sdp}, local, nil
}

// PrepareAnswer applies offerSDP as the remote description and generates an
// answer. It neither sets the local description nor collects candidates;
// callers that trickle their own candidates follow up with Prepare(Answer).
func (c *Channel) PrepareAnswer(ctx context.Context, offerSDP string) (string, error) {
	if err := c.beginNegotiation(ctx); err != nil {
		return "", err
	}
	defer c.endNegotiation()

	if err := c.setRemote(webrtc.SDPTypeOffer, offerSDP); err != nil {
		return "", err
	}

	return c.createDescription(Answer)
}

// SetRemote applies the peer's description.
func (c *Channel) SetRemote(ctx context.Context, typ DescriptionType, sdp string) error {
	sdpType, err := typ.sdpType()
	if err != nil {
		return err
	}

	if err := c.beginNegotiation(ctx); err != nil {
		return err
	}
	defer c.endNegotiation()

	return c.setRemote(sdpType, sdp)
}

// ApplyRemoteCandidates hands a batch of remote candidates to the engine.
// The batch is all-or-nothing with respect to malformed data: every
// candidate is decoded before the first one is applied.
func (c *Channel) ApplyRemoteCandidates(ctx context.Context, candidates []Candidate) error {
	if err := c.beginNegotiation(ctx); err != nil {
		return err
	}
	defer c.endNegotiation()

	return c.applyRemoteCandidates(candidates)
}

func (c *Channel) applyRemoteCandidates(candidates []Candidate) error {
	inits := make([]webrtc.ICECandidateInit, len(candidates))
	for i, cand := range candidates {
		init, err := DecodeCandidate(cand)
		if err != nil {
			return fmt.Errorf("remote candidate %d: %w", i, err)
		}
		inits[i] = init
	}

	for i, init := range inits {
		if err := c.pc.AddICECandidate(init); err != nil {
			return engineErr(fmt.Sprintf("add ice candidate %d", i), err)
		}
	}

	util.LogDebug("applied %d remote candidates", len(inits))
	return nil
}

func (c *Channel) setRemote(sdpType webrtc.SDPType, sdp string) error {
	err := c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: sdpType, SDP: sdp})
	return engineErr("set remote description", err)
}

func (c *Channel) createDescription(typ DescriptionType) (string, error) {
	var (
		desc webrtc.SessionDescription
		err  error
	)

	if typ == Offer {
		desc, err = c.pc.CreateOffer(nil)
		err = engineErr("create offer", err)
	} else {
		desc, err = c.pc.CreateAnswer(nil)
		err = engineErr("create answer", err)
	}
	if err != nil {
		return "", err
	}

	return desc.SDP, nil
}
