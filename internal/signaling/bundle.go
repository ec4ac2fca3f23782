package signaling

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/1ureka/p2pchan/internal/transport"
)

// ErrSessionMismatch is returned when an answer does not belong to the offer
// it is being applied to.
var ErrSessionMismatch = errors.New("answer belongs to a different session")

// OfferBundle is everything the answering peer needs from the offerer.
type OfferBundle struct {
	Session     string                `json:"session" cbor:"1,keyasint"`
	Description transport.Description `json:"description" cbor:"2,keyasint"`
	Candidates  []transport.Candidate `json:"candidates" cbor:"3,keyasint"`
}

// AnswerBundle is the answering peer's reply. Candidates may be empty when
// the answerer does not trickle its own.
type AnswerBundle struct {
	Session     string                `json:"session" cbor:"1,keyasint"`
	Description transport.Description `json:"description" cbor:"2,keyasint"`
	Candidates  []transport.Candidate `json:"candidates,omitempty" cbor:"3,keyasint,omitempty"`
}

// NewOfferBundle tags an offer with a fresh session ID.
func NewOfferBundle(desc transport.Description, cands []transport.Candidate) OfferBundle {
	return OfferBundle{
		Session:     uuid.NewString(),
		Description: desc,
		Candidates:  cands,
	}
}

// Validate checks the fields the answering side relies on.
func (b OfferBundle) Validate() error {
	if _, err := uuid.Parse(b.Session); err != nil {
		return fmt.Errorf("%w: offer session %q", transport.ErrMalformedSignalingData, b.Session)
	}
	if b.Description.Type != transport.Offer {
		return fmt.Errorf("%w: offer bundle carries %q description", transport.ErrMalformedSignalingData, b.Description.Type)
	}
	if b.Description.SDP == "" {
		return fmt.Errorf("%w: offer bundle has no SDP", transport.ErrMalformedSignalingData)
	}
	return nil
}

// Validate checks that b is a well-formed answer to the offer with the given
// session ID.
func (b AnswerBundle) Validate(session string) error {
	if b.Session != session {
		return ErrSessionMismatch
	}
	if b.Description.Type != transport.Answer {
		return fmt.Errorf("%w: answer bundle carries %q description", transport.ErrMalformedSignalingData, b.Description.Type)
	}
	if b.Description.SDP == "" {
		return fmt.Errorf("%w: answer bundle has no SDP", transport.ErrMalformedSignalingData)
	}
	return nil
}
