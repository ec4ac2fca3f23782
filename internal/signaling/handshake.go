package signaling

import (
	"context"
	"fmt"

	"github.com/1ureka/p2pchan/internal/transport"
	"github.com/1ureka/p2pchan/internal/util"
)

// Negotiator is the part of *transport.Channel the handshake drives.
type Negotiator interface {
	PrepareOffer(ctx context.Context, existingSDP string, remote []transport.Candidate) (transport.Description, []transport.Candidate, error)
	PrepareAnswer(ctx context.Context, offerSDP string) (string, error)
	Prepare(ctx context.Context, typ transport.DescriptionType, sdp string, remote []transport.Candidate) (transport.Description, []transport.Candidate, error)
	SetRemote(ctx context.Context, typ transport.DescriptionType, sdp string) error
	ApplyRemoteCandidates(ctx context.Context, candidates []transport.Candidate) error
}

var _ Negotiator = (*transport.Channel)(nil)

// CreateOffer runs the offering side up to the point where the bundle can be
// handed to the answerer.
func CreateOffer(ctx context.Context, n Negotiator) (OfferBundle, error) {
	desc, cands, err := n.PrepareOffer(ctx, "", nil)
	if err != nil {
		return OfferBundle{}, fmt.Errorf("prepare offer: %w", err)
	}

	b := NewOfferBundle(desc, cands)
	util.LogDebug("offer bundle ready: session %s, %d candidates", b.Session, len(cands))
	return b, nil
}

// AcceptOffer runs the answering side:
//  1. Apply the remote offer and generate an answer
//  2. Apply the offerer's candidates
//  3. Install the answer and collect local candidates
//  4. Return the answer bundle for the offerer
func AcceptOffer(ctx context.Context, n Negotiator, offer OfferBundle) (AnswerBundle, error) {
	if err := offer.Validate(); err != nil {
		return AnswerBundle{}, err
	}

	answerSDP, err := n.PrepareAnswer(ctx, offer.Description.SDP)
	if err != nil {
		return AnswerBundle{}, fmt.Errorf("prepare answer: %w", err)
	}

	if err := n.ApplyRemoteCandidates(ctx, offer.Candidates); err != nil {
		return AnswerBundle{}, fmt.Errorf("apply offer candidates: %w", err)
	}

	desc, cands, err := n.Prepare(ctx, transport.Answer, answerSDP, nil)
	if err != nil {
		return AnswerBundle{}, fmt.Errorf("install answer: %w", err)
	}

	util.LogDebug("answer bundle ready: session %s, %d candidates", offer.Session, len(cands))
	return AnswerBundle{
		Session:     offer.Session,
		Description: desc,
		Candidates:  cands,
	}, nil
}

// CompleteOffer applies the answerer's bundle on the offering side.
func CompleteOffer(ctx context.Context, n Negotiator, offer OfferBundle, answer AnswerBundle) error {
	if err := answer.Validate(offer.Session); err != nil {
		return err
	}

	if err := n.SetRemote(ctx, transport.Answer, answer.Description.SDP); err != nil {
		return fmt.Errorf("apply answer: %w", err)
	}

	if len(answer.Candidates) > 0 {
		if err := n.ApplyRemoteCandidates(ctx, answer.Candidates); err != nil {
			return fmt.Errorf("apply answer candidates: %w", err)
		}
	}
	return nil
}
