package signaling

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

// ErrPeerAborted is returned when the remote side reports a failure instead
// of the expected bundle.
var ErrPeerAborted = errors.New("peer aborted signaling")

// receiver reads signaling messages from the WebSocket (private).
type receiver struct {
	conn *websocket.Conn
}

// next blocks for the next message. Cancelling ctx closes the connection to
// unblock the read.
func (r *receiver) next(ctx context.Context) (message, error) {
	stop := context.AfterFunc(ctx, func() { r.conn.Close() })
	defer stop()

	var msg message
	if err := r.conn.ReadJSON(&msg); err != nil {
		if ctx.Err() != nil {
			return message{}, ctx.Err()
		}
		return message{}, fmt.Errorf("read WS message: %w", err)
	}

	if msg.Type == msgTypeError {
		return message{}, fmt.Errorf("%w: %s", ErrPeerAborted, msg.Error)
	}
	return msg, nil
}

func (r *receiver) expectOffer(ctx context.Context) (OfferBundle, error) {
	msg, err := r.next(ctx)
	if err != nil {
		return OfferBundle{}, err
	}
	if msg.Type != msgTypeOffer || msg.Offer == nil {
		return OfferBundle{}, fmt.Errorf("expected offer, got %q", msg.Type)
	}
	return *msg.Offer, nil
}

func (r *receiver) expectAnswer(ctx context.Context) (AnswerBundle, error) {
	msg, err := r.next(ctx)
	if err != nil {
		return AnswerBundle{}, err
	}
	if msg.Type != msgTypeAnswer || msg.Answer == nil {
		return AnswerBundle{}, fmt.Errorf("expected answer, got %q", msg.Type)
	}
	return *msg.Answer, nil
}

// waitClose waits for the peer to end the exchange. A normal close frame is
// success; anything else is reported.
func (r *receiver) waitClose(ctx context.Context) error {
	_, err := r.next(ctx)
	if err == nil {
		return errors.New("unexpected message after answer")
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
		return nil
	}
	return err
}
