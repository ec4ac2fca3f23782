package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// sender serializes outgoing signaling messages to the WebSocket (private).
type sender struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// send writes a signaling message to the WebSocket, guarded by a mutex.
func (s *sender) send(msg message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *sender) sendOffer(b OfferBundle) error {
	return s.send(message{Type: msgTypeOffer, Offer: &b})
}

func (s *sender) sendAnswer(b AnswerBundle) error {
	return s.send(message{Type: msgTypeAnswer, Answer: &b})
}

// sendError tells the peer why the exchange is being abandoned.
func (s *sender) sendError(err error) error {
	return s.send(message{Type: msgTypeError, Error: err.Error()})
}

// sendClose ends the exchange with a normal close frame.
func (s *sender) sendClose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(writeTimeout),
	)
}
