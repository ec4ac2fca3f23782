// Package signaling moves offer and answer bundles between the two peers,
// either over a PIN-protected WebSocket relay or as copy-paste tokens.
package signaling

// messageType identifies the kind of signaling message.
type messageType string

const (
	msgTypeOffer  messageType = "offer"
	msgTypeAnswer messageType = "answer"
	msgTypeError  messageType = "error"
)

// message is the JSON structure exchanged over the WebSocket during signaling.
type message struct {
	Type   messageType   `json:"type"`
	Offer  *OfferBundle  `json:"offer,omitempty"`
	Answer *AnswerBundle `json:"answer,omitempty"`
	Error  string        `json:"error,omitempty"`
}
