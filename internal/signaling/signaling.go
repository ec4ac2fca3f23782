package signaling

import (
	"context"
	"fmt"

	"github.com/1ureka/p2pchan/internal/util"
)

// Invite tells the answering peer where to find the signaling server.
type Invite struct {
	Port int
	PIN  string
}

// URL returns the WebSocket URL for host, e.g. ws://host:port/ws?pin=NNNNNN.
func (i Invite) URL(host string) string {
	return fmt.Sprintf("ws://%s:%d/ws?pin=%s", host, i.Port, i.PIN)
}

// EstablishAsHost executes the offer-side signaling flow:
//  1. Start a WS server on listenAddr and announce its port and PIN
//  2. Wait for the answerer to connect
//  3. Prepare the offer and send it
//  4. Receive the answer and apply it
//  5. Close the WS server and connection
//
// It returns once the answer has been applied. The caller waits for the
// data channel to open.
func EstablishAsHost(ctx context.Context, n Negotiator, listenAddr string, announce func(Invite)) error {
	pin := generatePIN(pinLength)
	srv := newServer(pin)
	port, err := srv.start(listenAddr)
	if err != nil {
		return err
	}
	defer srv.close()

	if announce != nil {
		announce(Invite{Port: port, PIN: pin})
	}

	wsConn, err := srv.waitForClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for client: %w", err)
	}
	defer wsConn.Close()
	util.LogInfo("signaling client connected from %s", wsConn.RemoteAddr())

	s := &sender{conn: wsConn}
	r := &receiver{conn: wsConn}

	offer, err := CreateOffer(ctx, n)
	if err != nil {
		if sendErr := s.sendError(err); sendErr != nil {
			util.LogDebug("WS error report not delivered: %v", sendErr)
		}
		return err
	}
	if err := s.sendOffer(offer); err != nil {
		return fmt.Errorf("failed to send offer: %w", err)
	}

	answer, err := r.expectAnswer(ctx)
	if err != nil {
		return fmt.Errorf("signaling failed: %w", err)
	}

	if err := CompleteOffer(ctx, n, offer, answer); err != nil {
		if sendErr := s.sendError(err); sendErr != nil {
			util.LogDebug("WS error report not delivered: %v", sendErr)
		}
		return err
	}

	if err := s.sendClose(); err != nil {
		util.LogDebug("WS close frame not delivered: %v", err)
	}
	util.LogDebug("answer applied, signaling finished")
	return nil
}

// EstablishAsClient executes the answer-side signaling flow:
//  1. Connect to the offerer's WS server
//  2. Receive the offer and build the answer
//  3. Send the answer and wait for the offerer to close the exchange
func EstablishAsClient(ctx context.Context, n Negotiator, wsURL string) error {
	wsConn, err := connect(ctx, wsURL)
	if err != nil {
		return err
	}
	defer wsConn.Close()
	util.LogDebug("WS connected: %s", wsURL)

	s := &sender{conn: wsConn}
	r := &receiver{conn: wsConn}

	offer, err := r.expectOffer(ctx)
	if err != nil {
		return fmt.Errorf("signaling failed: %w", err)
	}

	answer, err := AcceptOffer(ctx, n, offer)
	if err != nil {
		if sendErr := s.sendError(err); sendErr != nil {
			util.LogDebug("WS error report not delivered: %v", sendErr)
		}
		return err
	}
	if err := s.sendAnswer(answer); err != nil {
		return fmt.Errorf("failed to send answer: %w", err)
	}

	if err := r.waitClose(ctx); err != nil {
		return fmt.Errorf("signaling failed: %w", err)
	}
	util.LogDebug("offerer accepted the answer, signaling finished")
	return nil
}
