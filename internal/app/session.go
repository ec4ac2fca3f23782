// Package app contains the top-level orchestration for the offer and answer
// roles: build the Channel, run signaling, then pipe lines through it.
package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"

	"github.com/1ureka/p2pchan/internal/config"
	"github.com/1ureka/p2pchan/internal/signaling"
	"github.com/1ureka/p2pchan/internal/transport"
	"github.com/1ureka/p2pchan/internal/util"
)

const statsInterval = 5 * time.Second

// Session runs one peer from channel creation to shutdown.
type Session struct {
	Config config.Config

	// In supplies signaling tokens in manual mode and then the lines to
	// send. Received messages are written to Out, one per line.
	In  io.Reader
	Out io.Writer

	// Announce is called with the signaling server's port and PIN on the
	// offer side of websocket signaling. Defaults to printing a banner.
	Announce func(signaling.Invite)

	outMu sync.Mutex
}

// Run orchestrates the full session lifecycle:
//  1. Create the Channel
//  2. Exchange offer and answer over the selected signaling mode
//  3. Wait for the data channel to open
//  4. Forward input lines and print received messages until either side
//     closes, input ends, or ctx is cancelled
func (s *Session) Run(ctx context.Context) error {
	if err := s.Config.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	ch, err := transport.NewChannel(s.Config)
	if err != nil {
		return errors.Wrap(err, "create channel")
	}
	defer func() {
		if err := ch.Close(); err != nil {
			util.LogWarning("close channel: %v", err)
		}
	}()

	ch.SetOnMessage(s.printMessage)
	ch.SetOnClose(func() {
		util.LogInfo("peer closed the data channel")
	})

	// Manual signaling and the message pump share In.
	prompter := &signaling.Prompter{In: s.In, Out: s.Out}

	if err := s.establish(ctx, ch, prompter); err != nil {
		return errors.Wrap(err, "signaling")
	}

	util.LogInfo("waiting for the data channel to open...")
	select {
	case <-ch.Ready():
	case <-ch.Done():
		return errors.New("channel closed before it opened")
	case <-ctx.Done():
		return nil
	}

	util.Stats.Reset()
	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	util.StartStatsReporter(statsCtx, statsInterval)

	pterm.Success.Println("P2P data channel established, type a line to send it")

	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	go func() {
		select {
		case <-ch.Done():
			stopPump()
		case <-pumpCtx.Done():
		}
	}()

	err = pump(pumpCtx, prompter, ch.SendContext)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		util.LogInfo("input closed")
	case errors.Is(err, context.Canceled), errors.Is(err, transport.ErrClosed):
	default:
		return errors.Wrap(err, "send")
	}
	return nil
}

// establish runs the signaling flow selected by the configuration.
func (s *Session) establish(ctx context.Context, ch *transport.Channel, p *signaling.Prompter) error {
	cfg := s.Config

	switch {
	case cfg.Signal == config.SignalManual && cfg.Role == config.RoleOffer:
		return signaling.ManualOffer(ctx, ch, p)

	case cfg.Signal == config.SignalManual:
		return signaling.ManualAnswer(ctx, ch, p)

	case cfg.Role == config.RoleOffer:
		announce := s.Announce
		if announce == nil {
			announce = printInvite
		}
		return signaling.EstablishAsHost(ctx, ch, cfg.WSListen, announce)

	default:
		return signaling.EstablishAsClient(ctx, ch, cfg.WSURL)
	}
}

func (s *Session) printMessage(data []byte) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.Out, "%s\n", data)
}

// printInvite shows how the answering peer can reach the signaling server.
func printInvite(inv signaling.Invite) {
	pterm.Println()
	pterm.DefaultBox.WithTitle("WebSocket Signaling Server").Println(
		fmt.Sprintf("Port : %d\nPIN  : %s\nURL  : %s\n\nForward this port if the peer is not on your network.",
			inv.Port, inv.PIN, inv.URL("localhost")),
	)
	pterm.Println()
	util.LogInfo("waiting for the answering peer to connect...")
}
