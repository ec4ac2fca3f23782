package transport

import (
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/p2pchan/internal/config"
	"github.com/1ureka/p2pchan/internal/util"
)

// Engine is the subset of the connectivity engine the core relies on.
// *webrtc.PeerConnection satisfies it directly.
type Engine interface {
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	OnICECandidate(f func(*webrtc.ICECandidate))
	OnICEConnectionStateChange(f func(webrtc.ICEConnectionState))
	Close() error
}

// DataChannel is the subset of a pion data channel the core relies on.
// *webrtc.DataChannel satisfies it directly.
type DataChannel interface {
	OnOpen(f func())
	OnMessage(f func(msg webrtc.DataChannelMessage))
	OnClose(f func())
	Send(data []byte) error
	Close() error
	BufferedAmount() uint64
	SetBufferedAmountLowThreshold(th uint64)
	OnBufferedAmountLow(f func())
}

// Compile-time interface checks.
var (
	_ Engine      = (*webrtc.PeerConnection)(nil)
	_ DataChannel = (*webrtc.DataChannel)(nil)
)

// newPeerConnection creates a PeerConnection with the configured ICE servers.
// pion's own logs go through the pterm logger.
func newPeerConnection(cfg config.Config) (*webrtc.PeerConnection, error) {
	settings := webrtc.SettingEngine{
		LoggerFactory: util.PionLoggerFactory{},
	}

	t := cfg.Timeouts
	if t.Disconnected > 0 && t.Failed > 0 && t.KeepAlive > 0 {
		settings.SetICETimeouts(t.Disconnected, t.Failed, t.KeepAlive)
	}
	settings.SetIncludeLoopbackCandidate(cfg.IncludeLoopback)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settings))

	return api.NewPeerConnection(webrtc.Configuration{
		ICEServers: iceServers(cfg.ICEServers),
	})
}

func iceServers(servers []config.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		srv := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" || s.Credential != "" {
			srv.Username = s.Username
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}

// newDataChannel creates a pre-negotiated DataChannel on the given
// PeerConnection. Negotiated mode with a fixed ID lets both sides create the
// channel independently without relying on OnDataChannel.
func newDataChannel(pc *webrtc.PeerConnection, cfg config.ChannelConfig) (*webrtc.DataChannel, error) {
	ordered := cfg.Ordered
	negotiated := true
	id := cfg.ID

	return pc.CreateDataChannel(cfg.Label, &webrtc.DataChannelInit{
		Ordered:    &ordered,
		Negotiated: &negotiated,
		ID:         &id,
	})
}
