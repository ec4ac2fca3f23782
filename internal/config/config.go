// Package config holds the CLI configuration types and the optional config
// file loader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Role represents which side of the handshake this process plays.
type Role string

const (
	RoleOffer  Role = "offer"
	RoleAnswer Role = "answer"
)

// SignalMode selects how offer/answer bundles reach the other peer.
type SignalMode string

const (
	SignalWebSocket SignalMode = "ws"     // PIN-protected websocket relay hosted by the offerer
	SignalManual    SignalMode = "manual" // copy-paste tokens over stdin/stdout
)

// ICEServer is one discovery/relay endpoint with optional credentials.
type ICEServer struct {
	URLs       []string `yaml:"urls" json:"urls"`
	Username   string   `yaml:"username,omitempty" json:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty" json:"credential,omitempty"`
}

// ChannelConfig describes the single pre-negotiated data channel.
type ChannelConfig struct {
	Label   string `yaml:"label" json:"label"`
	ID      uint16 `yaml:"id" json:"id"`
	Ordered bool   `yaml:"ordered" json:"ordered"`
}

// ICETimeouts mirror pion's SettingEngine.SetICETimeouts arguments.
type ICETimeouts struct {
	Disconnected time.Duration `yaml:"disconnected" json:"disconnected"`
	Failed       time.Duration `yaml:"failed" json:"failed"`
	KeepAlive    time.Duration `yaml:"keep_alive" json:"keep_alive"`
}

// Config stores all parameters gathered from flags, the config file and the
// interactive prompts.
type Config struct {
	Role   Role       `yaml:"role" json:"role"`
	Signal SignalMode `yaml:"signal" json:"signal"`

	WSListen string `yaml:"ws_listen" json:"ws_listen"` // Offer: websocket listen address, ":0" picks a port
	WSURL    string `yaml:"ws_url" json:"ws_url"`       // Answer: websocket URL including ?pin=

	ICEServers      []ICEServer   `yaml:"ice_servers" json:"ice_servers"`
	Channel         ChannelConfig `yaml:"channel" json:"channel"`
	Timeouts        ICETimeouts   `yaml:"timeouts" json:"timeouts"`
	IncludeLoopback bool          `yaml:"include_loopback" json:"include_loopback"`

	Debug bool `yaml:"debug" json:"debug"`
}

// DefaultICEServers is the fixed connectivity-hint list: two public STUN
// servers plus the open relay TURN endpoints.
func DefaultICEServers() []ICEServer {
	return []ICEServer{
		{
			URLs: []string{
				"stun:stun1.l.google.com:19302",
				"stun:global.stun.twilio.com:3478",
			},
		},
		{
			URLs: []string{
				"turn:openrelay.metered.ca:80",
				"turn:openrelay.metered.ca:443",
			},
			Username:   "openrelayproject",
			Credential: "openrelayproject",
		},
	}
}

// Default returns a Config with the fixed ICE list and channel settings.
func Default() Config {
	return Config{
		Signal:     SignalWebSocket,
		WSListen:   ":0",
		ICEServers: DefaultICEServers(),
		Channel: ChannelConfig{
			Label:   "p2pchan",
			ID:      0,
			Ordered: true,
		},
		Timeouts: ICETimeouts{
			Disconnected: 5 * time.Second,
			Failed:       25 * time.Second,
			KeepAlive:    2 * time.Second,
		},
	}
}

// Load reads a config file on top of Default(). Files ending in .json or
// .jsonc may contain comments and trailing commas.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	// JSON is a subset of YAML, so one decoder serves both.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the fields required by the selected role and mode.
func (c Config) Validate() error {
	switch c.Role {
	case RoleOffer, RoleAnswer:
	default:
		return fmt.Errorf("invalid role %q: must be %q or %q", c.Role, RoleOffer, RoleAnswer)
	}

	switch c.Signal {
	case SignalWebSocket:
		if c.Role == RoleAnswer && c.WSURL == "" {
			return fmt.Errorf("missing websocket URL for %s role", c.Role)
		}
	case SignalManual:
	default:
		return fmt.Errorf("invalid signal mode %q: must be %q or %q", c.Signal, SignalWebSocket, SignalManual)
	}

	if c.Channel.Label == "" {
		return fmt.Errorf("channel label must not be empty")
	}

	for i, s := range c.ICEServers {
		if len(s.URLs) == 0 {
			return fmt.Errorf("ice server %d has no URLs", i)
		}
	}

	return nil
}
