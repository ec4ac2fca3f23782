// p2pchan: CLI entry point.
//
// This tool opens a peer-to-peer data channel between two machines and turns
// it into a line-based chat: every line typed on one side is delivered as one
// message on the other. The offer and answer are exchanged either through a
// PIN-protected WebSocket hosted by the offering side or as copy-paste tokens.
//
// It can be launched interactively (no --role) or non-interactively via CLI
// flags (--role, --signal, --ws-listen, --ws-url, --config, --debug).
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/1ureka/p2pchan/internal/app"
	"github.com/1ureka/p2pchan/internal/config"
	"github.com/1ureka/p2pchan/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	flags := pflag.NewFlagSet("p2pchan", pflag.ExitOnError)
	role := flags.StringP("role", "r", "", "Role: offer or answer")
	signalMode := flags.StringP("signal", "s", "", "Signaling mode: ws or manual")
	wsListen := flags.String("ws-listen", "", "WebSocket signaling listen address (offer only, default :0)")
	wsURL := flags.String("ws-url", "", "WebSocket URL including ?pin= (answer only)")
	configPath := flags.StringP("config", "c", "", "Optional YAML or JSONC config file")
	loopback := flags.Bool("loopback", false, "Also gather loopback candidates (same-host testing)")
	debugMode := flags.BoolP("debug", "d", false, "Enable debug logging")
	flags.Parse(os.Args[1:])

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags override the config file.
	if *role != "" {
		cfg.Role = config.Role(*role)
	}
	if *signalMode != "" {
		cfg.Signal = config.SignalMode(*signalMode)
	}
	if *wsListen != "" {
		cfg.WSListen = *wsListen
	}
	if *wsURL != "" {
		cfg.WSURL = *wsURL
	}
	if flags.Changed("loopback") {
		cfg.IncludeLoopback = *loopback
	}
	if *debugMode {
		cfg.Debug = true
	}

	if cfg.Debug {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("p2pchan v%s", version))
	pterm.Println()

	if cfg.Role == "" {
		// No role from flags or config: interactive mode.
		cfg = askConfig(cfg)
	}

	if cfg.Signal == config.SignalWebSocket && cfg.WSURL != "" {
		normalized, err := normalizeWSURL(cfg.WSURL)
		if err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
		cfg.WSURL = normalized
	}

	session := &app.Session{Config: cfg, In: os.Stdin, Out: os.Stdout}
	if err := session.Run(ctx); err != nil {
		util.LogError("session failed: %v", err)
		os.Exit(1)
	}

	util.LogInfo("successfully closed data channel")
}

// ---------------------------------------------------------------------------
// Interactive prompts
// ---------------------------------------------------------------------------

// askConfig falls back to interactive prompts when no role is configured.
func askConfig(cfg config.Config) config.Config {
	role, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"Offer  - Start a session", "Answer - Join a session"}).
		WithDefaultText("Select your role").
		Show()
	pterm.Println()

	if strings.HasPrefix(role, "Offer") {
		cfg.Role = config.RoleOffer
	} else {
		cfg.Role = config.RoleAnswer
	}

	mode, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"WebSocket - PIN-protected relay", "Manual    - Copy-paste tokens"}).
		WithDefaultText("Select signaling mode").
		Show()
	pterm.Println()

	if strings.HasPrefix(mode, "Manual") {
		cfg.Signal = config.SignalManual
	} else {
		cfg.Signal = config.SignalWebSocket
	}

	if cfg.Role == config.RoleAnswer && cfg.Signal == config.SignalWebSocket {
		cfg.WSURL = askURL()
	}

	return cfg
}

// askURL prompts the user for a valid WebSocket URL until one is entered.
func askURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("WebSocket URL (e.g. ws://192.168.1.5:41234/ws?pin=123456)").
			Show()

		wsURL, err := normalizeWSURL(raw)
		if err == nil {
			pterm.Println()
			return wsURL
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter a valid host or URL including the PIN")
	}
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// normalizeWSURL validates a raw WebSocket URL string. A missing scheme
// defaults to ws, matching the plain HTTP relay, and a missing path to /ws. The pin query parameter is
// required.
func normalizeWSURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid WebSocket URL scheme: %s", u.Scheme)
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	if u.Query().Get("pin") == "" {
		return "", fmt.Errorf("WebSocket URL is missing the pin parameter: %s", raw)
	}

	return u.String(), nil
}
