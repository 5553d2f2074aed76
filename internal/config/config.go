// Package config loads the flat, env-var-first configuration surfaces
// for the server and client sides of the relay.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	envBindAddr = "HOOKHUB_BIND_ADDR"
	envSecret   = "HOOKHUB_SECRET"
	envVersion  = "HOOKHUB_VERSION"
	envLogLevel = "HOOKHUB_LOG_LEVEL"
	envRemote   = "HOOKHUB_REMOTE"
	envLocal    = "HOOKHUB_LOCAL"
	envHome     = "HOOKHUB_HOME"

	// DefaultVersion is the build-time protocol version string
	// advertised by the server and checked against the client's
	// Basic-auth username. Version negotiation is exact match, not
	// semver.
	DefaultVersion = "1.0.0"
)

// Server is the bind address and shared secret the public-facing side
// of the relay needs.
type Server struct {
	BindAddr string
	Secret   string
	Version  string
	LogLevel string
}

// LoadServer builds a Server config from flags (already parsed by the
// caller) layered over the environment, falling back to defaults.
func LoadServer(bindAddr, secret, version, logLevel string) (Server, error) {
	cfg := Server{
		BindAddr: firstNonEmpty(bindAddr, getString(envBindAddr, "")),
		Secret:   firstNonEmpty(secret, getString(envSecret, "")),
		Version:  firstNonEmpty(version, getString(envVersion, DefaultVersion)),
		LogLevel: firstNonEmpty(logLevel, getString(envLogLevel, "info")),
	}
	if cfg.BindAddr == "" {
		return Server{}, fmt.Errorf("config: bind address is required (-bind or %s)", envBindAddr)
	}
	if cfg.Secret == "" {
		return Server{}, fmt.Errorf("config: secret is required (-secret or %s)", envSecret)
	}
	return cfg, nil
}

// Client is the remote/secret/local triple plus storage home the
// connect command needs, once resolved (directly, or via a profile).
type Client struct {
	Remote   string
	Secret   string
	Local    string
	Version  string
	LogLevel string
	Home     string
}

// LoadClient builds a Client config the same way LoadServer does.
// Remote/Secret/Local are typically supplied by the profile store
// rather than flags; pass empty strings to fall through to the
// environment only.
func LoadClient(remote, secret, local, version, logLevel, home string) (Client, error) {
	cfg := Client{
		Remote:   firstNonEmpty(remote, getString(envRemote, "")),
		Secret:   firstNonEmpty(secret, getString(envSecret, "")),
		Local:    firstNonEmpty(local, getString(envLocal, "")),
		Version:  firstNonEmpty(version, getString(envVersion, DefaultVersion)),
		LogLevel: firstNonEmpty(logLevel, getString(envLogLevel, "info")),
		Home:     firstNonEmpty(home, getString(envHome, defaultHome())),
	}
	if cfg.Remote == "" {
		return Client{}, fmt.Errorf("config: remote URL is required (-remote, profile, or %s)", envRemote)
	}
	if cfg.Secret == "" {
		return Client{}, fmt.Errorf("config: secret is required (-secret, profile, or %s)", envSecret)
	}
	if cfg.Local == "" {
		return Client{}, fmt.Errorf("config: local URL is required (-local, profile, or %s)", envLocal)
	}
	return cfg, nil
}

// ResolveHome returns override if set, else $HOOKHUB_HOME, else
// ~/.hookhub. Shared by every subcommand that needs the storage home
// before (or without) building a full Client config.
func ResolveHome(override string) string {
	return firstNonEmpty(override, getString(envHome, defaultHome()))
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hookhub"
	}
	return filepath.Join(home, ".hookhub")
}
