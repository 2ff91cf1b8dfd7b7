// Package config manages ssnode daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the complete ssnode configuration.
type Config struct {
	Node    NodeConfig    `koanf:"node"`
	Peers   []PeerConfig  `koanf:"peers"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Admin   AdminConfig   `koanf:"admin"`
}

// NodeConfig holds this node's identity and listen address.
type NodeConfig struct {
	// ListenAddr is the TCP address this node accepts peer connections on
	// (e.g., ":7700").
	ListenAddr string `koanf:"listen_addr"`

	// SeedHex is the hex-encoded ed25519 private key seed for this node's
	// identity keypair. Empty generates a fresh, ephemeral keypair on
	// startup -- fine for a demo node, wrong for anything that must keep
	// the same NodeId across restarts.
	SeedHex string `koanf:"seed_hex"`

	// NodeIDHex, if set, is the expected hex-encoded NodeId for SeedHex.
	// Startup fails if the derived keypair doesn't match, catching a config
	// file edited out from under a running deployment.
	NodeIDHex string `koanf:"node_id_hex"`
}

// Seed decodes SeedHex, if set.
func (nc NodeConfig) Seed() ([]byte, error) {
	if nc.SeedHex == "" {
		return nil, nil
	}
	seed, err := hex.DecodeString(nc.SeedHex)
	if err != nil {
		return nil, fmt.Errorf("decode node.seed_hex: %w", err)
	}
	return seed, nil
}

// ExpectedNodeID decodes NodeIDHex, if set, into a 32-byte array suitable
// for conversion to cluster.NodeId.
func (nc NodeConfig) ExpectedNodeID() (id [32]byte, ok bool, err error) {
	if nc.NodeIDHex == "" {
		return id, false, nil
	}
	raw, err := hex.DecodeString(nc.NodeIDHex)
	if err != nil {
		return id, false, fmt.Errorf("decode node.node_id_hex: %w", err)
	}
	if len(raw) != len(id) {
		return id, false, fmt.Errorf("node.node_id_hex must decode to %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, true, nil
}

// PeerConfig describes one other node in the cluster.
type PeerConfig struct {
	// NodeIDHex is the peer's hex-encoded ed25519 public key.
	NodeIDHex string `koanf:"node_id_hex"`

	// Addr is the peer's dial address (e.g., "10.0.0.2:7700").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// AdminConfig names the administrator address allowed to start a
// servers-set-change session, and the listener that accepts their commands.
type AdminConfig struct {
	// AddressHex is the hex-encoded 20-byte administrator address. Empty
	// leaves the address unset; the sessionsim servers-set-change session
	// does not check signatures against it either way.
	AddressHex string `koanf:"address_hex"`

	// ListenAddr is the TCP address the text-based admin listener accepts
	// setchange commands on. Empty disables the listener.
	ListenAddr string `koanf:"listen_addr"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ListenAddr: ":7700",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for ssnode configuration.
// Variables are named SSNODE_<section>_<key>, e.g., SSNODE_NODE_LISTEN_ADDR.
const envPrefix = "SSNODE_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (SSNODE_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms SSNODE_NODE_LISTEN_ADDR -> node.listen_addr.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"node.listen_addr": defaults.Node.ListenAddr,
		"metrics.addr":     defaults.Metrics.Addr,
		"metrics.path":     defaults.Metrics.Path,
		"log.level":        defaults.Log.Level,
		"log.format":       defaults.Log.Format,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

var (
	// ErrEmptyListenAddr indicates the node listen address is empty.
	ErrEmptyListenAddr = errors.New("node.listen_addr must not be empty")

	// ErrInvalidPeerNodeID indicates a peer entry has a malformed NodeId.
	ErrInvalidPeerNodeID = errors.New("peer node_id_hex must decode to 32 bytes")

	// ErrInvalidPeerAddr indicates a peer entry has an empty dial address.
	ErrInvalidPeerAddr = errors.New("peer addr must not be empty")

	// ErrDuplicatePeer indicates two peer entries share the same NodeId.
	ErrDuplicatePeer = errors.New("duplicate peer node_id_hex")
)

// Validate checks the configuration for logical errors.
func Validate(cfg *Config) error {
	if cfg.Node.ListenAddr == "" {
		return ErrEmptyListenAddr
	}

	if _, err := cfg.Node.Seed(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(cfg.Peers))
	for i, p := range cfg.Peers {
		raw, err := hex.DecodeString(p.NodeIDHex)
		if err != nil || len(raw) != 32 {
			return fmt.Errorf("peers[%d]: %w", i, ErrInvalidPeerNodeID)
		}
		if p.Addr == "" {
			return fmt.Errorf("peers[%d]: %w", i, ErrInvalidPeerAddr)
		}
		if _, dup := seen[p.NodeIDHex]; dup {
			return fmt.Errorf("peers[%d] %q: %w", i, p.NodeIDHex, ErrDuplicatePeer)
		}
		seen[p.NodeIDHex] = struct{}{}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
