package node

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// NetworkConfig selects the transports and discovery mechanisms the core
// enables. Changes apply on the next start.
type NetworkConfig struct {
	DefaultTransport bool     `json:"default_transport"`
	BluetoothLE      bool     `json:"bluetooth_le"`
	MulticastDNS     bool     `json:"multicast_dns"`
	DHT              string   `json:"dht"` // "client", "server", "auto" or "none"
	StaticRelay      bool     `json:"static_relay"`
	DefaultBootstrap bool     `json:"default_bootstrap"`
	CustomBootstrap  []string `json:"custom_bootstrap,omitempty"`
	SwarmListeners   []string `json:"swarm_listeners,omitempty"`
}

// DefaultNetworkConfig is used until a config has been stored.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		DefaultTransport: true,
		BluetoothLE:      false,
		MulticastDNS:     true,
		DHT:              "client",
		StaticRelay:      true,
		DefaultBootstrap: true,
	}
}

var validDHT = map[string]bool{"client": true, "server": true, "auto": true, "none": true}

// ParseNetworkConfig decodes s. Unknown fields and trailing data are
// rejected; a missing dht mode defaults to "client".
func ParseNetworkConfig(s string) (NetworkConfig, error) {
	var cfg NetworkConfig
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return NetworkConfig{}, fmt.Errorf("decode network config: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return NetworkConfig{}, fmt.Errorf("decode network config: trailing data")
	}
	if cfg.DHT == "" {
		cfg.DHT = "client"
	}
	if !validDHT[cfg.DHT] {
		return NetworkConfig{}, fmt.Errorf("invalid dht mode %q", cfg.DHT)
	}
	return cfg, nil
}

// Encode returns the JSON form handed across the bridge.
func (c NetworkConfig) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode network config: %w", err)
	}
	return string(data), nil
}
