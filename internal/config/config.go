package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default configuration values (production)
const (
	DefaultDomain   = "live.classroom-edu.org"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "" // Optional, empty by default
	DefaultTURNUser = ""
	DefaultTURNPass = ""
)

// Config holds client configuration.
type Config struct {
	// Domain is the relay server domain.
	Domain string

	// WebSocketURL is constructed from the domain.
	WebSocketURL string

	// ICE servers for the peer media layer.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay routes all media through TURN.
	ForceRelay bool
}

// Options for loading config with CLI flag overrides.
type Options struct {
	Domain     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := firstOf(opts.Domain, os.Getenv("CLASSROOM_DOMAIN"), DefaultDomain)
	stunServer := firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstOf(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN)
	turnUser := firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME"), DefaultTURNUser)
	turnPass := firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD"), DefaultTURNPass)

	cfg := &Config{
		Domain:       domain,
		WebSocketURL: fmt.Sprintf("wss://%s/ws", domain),
		STUNServer:   stunServer,
		TURNServer:   turnServer,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
		ForceRelay:   opts.ForceRelay,
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}
	return cfg, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// Relay server defaults.
const (
	DefaultRelayPort = "8080"
	DefaultSeatRows  = 5
	DefaultSeatCols  = 8
)

// RelayConfig holds relay server configuration, read from the
// environment.
type RelayConfig struct {
	// Port the relay listens on.
	Port string

	// RedisAddr enables the Redis seat snapshot store when non-empty;
	// otherwise snapshots live in memory.
	RedisAddr string

	// SeatRows and SeatCols fix every room's seat grid.
	SeatRows int
	SeatCols int
}

// LoadRelay reads the relay configuration from environment variables,
// falling back to defaults.
func LoadRelay() (*RelayConfig, error) {
	cfg := &RelayConfig{
		Port:      firstOf(os.Getenv("PORT"), DefaultRelayPort),
		RedisAddr: os.Getenv("REDIS_ADDR"),
		SeatRows:  DefaultSeatRows,
		SeatCols:  DefaultSeatCols,
	}

	if rows := os.Getenv("SEAT_ROWS"); rows != "" {
		n, err := strconv.Atoi(rows)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SEAT_ROWS: %q", rows)
		}
		cfg.SeatRows = n
	}
	if cols := os.Getenv("SEAT_COLS"); cols != "" {
		n, err := strconv.Atoi(cols)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SEAT_COLS: %q", cols)
		}
		cfg.SeatCols = n
	}

	return cfg, nil
}
