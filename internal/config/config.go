package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultTemplate []byte

type Config struct {
	Network    NetworkConfig    `toml:"network"`
	Server     ServerConfig     `toml:"server"`
	Forwarding ForwardingConfig `toml:"forwarding"`
	Logging    LoggingConfig    `toml:"logging"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Scripting  ScriptingConfig  `toml:"scripting"`

	Created bool `toml:"-"` // set when Load wrote the default template
}

type NetworkConfig struct {
	BindAddress string        `toml:"bind_address"`
	ReadTimeout time.Duration `toml:"read_timeout"`
}

type ServerConfig struct {
	MaxPlayers         int      `toml:"max_players"`
	MOTD               string   `toml:"motd"`
	Version            string   `toml:"version"`
	Brand              string   `toml:"brand"`
	DefaultGameMode    GameMode `toml:"default_gamemode"`
	HidePlayerIPs      bool     `toml:"hide_player_ips"`
	ViewDistance       int      `toml:"view_distance"`
	SimulationDistance int      `toml:"simulation_distance"`
	Spawn              Location `toml:"spawn"`
}

// Location is a position with a facing direction.
type Location struct {
	X     float64 `toml:"x"`
	Y     float64 `toml:"y"`
	Z     float64 `toml:"z"`
	Yaw   float32 `toml:"yaw"`
	Pitch float32 `toml:"pitch"`
}

type ForwardingConfig struct {
	Enabled bool   `toml:"enabled"`
	Secret  string `toml:"secret"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console, json
}

type MetricsConfig struct {
	BindAddress string `toml:"bind_address"` // empty disables
}

type ScriptingConfig struct {
	Path string `toml:"path"` // empty disables
}

// GameMode is a player game mode, written by name in the config file.
type GameMode uint8

const (
	Survival GameMode = iota
	Creative
	Adventure
	Spectator
)

var gameModeNames = [...]string{"survival", "creative", "adventure", "spectator"}

func (g GameMode) String() string {
	if int(g) < len(gameModeNames) {
		return gameModeNames[g]
	}
	return fmt.Sprintf("GameMode(%d)", uint8(g))
}

func (g GameMode) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *GameMode) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range gameModeNames {
		if n == name {
			*g = GameMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown game mode %q", text)
}

// Load reads the config at path. A missing file is first created from the
// embedded default template.
func Load(path string) (*Config, error) {
	created := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(path, defaultTemplate, 0o644); err != nil {
			return nil, fmt.Errorf("write default config %s: %w", path, err)
		}
		created = true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Created = created
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Network.BindAddress == "" {
		errs = append(errs, errors.New("network.bind_address is empty"))
	}
	if c.Network.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("network.read_timeout must be positive, got %s", c.Network.ReadTimeout))
	}
	if c.Server.MaxPlayers < 0 {
		errs = append(errs, fmt.Errorf("server.max_players must not be negative, got %d", c.Server.MaxPlayers))
	}
	if c.Server.DefaultGameMode > Spectator {
		errs = append(errs, fmt.Errorf("server.default_gamemode %s is invalid", c.Server.DefaultGameMode))
	}
	if c.Server.ViewDistance < 2 || c.Server.ViewDistance > 32 {
		errs = append(errs, fmt.Errorf("server.view_distance must be within 2..32, got %d", c.Server.ViewDistance))
	}
	if c.Server.SimulationDistance < 2 || c.Server.SimulationDistance > 32 {
		errs = append(errs, fmt.Errorf("server.simulation_distance must be within 2..32, got %d", c.Server.SimulationDistance))
	}
	if c.Forwarding.Enabled && c.Forwarding.Secret == "" {
		errs = append(errs, errors.New("forwarding.secret is required when forwarding is enabled"))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Network: NetworkConfig{
			BindAddress: "0.0.0.0:25565",
			ReadTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			MaxPlayers:         100,
			MOTD:               "A Limbo Server",
			Version:            "1.20.4",
			Brand:              "limbo",
			DefaultGameMode:    Spectator,
			ViewDistance:       2,
			SimulationDistance: 2,
			Spawn:              Location{X: 0.5, Y: 64, Z: 0.5},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
