package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk daemon configuration: where to listen for DCSM
// clients, how to reach sACN, and the output targets/startup patches
// the universe store wires up before accepting any client.
type Config struct {
	Listen         string         `toml:"listen"`
	Debug          bool           `toml:"debug"`
	SACNSourceName string         `toml:"sacn_source_name"`
	SACNInterface  string         `toml:"sacn_interface"`
	Targets        []Target       `toml:"target"`
	StartupPatches []StartupPatch `toml:"startup_patch"`
}

// Protocol identifies which wire protocol a Target transmits over.
type Protocol string

const (
	ProtocolArtNet Protocol = "artnet"
	ProtocolSACN   Protocol = "sacn"
)

// Target binds a DCSM output universe to a real lighting-control
// protocol destination. Address is a unicast host:port; if empty the
// universe is broadcast (ArtNet) or multicast (sACN) instead.
type Target struct {
	Universe uint16   `toml:"universe"`
	Protocol Protocol `toml:"protocol"`
	Address  string   `toml:"address"`
}

// StartupPatch installs a patch before the first client connects.
type StartupPatch struct {
	Input  uint16 `toml:"input"`
	Output uint16 `toml:"output"`
	Mask   uint16 `toml:"mask"`
}

// Load reads and validates the TOML config at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize fills in defaults and validates a decoded config in place.
func normalize(cfg *Config) error {
	if cfg.Listen == "" {
		cfg.Listen = ":7755"
	}
	if cfg.SACNSourceName == "" {
		cfg.SACNSourceName = "dcsm"
	}

	for i, t := range cfg.Targets {
		if t.Universe == 0 {
			return fmt.Errorf("config: target %d: universe must be non-zero", i)
		}
		switch t.Protocol {
		case ProtocolArtNet, ProtocolSACN:
		default:
			return fmt.Errorf("config: target %d: unknown protocol %q", i, t.Protocol)
		}
	}

	for i, p := range cfg.StartupPatches {
		if p.Input == 0 || p.Output == 0 {
			return fmt.Errorf("config: startup_patch %d: input and output must be non-zero", i)
		}
	}

	return nil
}
