package config

import "testing"

func TestNormalizeDefaults(t *testing.T) {
	cfg := Config{}
	if err := normalize(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":7755" {
		t.Fatalf("Listen=%q want default", cfg.Listen)
	}
	if cfg.SACNSourceName != "dcsm" {
		t.Fatalf("SACNSourceName=%q want default", cfg.SACNSourceName)
	}
}

func TestNormalizeRejectsZeroTargetUniverse(t *testing.T) {
	cfg := Config{Targets: []Target{{Universe: 0, Protocol: ProtocolArtNet}}}
	if err := normalize(&cfg); err == nil {
		t.Fatal("expected error for zero-universe target")
	}
}

func TestNormalizeRejectsUnknownProtocol(t *testing.T) {
	cfg := Config{Targets: []Target{{Universe: 1, Protocol: "dmx-over-carrier-pigeon"}}}
	if err := normalize(&cfg); err == nil {
		t.Fatal("expected error for unknown protocol")
	}
}

func TestNormalizeRejectsZeroStartupPatchEndpoints(t *testing.T) {
	cfg := Config{StartupPatches: []StartupPatch{{Input: 0, Output: 1}}}
	if err := normalize(&cfg); err == nil {
		t.Fatal("expected error for zero input universe")
	}
}

func FuzzNormalize(f *testing.F) {
	f.Add(uint16(1), "artnet", uint16(1), uint16(2))
	f.Add(uint16(0), "artnet", uint16(0), uint16(0))
	f.Add(uint16(1), "bogus", uint16(1), uint16(1))

	f.Fuzz(func(t *testing.T, targetUniverse uint16, proto string, patchIn, patchOut uint16) {
		cfg := Config{
			Targets:        []Target{{Universe: targetUniverse, Protocol: Protocol(proto)}},
			StartupPatches: []StartupPatch{{Input: patchIn, Output: patchOut}},
		}
		// normalize must never panic regardless of input; only report an
		// error or succeed.
		_ = normalize(&cfg)
	})
}
