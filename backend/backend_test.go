package backend

import "testing"

type callRecorder struct {
	NoopInterface
	calls []string
}

func (r *callRecorder) ID(CommandContext) {
	r.calls = append(r.calls, "id")
}

func TestNoopInterfaceSatisfiesInterface(t *testing.T) {
	var iface Interface = NoopInterface{}
	iface.ID(CommandContext{Mode: CommandLine})
	iface.GetFramerate(CommandContext{Mode: DirectControl})
}

func TestEmbeddingOverridesSelectively(t *testing.T) {
	r := &callRecorder{}
	var iface Interface = r
	iface.ID(CommandContext{})
	iface.GetFramerate(CommandContext{}) // falls through to the no-op

	if len(r.calls) != 1 || r.calls[0] != "id" {
		t.Fatalf("expected exactly one recorded call, got %v", r.calls)
	}
}

func TestStatusStrings(t *testing.T) {
	for _, s := range []Status{Success, InvalidBodySize, MalformedSyntax, InvalidHeader} {
		if s.String() == "unknown" {
			t.Fatalf("status %d missing a String case", s)
		}
	}
}
