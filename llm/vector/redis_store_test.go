package vector

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodeVector(t *testing.T) {
	vec := []float32{1.5, -0.25, 0}
	blob := encodeVector(vec)

	if len(blob) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(blob))
	}
	for i, want := range vec {
		got := math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
		if got != want {
			t.Errorf("component %d: got %f, want %f", i, got, want)
		}
	}
}

func TestTagEscaping(t *testing.T) {
	cases := []string{
		"policies",
		"release notes",
		"a,b",
		"docs/getting started, part 1",
	}
	for _, in := range cases {
		if got := unescapeTag(escapeTag(in)); got != in {
			t.Errorf("round trip changed %q to %q", in, got)
		}
	}
}
