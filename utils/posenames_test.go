package utils

import "testing"

func TestPoseNameGeneratorUnique(t *testing.T) {
	g := NewPoseNameGenerator(0)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		name := g.Next()
		if name == "" {
			t.Fatalf("empty generated name at %d", i)
		}
		if _, dup := seen[name]; dup {
			t.Fatalf("duplicate generated name %q", name)
		}
		seen[name] = struct{}{}
	}
}

func TestPoseNameGeneratorDeterministicSeed(t *testing.T) {
	a := NewPoseNameGenerator(7).Next()
	b := NewPoseNameGenerator(7).Next()
	if a != b {
		t.Errorf("same seed produced %q and %q", a, b)
	}
}
