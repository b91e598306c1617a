package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if BuildTime == "" || GitCommit == "" {
		t.Error("build metadata should be initialized")
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "profilepub ") {
		t.Errorf("unexpected version line %q", s)
	}
	if !strings.Contains(s, Version) {
		t.Errorf("expected version line to contain %q, got %q", Version, s)
	}
}
