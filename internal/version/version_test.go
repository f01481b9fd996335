package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	origVersion, origDirty := Version, Dirty
	t.Cleanup(func() { Version, Dirty = origVersion, origDirty })

	Version, Dirty = "1.2.3", "false"
	if got := String(); got != "1.2.3" {
		t.Errorf("String() = %q", got)
	}
	Dirty = "true"
	if got := String(); got != "1.2.3-dirty" {
		t.Errorf("String() = %q", got)
	}
	if !Get().Dirty {
		t.Error("Get().Dirty should be true")
	}
}

func TestFull(t *testing.T) {
	out := Full()
	if !strings.HasPrefix(out, "pubharvest ") {
		t.Errorf("Full() should start with the binary name: %q", out)
	}
	for _, want := range []string{"commit:", "built:", "go:", "platform:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Full() missing %q", want)
		}
	}
}
