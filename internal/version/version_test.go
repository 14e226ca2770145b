package version

import (
	"strings"
	"testing"
)

func TestVersionDefaults(t *testing.T) {
	if Version == "" {
		t.Fatal("Version should have a default value")
	}
	if !strings.Contains(Version, "-dev") {
		t.Errorf("default Version should carry the -dev suffix, got %q", Version)
	}
}

func TestVersionLdflagsOverride(t *testing.T) {
	orig := Version
	origCommit := GitCommit
	origDate := BuildDate
	defer func() {
		Version = orig
		GitCommit = origCommit
		BuildDate = origDate
	}()

	Version = "1.2.3"
	GitCommit = "abc123def456"
	BuildDate = "2026-01-15T10:30:00Z"

	if Version != "1.2.3" || GitCommit != "abc123def456" || BuildDate != "2026-01-15T10:30:00Z" {
		t.Errorf("override failed: %q %q %q", Version, GitCommit, BuildDate)
	}
}
