package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	info := Info()
	if !strings.HasPrefix(info, "devwatch "+Version) {
		t.Errorf("Info() = %q, want devwatch prefix and version", info)
	}
	if !strings.Contains(info, GitCommit) {
		t.Errorf("Info() = %q, missing commit", info)
	}
}

func TestMap(t *testing.T) {
	m := Map()
	for _, key := range []string{"version", "git_commit", "build_date", "go_version", "os", "arch"} {
		if m[key] == "" {
			t.Errorf("Map()[%q] is empty", key)
		}
	}
	if m["version"] != Short() {
		t.Errorf("Map()[version] = %q, want %q", m["version"], Short())
	}
}
