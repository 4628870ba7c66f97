package version

import (
	"errors"
	"strings"
	"testing"
)

// fakeGit answers git invocations keyed by their joined arguments.
func fakeGit(t *testing.T, replies map[string]string) *[]string {
	t.Helper()
	var calls []string
	orig := runGit
	runGit = func(args ...string) (string, error) {
		key := strings.Join(args, " ")
		calls = append(calls, key)
		out, ok := replies[key]
		if !ok {
			return "", errors.New("exit status 128")
		}
		return out, nil
	}
	t.Cleanup(func() {
		runGit = orig
		Reset()
	})
	Reset()
	return &calls
}

const (
	describeTags   = "describe --tags --abbrev=0"
	describeCommit = "describe --always --dirty"
)

func TestResolveFromGit(t *testing.T) {
	tests := []struct {
		name       string
		replies    map[string]string
		wantVer    string
		wantCommit string
	}{
		{
			name:       "tag with v prefix",
			replies:    map[string]string{describeTags: "v0.4.2", describeCommit: "a1b2c3d"},
			wantVer:    "0.4.2",
			wantCommit: "a1b2c3d",
		},
		{
			name:       "calendar tag kept as is",
			replies:    map[string]string{describeTags: "2026.10", describeCommit: "a1b2c3d-dirty"},
			wantVer:    "2026.10",
			wantCommit: "a1b2c3d-dirty",
		},
		{
			name:       "untagged checkout",
			replies:    map[string]string{describeCommit: "a1b2c3d"},
			wantVer:    "dev",
			wantCommit: "a1b2c3d",
		},
		{
			name:       "empty tag output",
			replies:    map[string]string{describeTags: "", describeCommit: "a1b2c3d"},
			wantVer:    "dev",
			wantCommit: "a1b2c3d",
		},
		{
			name:       "not a repository",
			replies:    nil,
			wantVer:    "dev",
			wantCommit: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeGit(t, tt.replies)

			if got := GetVersion(); got != tt.wantVer {
				t.Errorf("GetVersion() = %q, want %q", got, tt.wantVer)
			}
			if got := GetCommit(); got != tt.wantCommit {
				t.Errorf("GetCommit() = %q, want %q", got, tt.wantCommit)
			}
		})
	}
}

func TestLdflagsWinOverGit(t *testing.T) {
	calls := fakeGit(t, map[string]string{describeTags: "v9.9.9", describeCommit: "ffffff"})
	Version, Commit, Date = "1.3.0", "0badc0de", "2026-10-01"

	if got := Info(); !strings.HasPrefix(got, "tempo 1.3.0 (commit: 0badc0de, built: 2026-10-01,") {
		t.Errorf("Info() = %q", got)
	}
	if len(*calls) != 0 {
		t.Errorf("git was consulted despite ldflags: %v", *calls)
	}
}

func TestResolvesOnce(t *testing.T) {
	calls := fakeGit(t, map[string]string{describeTags: "v0.4.2", describeCommit: "a1b2c3d"})

	for range 3 {
		_ = Info()
	}
	if len(*calls) != 2 {
		t.Errorf("git calls = %v, want one per field", *calls)
	}
}

func TestInfo_NamesProgram(t *testing.T) {
	fakeGit(t, nil)

	info := Info()
	if !strings.HasPrefix(info, Name+" dev ") {
		t.Errorf("Info() = %q, want prefix %q", info, Name+" dev ")
	}
	if GetDate() == "" {
		t.Error("GetDate() returned empty string")
	}
}
