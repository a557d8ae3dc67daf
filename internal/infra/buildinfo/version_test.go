package buildinfo

import (
	"runtime/debug"
	"strings"
	"sync"
	"testing"
)

func resetBuildInfo(t *testing.T, fake func() (*debug.BuildInfo, bool)) {
	t.Helper()
	saved := []string{Version, Commit, BuildTime, GoVersion}
	savedRead := readBuildInfo
	t.Cleanup(func() {
		Version, Commit, BuildTime, GoVersion = saved[0], saved[1], saved[2], saved[3]
		readBuildInfo = savedRead
		fillOnce = sync.Once{}
	})
	Version, Commit, BuildTime, GoVersion = "dev", "unknown", "unknown", "unknown"
	readBuildInfo = fake
	fillOnce = sync.Once{}
}

func TestGet_FromToolchain(t *testing.T) {
	resetBuildInfo(t, func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.24.4",
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				{Key: "vcs.time", Value: "2025-01-02T03:04:05Z"},
			},
		}, true
	})

	info := Get()
	if info.Version != "dev" {
		t.Errorf("Version = %q, want dev", info.Version)
	}
	if info.Commit != "0123456789ab" {
		t.Errorf("Commit = %q, want shortened revision", info.Commit)
	}
	if info.BuildTime != "2025-01-02T03:04:05Z" {
		t.Errorf("BuildTime = %q", info.BuildTime)
	}
	if info.GoVersion != "go1.24.4" {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
}

func TestGet_LdflagsWin(t *testing.T) {
	resetBuildInfo(t, func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.24.4",
			Settings:  []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffff"}},
		}, true
	})
	Version = "v1.2.3"
	Commit = "abc123"

	info := Get()
	if info.Version != "v1.2.3" || info.Commit != "abc123" {
		t.Errorf("Get() = %+v, want injected values kept", info)
	}
}

func TestGet_NoBuildInfo(t *testing.T) {
	resetBuildInfo(t, func() (*debug.BuildInfo, bool) { return nil, false })

	info := Get()
	for name, v := range map[string]string{
		"Version": info.Version, "Commit": info.Commit,
		"BuildTime": info.BuildTime, "GoVersion": info.GoVersion,
	} {
		if v == "" {
			t.Errorf("%s should not be empty", name)
		}
	}
}

func TestString(t *testing.T) {
	resetBuildInfo(t, func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{GoVersion: "go1.24.4"}, true
	})

	s := String()
	want := "dev (unknown) built at unknown with go1.24.4"
	if s != want {
		t.Errorf("String() = %q, want %q", s, want)
	}
	if !strings.HasPrefix(s, Version) {
		t.Errorf("String() = %q should start with the version", s)
	}
}
