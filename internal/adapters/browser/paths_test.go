package browser

import (
	"errors"
	"path/filepath"
	"testing"

	"tiktokgrab/internal/core/domain"
)

func TestResolveExecPathRejectsNonCDPEngines(t *testing.T) {
	for _, engine := range []string{"firefox", "webkit", "safari"} {
		_, err := ResolveExecPath(engine)
		if !errors.Is(err, domain.ErrUnsupportedBrowser) {
			t.Errorf("%s: expected ErrUnsupportedBrowser, got %v", engine, err)
		}
	}
}

func TestResolveExecPathEmptyEngine(t *testing.T) {
	path, err := ResolveExecPath("")
	if err != nil {
		t.Fatalf("Empty engine must not fail: %v", err)
	}
	if path != "" {
		t.Errorf("Empty engine must yield empty path, got %q", path)
	}
}

func TestUserDataDirWindows(t *testing.T) {
	got := userDataDirFor("windows", `C:\Users\test`, func(string) bool { return false })
	want := filepath.Join(`C:\Users\test`, "AppData", "Local", "Google", "Chrome", "User Data")
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestUserDataDirDarwin(t *testing.T) {
	got := userDataDirFor("darwin", "/Users/test", func(string) bool { return false })
	want := filepath.Join("/Users/test", "Library", "Application Support", "Google", "Chrome")
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestUserDataDirLinux(t *testing.T) {
	chromium := filepath.Join("/home/test", ".config", "chromium")
	got := userDataDirFor("linux", "/home/test", func(p string) bool { return p == chromium })
	if got != chromium {
		t.Errorf("Expected existing chromium dir, got %q", got)
	}

	if got := userDataDirFor("linux", "/home/test", func(string) bool { return false }); got != "" {
		t.Errorf("Expected empty result when nothing exists, got %q", got)
	}
}

func TestFilterTikTok(t *testing.T) {
	in := []domain.Cookie{
		{Name: "sessionid", Domain: ".tiktok.com"},
		{Name: "other", Domain: "example.com"},
		{Name: "msToken", Domain: "www.tiktok.com"},
	}
	out := filterTikTok(in)
	if len(out) != 2 {
		t.Fatalf("Expected 2 tiktok cookies, got %d", len(out))
	}
	if out[0].Name != "sessionid" || out[1].Name != "msToken" {
		t.Errorf("Unexpected filter result: %+v", out)
	}
}

func TestDedupePreservesOrder(t *testing.T) {
	out := dedupe([]string{"a", "b", "a", "c", "b"})
	if len(out) != 3 || out[0] != "a" || out[1] != "b" || out[2] != "c" {
		t.Errorf("Unexpected dedupe result: %v", out)
	}
}
