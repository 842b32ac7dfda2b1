package browser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"tiktokgrab/internal/core/domain"
)

// engineCandidates maps a supported engine name to the executables it
// may be installed as. Only Chromium-family engines can be driven over
// CDP; firefox and webkit are rejected up front.
var engineCandidates = map[string][]string{
	"chromium": {"chromium", "chromium-browser"},
	"chrome":   {"google-chrome", "google-chrome-stable", "chrome"},
	"brave":    {"brave-browser", "brave"},
	"edge":     {"microsoft-edge", "msedge"},
}

// ResolveExecPath maps an engine name to a browser executable. An empty
// engine returns an empty path, letting the CDP driver use its default
// discovery.
func ResolveExecPath(engine string) (string, error) {
	if engine == "" {
		return "", nil
	}
	candidates, ok := engineCandidates[engine]
	if !ok {
		return "", fmt.Errorf("%q: %w (supported: chromium, chrome, brave, edge)", engine, domain.ErrUnsupportedBrowser)
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s executable found in PATH", engine)
}

// ChromeUserDataDir returns the default Chrome user-data directory for
// this machine, or empty when none exists.
func ChromeUserDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return userDataDirFor(runtime.GOOS, home, func(p string) bool {
		info, err := os.Stat(p)
		return err == nil && info.IsDir()
	})
}

// userDataDirFor holds the per-OS lookup; split out so tests can pin
// the OS and the existence check.
func userDataDirFor(goos, home string, exists func(string) bool) string {
	switch goos {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome")
	default:
		for _, dir := range []string{
			filepath.Join(home, ".config", "google-chrome"),
			filepath.Join(home, ".config", "chromium"),
		} {
			if exists(dir) {
				return dir
			}
		}
		return ""
	}
}
