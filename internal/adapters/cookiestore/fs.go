package cookiestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tiktokgrab/internal/core/domain"
)

const netscapeHeader = "# Netscape HTTP Cookie File"

// Store implements ports.CookieStore on the local filesystem. Each
// profile is one JSON file, <name>.json, under Dir. Files are replaced
// wholesale on save, never mutated in place.
type Store struct {
	Dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the file a profile is stored at.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name+".json")
}

// Load reads and validates a profile. A file that deserializes into an
// empty set, or one without a single tiktok.com cookie, is invalid.
func (s *Store) Load(name string) ([]domain.Cookie, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("profile %q: %w", name, domain.ErrProfileNotFound)
		}
		return nil, fmt.Errorf("failed to read profile %q: %w", name, err)
	}

	var cookies []domain.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to parse profile %q: %w", name, err)
	}

	if !hasTikTokCookie(cookies) {
		return nil, fmt.Errorf("profile %q: %w", name, domain.ErrNoTikTokCookies)
	}
	return cookies, nil
}

// Save writes the cookie set for a profile, creating Dir if needed and
// replacing any previous file.
func (s *Store) Save(name string, cookies []domain.Cookie) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create profile directory %s: %w", s.Dir, err)
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile %q: %w", name, err)
	}
	if err := os.WriteFile(s.Path(name), data, 0600); err != nil {
		return fmt.Errorf("failed to save profile %q: %w", name, err)
	}
	return nil
}

// List returns all stored profile names, sorted. A missing profile
// directory is an empty listing, not an error.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile directory %s: %w", s.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// ExportNetscape writes a profile in Netscape cookies.txt format, the
// shape yt-dlp and curl consume.
func (s *Store) ExportNetscape(name, dest string) error {
	cookies, err := s.Load(name)
	if err != nil {
		return err
	}

	if err := os.WriteFile(dest, []byte(Netscape(cookies)), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

// ImportFile loads cookies from an external JSON or Netscape file and
// saves them as a profile. The format is decided by the first line.
func (s *Store) ImportFile(name, src string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	var cookies []domain.Cookie
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &cookies); err != nil {
			return fmt.Errorf("failed to parse %s as cookie JSON: %w", src, err)
		}
	} else {
		cookies = ParseNetscape(trimmed)
	}

	if !hasTikTokCookie(cookies) {
		return fmt.Errorf("%s: %w", src, domain.ErrNoTikTokCookies)
	}
	return s.Save(name, cookies)
}

// ParseNetscape reads Netscape cookies.txt content. Malformed lines are
// skipped; the #HttpOnly_ prefix marks http-only cookies.
func ParseNetscape(text string) []domain.Cookie {
	var cookies []domain.Cookie
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		httpOnly := false
		if strings.HasPrefix(line, "#HttpOnly_") {
			httpOnly = true
			line = strings.TrimPrefix(line, "#HttpOnly_")
		} else if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			continue
		}

		var expires int64
		fmt.Sscanf(fields[4], "%d", &expires)
		cookies = append(cookies, domain.Cookie{
			Name:     fields[5],
			Value:    fields[6],
			Domain:   fields[0],
			Path:     fields[2],
			Expires:  expires,
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			HTTPOnly: httpOnly,
		})
	}
	return cookies
}

// Netscape renders a cookie set in Netscape cookies.txt format.
func Netscape(cookies []domain.Cookie) string {
	var b strings.Builder
	b.WriteString(netscapeHeader + "\n\n")
	for _, c := range cookies {
		b.WriteString(formatNetscapeLine(c))
	}
	return b.String()
}

func formatNetscapeLine(c domain.Cookie) string {
	includeSub := "FALSE"
	if strings.HasPrefix(c.Domain, ".") {
		includeSub = "TRUE"
	}
	secure := "FALSE"
	if c.Secure {
		secure = "TRUE"
	}
	path := c.Path
	if path == "" {
		path = "/"
	}
	prefix := ""
	if c.HTTPOnly {
		prefix = "#HttpOnly_"
	}
	return fmt.Sprintf("%s%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
		prefix, c.Domain, includeSub, path, secure, c.Expiry(), c.Name, c.Value)
}

func hasTikTokCookie(cookies []domain.Cookie) bool {
	for _, c := range cookies {
		d := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
		if d == "tiktok.com" || strings.HasSuffix(d, ".tiktok.com") {
			return true
		}
	}
	return false
}
