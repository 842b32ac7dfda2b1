package tiktok

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"tiktokgrab/internal/core/domain"
)

var videoIDPattern = regexp.MustCompile(`(\d{19})`)

// Classifier implements ports.Classifier for TikTok URLs. Short links
// (vm.tiktok.com, vt.tiktok.com) are resolved by following redirects;
// no media content is fetched during classification.
type Classifier struct {
	client    *http.Client
	userAgent string
}

// NewClassifier creates a Classifier. A nil client gets a default with
// a short timeout.
func NewClassifier(client *http.Client, userAgent string) *Classifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Classifier{client: client, userAgent: userAgent}
}

// Classify validates rawURL, resolves it to its canonical form and
// decides between video and slideshow content.
func (c *Classifier) Classify(ctx context.Context, rawURL string) (*domain.URLInfo, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &domain.ClassificationError{URL: rawURL, Reason: "not an http(s) URL"}
	}
	if !IsTikTokHost(parsed.Hostname()) {
		return nil, &domain.ClassificationError{URL: rawURL, Reason: "host is not a tiktok.com domain"}
	}

	resolved := rawURL
	if needsResolution(parsed) {
		resolved, err = c.resolve(ctx, rawURL)
		if err != nil {
			return nil, &domain.ClassificationError{URL: rawURL, Reason: fmt.Sprintf("resolving short link: %v", err)}
		}
		if final, err := url.Parse(resolved); err != nil || !IsTikTokHost(final.Hostname()) {
			return nil, &domain.ClassificationError{URL: rawURL, Reason: "short link resolved outside tiktok.com"}
		}
	}

	id := ExtractVideoID(resolved)
	if id == "" {
		return nil, &domain.ClassificationError{URL: rawURL, Reason: "no video id in URL path"}
	}

	return &domain.URLInfo{
		RawURL:      rawURL,
		ResolvedURL: resolved,
		VideoID:     id,
		Kind:        DetectKind(resolved),
	}, nil
}

// IsTikTokHost reports whether host is tiktok.com or one of its subdomains.
func IsTikTokHost(host string) bool {
	host = strings.ToLower(host)
	return host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com")
}

// ExtractVideoID returns the 19-digit post identifier embedded in u, or
// the empty string when none is present.
func ExtractVideoID(u string) string {
	return videoIDPattern.FindString(u)
}

// DetectKind decides slideshow vs. video from the canonical URL path.
// Slideshow posts live under /photo/, everything else is a video.
func DetectKind(u string) domain.ContentKind {
	parsed, err := url.Parse(u)
	if err != nil {
		return domain.KindUnknown
	}
	if strings.Contains(parsed.Path, "/photo/") {
		return domain.KindSlideshow
	}
	return domain.KindVideo
}

// needsResolution reports whether the URL is a share link that redirects
// to the canonical post URL. Canonical URLs already carry the video id.
func needsResolution(u *url.URL) bool {
	return ExtractVideoID(u.String()) == ""
}

func (c *Classifier) resolve(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Request.URL.String(), nil
}
