package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrProfileNotFound indicates the named cookie profile file is missing
	ErrProfileNotFound = errors.New("cookie profile not found")

	// ErrNoTikTokCookies indicates a profile holds no cookies for a tiktok.com domain
	ErrNoTikTokCookies = errors.New("profile contains no tiktok.com cookies")

	// ErrExtractionFailed indicates cookie capture from the browser produced nothing usable
	ErrExtractionFailed = errors.New("cookie extraction failed")

	// ErrUnsupportedBrowser indicates the requested browser engine cannot be driven over CDP
	ErrUnsupportedBrowser = errors.New("unsupported browser engine")

	// ErrAuthExpired indicates verification found an expired session
	ErrAuthExpired = errors.New("session cookies are expired")

	// ErrAuthInvalid indicates verification was rejected by TikTok
	ErrAuthInvalid = errors.New("session cookies were rejected")

	// ErrPartialDownload indicates some but not all slideshow images succeeded
	ErrPartialDownload = errors.New("some images failed to download")

	// ErrFetchFailed indicates the underlying video download library failed
	ErrFetchFailed = errors.New("video download failed")
)

// ClassificationError reports a URL that could not be classified as
// TikTok video or slideshow content.
type ClassificationError struct {
	URL    string
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("cannot classify %q: %s", e.URL, e.Reason)
}
