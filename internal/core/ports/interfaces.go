package ports

import (
	"context"

	"tiktokgrab/internal/core/domain"
)

// Classifier decides which fetch strategy applies to a URL.
type Classifier interface {
	// Classify validates a TikTok URL, resolves short links and returns
	// the canonical URL, video id and content kind. It never downloads
	// media content. A *domain.ClassificationError is returned for URLs
	// that do not reference TikTok content.
	Classify(ctx context.Context, rawURL string) (*domain.URLInfo, error)
}

// CookieStore persists named cookie profiles on disk, one file per profile.
type CookieStore interface {
	// Load reads a profile and validates that it holds at least one
	// tiktok.com cookie. Returns domain.ErrProfileNotFound when the
	// profile file does not exist.
	Load(name string) ([]domain.Cookie, error)

	// Save writes the cookie set for a profile, replacing any previous file.
	Save(name string, cookies []domain.Cookie) error

	// List returns the names of all stored profiles, sorted.
	List() ([]string, error)

	// ExportNetscape writes a profile's cookies in Netscape cookies.txt
	// format to dest, the format download tools consume.
	ExportNetscape(name, dest string) error

	// Path returns the on-disk path a profile is (or would be) stored at.
	Path(name string) string
}

// CookieSource captures cookies from a live browser session.
type CookieSource interface {
	// LoginCapture opens an interactive session at the TikTok login page,
	// blocks until confirm returns, then reads the session's cookies.
	LoginCapture(ctx context.Context, confirm func() error) ([]domain.Cookie, error)

	// AutoCapture opens a context over an existing browser user-data
	// directory and reads its cookies without interaction.
	AutoCapture(ctx context.Context, userDataDir string) ([]domain.Cookie, error)
}

// PageExtractor pulls structured data out of rendered TikTok pages.
type PageExtractor interface {
	// SlideshowImages returns the ordered, deduplicated image URLs of a
	// slideshow post.
	SlideshowImages(ctx context.Context, pageURL string, cookies []domain.Cookie) ([]string, error)

	// ProfilePosts returns the resolved post URLs found on a user's
	// profile page.
	ProfilePosts(ctx context.Context, username string, cookies []domain.Cookie) ([]string, error)
}

// VideoFetcher downloads a single video post.
type VideoFetcher interface {
	// FetchVideo downloads the video at url into destDir using the
	// given cookie set, returning the output file path. Errors from the
	// underlying download library are wrapped in domain.ErrFetchFailed;
	// no retry is attempted here beyond the library's own policy.
	FetchVideo(ctx context.Context, url, destDir string, cookies []domain.Cookie) (string, error)
}

// ImageDownloader fetches one file over plain HTTP.
type ImageDownloader interface {
	// Download writes the body of url to destPath and returns the
	// sha256 checksum of the written bytes. Retries are internal and
	// bounded; a cancelled context aborts immediately.
	Download(ctx context.Context, url, destPath string, cookies []domain.Cookie) (string, error)
}
