package ytdlp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lrstanley/go-ytdlp"

	"tiktokgrab/internal/adapters/cookiestore"
	"tiktokgrab/internal/core/domain"
	"tiktokgrab/internal/logging"
)

// VideoDownloader implements ports.VideoFetcher on top of the yt-dlp
// wrapper library. All format selection, watermark handling and retry
// policy belong to the library; a failure here is simply a failed job.
type VideoDownloader struct {
	logger *slog.Logger
}

// NewVideoDownloader creates a downloader.
func NewVideoDownloader(logger *slog.Logger) *VideoDownloader {
	if logger == nil {
		logger = logging.Null()
	}
	return &VideoDownloader{logger: logger}
}

// FetchVideo downloads the video at url into destDir. Cookies are handed
// to the library as a temporary Netscape file, the only cookie format
// yt-dlp consumes.
func (d *VideoDownloader) FetchVideo(ctx context.Context, url, destDir string, cookies []domain.Cookie) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	dl := ytdlp.New().
		NoPlaylist().
		RestrictFilenames().
		Output(filepath.Join(destDir, "%(id)s.%(ext)s"))

	if len(cookies) > 0 {
		cookieFile, cleanup, err := writeCookieFile(cookies)
		if err != nil {
			return "", err
		}
		defer cleanup()
		dl = dl.Cookies(cookieFile)
	}

	d.logger.Debug("delegating video download", "url", url, "dest", destDir)
	result, err := dl.Run(ctx, url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	return outputPath(result), nil
}

// outputPath pulls the downloaded filename out of the run result. An
// empty path is not an error; the download itself already succeeded.
func outputPath(result *ytdlp.Result) string {
	if result == nil {
		return ""
	}
	info, err := result.GetExtractedInfo()
	if err != nil || len(info) == 0 {
		return ""
	}
	if info[0].Filename != nil {
		return *info[0].Filename
	}
	return ""
}

func writeCookieFile(cookies []domain.Cookie) (string, func(), error) {
	tmp, err := os.CreateTemp("", "tiktokgrab-cookies-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create cookie file: %w", err)
	}
	name := tmp.Name()
	cleanup := func() { os.Remove(name) }

	_, err = tmp.WriteString(cookiestore.Netscape(cookies))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write cookie file: %w", err)
	}
	return name, cleanup, nil
}
