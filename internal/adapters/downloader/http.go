package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"tiktokgrab/internal/core/domain"
	"tiktokgrab/internal/logging"
)

// HTTPDownloader implements ports.ImageDownloader using standard HTTP.
// Each download gets a fixed small number of attempts with a fixed
// delay; both come from configuration, not contract.
type HTTPDownloader struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewHTTPDownloader creates a downloader. maxRetries counts attempts
// after the first; 0 means a single try.
func NewHTTPDownloader(userAgent string, maxRetries int, retryDelay time.Duration, logger *slog.Logger) *HTTPDownloader {
	if logger == nil {
		logger = logging.Null()
	}
	return &HTTPDownloader{
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
		userAgent:  userAgent,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Download fetches url into destPath and returns the sha256 of the
// written bytes. The file is written through a .part temp name so a
// failed attempt never leaves a half-written destination.
func (d *HTTPDownloader) Download(ctx context.Context, rawURL, destPath string, cookies []domain.Cookie) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			d.logger.Debug("retrying download", "url", rawURL, "attempt", attempt+1)
			select {
			case <-time.After(d.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		sum, err := d.fetch(ctx, rawURL, destPath, cookies)
		if err == nil {
			return sum, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		d.logger.Debug("download attempt failed", "url", rawURL, "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("failed to download %s: %w", rawURL, lastErr)
}

func (d *HTTPDownloader) fetch(ctx context.Context, rawURL, destPath string, cookies []domain.Cookie) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	tmpPath := destPath + ".part"
	file, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}

	hasher := sha256.New()
	_, err = io.Copy(io.MultiWriter(file, hasher), resp.Body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to finalize %s: %w", destPath, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// GuessExtension returns a file extension for url, preferring the
// Content-Type when given, then the URL path, then ".bin".
func GuessExtension(rawURL, contentType string) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
				return exts[0]
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if ext := filepath.Ext(u.Path); ext != "" {
			return ext
		}
	}
	return ".bin"
}
