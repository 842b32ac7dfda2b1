package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"tiktokgrab/internal/core/domain"
)

func TestDownloadWritesFileAndChecksum(t *testing.T) {
	body := []byte("image-bytes")
	var gotCookie atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sessionid"); err == nil && c.Value == "abc" {
			gotCookie.Store(true)
		}
		w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "img_1.jpeg")
	d := NewHTTPDownloader("test-agent", 0, 0, nil)

	cookies := []domain.Cookie{{Name: "sessionid", Value: "abc", Domain: ".tiktok.com"}}
	sum, err := d.Download(context.Background(), srv.URL, dest, cookies)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	want := sha256.Sum256(body)
	if sum != hex.EncodeToString(want[:]) {
		t.Errorf("Checksum mismatch: got %s", sum)
	}
	written, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Output file missing: %v", err)
	}
	if string(written) != string(body) {
		t.Errorf("File content mismatch: %q", written)
	}
	if !gotCookie.Load() {
		t.Errorf("Expected cookie to be sent with the request")
	}
}

func TestDownloadRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "img")
	d := NewHTTPDownloader("", 3, 0, nil)

	if _, err := d.Download(context.Background(), srv.URL, dest, nil); err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestDownloadExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "img")
	d := NewHTTPDownloader("", 2, 0, nil)

	if _, err := d.Download(context.Background(), srv.URL, dest, nil); err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", calls.Load())
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("Failed download must not leave a destination file")
	}
}

func TestDownloadHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewHTTPDownloader("", 5, 0, nil)
	_, err := d.Download(ctx, srv.URL, filepath.Join(t.TempDir(), "img"), nil)
	if err == nil {
		t.Fatal("Expected error from cancelled context")
	}
	if ctx.Err() == nil {
		t.Fatal("Context should be cancelled")
	}
}

func TestGuessExtension(t *testing.T) {
	if ext := GuessExtension("https://cdn.example.com/a/b.webp?x=1", ""); ext != ".webp" {
		t.Errorf("Expected .webp from URL path, got %q", ext)
	}
	if ext := GuessExtension("https://cdn.example.com/a/b", ""); ext != ".bin" {
		t.Errorf("Expected .bin fallback, got %q", ext)
	}
	ext := GuessExtension("https://cdn.example.com/a", "image/png")
	if ext != ".png" {
		t.Errorf("Expected .png from content type, got %q", ext)
	}
}
