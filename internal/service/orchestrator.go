package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tiktokgrab/internal/adapters/downloader"
	"tiktokgrab/internal/core/domain"
	"tiktokgrab/internal/core/ports"
	"tiktokgrab/internal/logging"
)

// verifyURL is the lightweight authenticated endpoint used by Verify.
// An anonymous or rejected session gets redirected to the login page.
const verifyURL = "https://www.tiktok.com/foryou"

// sessionCookies are the cookies that carry the TikTok login session.
// Their expiry decides Expired before any network call is made.
var sessionCookies = map[string]bool{
	"sessionid":    true,
	"sessionid_ss": true,
	"sid_tt":       true,
}

// Orchestrator coordinates the download and cookie workflows.
type Orchestrator struct {
	classifier ports.Classifier
	store      ports.CookieStore
	source     ports.CookieSource
	pages      ports.PageExtractor
	video      ports.VideoFetcher
	images     ports.ImageDownloader
	logger     *slog.Logger

	// DownloadDir and Concurrency come from configuration; Concurrency
	// bounds parallel slideshow image transfers.
	DownloadDir string
	Concurrency int

	// verifyClient and verifyTarget are swappable for tests.
	verifyClient *http.Client
	verifyTarget string

	now func() time.Time
}

// NewOrchestrator wires the components together.
func NewOrchestrator(
	classifier ports.Classifier,
	store ports.CookieStore,
	source ports.CookieSource,
	pages ports.PageExtractor,
	video ports.VideoFetcher,
	images ports.ImageDownloader,
	downloadDir string,
	concurrency int,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logging.Null()
	}
	return &Orchestrator{
		classifier:   classifier,
		store:        store,
		source:       source,
		pages:        pages,
		video:        video,
		images:       images,
		DownloadDir:  downloadDir,
		Concurrency:  concurrency,
		logger:       logger,
		verifyClient: &http.Client{Timeout: 15 * time.Second},
		verifyTarget: verifyURL,
		now:          time.Now,
	}
}

// Download classifies url and runs the matching fetch strategy. The
// returned result is non-nil whenever a job was started, including
// partial and failed outcomes.
func (o *Orchestrator) Download(ctx context.Context, rawURL, profile string) (*domain.JobResult, error) {
	var cookies []domain.Cookie
	if profile != "" {
		var err error
		cookies, err = o.store.Load(profile)
		if err != nil {
			return nil, err
		}
		o.logger.Debug("loaded cookie profile", "profile", profile, "cookies", len(cookies))
	}

	info, err := o.classifier.Classify(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	job := domain.Job{
		ID:          uuid.New().String(),
		URL:         info.ResolvedURL,
		Kind:        info.Kind,
		DestDir:     o.DownloadDir,
		Concurrency: o.Concurrency,
		CreatedAt:   o.now().UTC(),
	}
	o.logger.Info("starting job", "job", job.ID, "kind", job.Kind, "url", job.URL)

	result := &domain.JobResult{Job: job, State: domain.JobFailed}
	switch info.Kind {
	case domain.KindSlideshow:
		err = o.runSlideshow(ctx, info, cookies, result)
	default:
		err = o.runVideo(ctx, info, cookies, result)
	}
	result.CompletedAt = o.now().UTC()

	if err != nil {
		result.ErrorMsg = err.Error()
		o.logger.Info("job finished", "job", job.ID, "state", result.State, "error", err)
		return result, err
	}
	o.logger.Info("job finished", "job", job.ID, "state", result.State)
	return result, nil
}

func (o *Orchestrator) runVideo(ctx context.Context, info *domain.URLInfo, cookies []domain.Cookie, result *domain.JobResult) error {
	path, err := o.video.FetchVideo(ctx, info.ResolvedURL, result.Job.DestDir, cookies)
	if err != nil {
		return err
	}
	result.VideoPath = path
	result.State = domain.JobSuccess
	return nil
}

// runSlideshow downloads every slide with at most Concurrency transfers
// in flight. Results are written into a position-indexed slice; there is
// no shared mutable state beyond the semaphore channel.
func (o *Orchestrator) runSlideshow(ctx context.Context, info *domain.URLInfo, cookies []domain.Cookie, result *domain.JobResult) error {
	urls, err := o.pages.SlideshowImages(ctx, info.ResolvedURL, cookies)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no slideshow images found at %s: %w", info.ResolvedURL, domain.ErrExtractionFailed)
	}

	if err := os.MkdirAll(result.Job.DestDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", result.Job.DestDir, err)
	}

	o.logger.Info("downloading slideshow", "images", len(urls), "concurrency", o.Concurrency)

	images := make([]domain.ImageResult, len(urls))
	sem := make(chan struct{}, max(o.Concurrency, 1))
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, imgURL string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				images[idx] = domain.ImageResult{URL: imgURL, Err: ctx.Err()}
				return
			}

			// Output files are named by slide index so on-disk order is
			// deterministic regardless of completion order.
			name := fmt.Sprintf("%s_%d%s", info.VideoID, idx+1, downloader.GuessExtension(imgURL, ""))
			dest := filepath.Join(result.Job.DestDir, name)

			sum, err := o.images.Download(ctx, imgURL, dest, cookies)
			if err != nil {
				images[idx] = domain.ImageResult{URL: imgURL, Err: err}
				return
			}
			images[idx] = domain.ImageResult{URL: imgURL, Path: dest, Checksum: sum}
		}(i, u)
	}
	wg.Wait()

	result.Images = images
	switch ok := result.Succeeded(); {
	case ok == len(images):
		result.State = domain.JobSuccess
		return nil
	case ok > 0:
		result.State = domain.JobPartial
		return fmt.Errorf("%d of %d images: %w", len(images)-ok, len(images), domain.ErrPartialDownload)
	default:
		result.State = domain.JobFailed
		return fmt.Errorf("all %d images failed: %w", len(images), domain.ErrPartialDownload)
	}
}

// Verify loads a profile and reports whether its session still
// authenticates. Expiry is decided locally from the session cookies;
// only unexpired profiles cost a network round trip. The profile file
// is never mutated.
func (o *Orchestrator) Verify(ctx context.Context, profile string) (domain.ProfileStatus, error) {
	cookies, err := o.store.Load(profile)
	if err != nil {
		if errors.Is(err, domain.ErrNoTikTokCookies) {
			return domain.ProfileInvalid, nil
		}
		return "", err
	}

	hasSession := false
	for _, c := range cookies {
		if !sessionCookies[c.Name] {
			continue
		}
		hasSession = true
		if c.Expired(o.now()) {
			o.logger.Debug("session cookie expired", "cookie", c.Name, "expires", c.Expiry())
			return domain.ProfileExpired, nil
		}
	}
	if !hasSession {
		return domain.ProfileInvalid, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.verifyTarget, nil)
	if err != nil {
		return "", err
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := o.verifyClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 || strings.Contains(resp.Request.URL.Path, "/login") {
		return domain.ProfileInvalid, nil
	}
	return domain.ProfileValid, nil
}

// AcquireLogin captures cookies through an interactive browser login
// and stores them under profile. Re-acquisition overwrites the file.
func (o *Orchestrator) AcquireLogin(ctx context.Context, profile string, confirm func() error) (int, error) {
	cookies, err := o.source.LoginCapture(ctx, confirm)
	if err != nil {
		return 0, err
	}
	if err := o.store.Save(profile, cookies); err != nil {
		return 0, err
	}
	o.logger.Info("saved cookie profile", "profile", profile, "cookies", len(cookies))
	return len(cookies), nil
}

// AcquireAuto extracts cookies from an existing browser user-data
// directory and stores them under profile.
func (o *Orchestrator) AcquireAuto(ctx context.Context, profile, userDataDir string) (int, error) {
	cookies, err := o.source.AutoCapture(ctx, userDataDir)
	if err != nil {
		return 0, err
	}
	if err := o.store.Save(profile, cookies); err != nil {
		return 0, err
	}
	o.logger.Info("saved cookie profile", "profile", profile, "cookies", len(cookies))
	return len(cookies), nil
}

// ProfilePosts returns the post URLs found on a user's profile page,
// optionally authenticated with a stored cookie profile.
func (o *Orchestrator) ProfilePosts(ctx context.Context, username, profile string) ([]string, error) {
	var cookies []domain.Cookie
	if profile != "" {
		var err error
		cookies, err = o.store.Load(profile)
		if err != nil {
			return nil, err
		}
	}
	return o.pages.ProfilePosts(ctx, username, cookies)
}
