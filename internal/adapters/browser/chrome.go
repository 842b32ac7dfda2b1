package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"tiktokgrab/internal/core/domain"
	"tiktokgrab/internal/logging"
	"tiktokgrab/internal/tiktok"
)

const (
	loginURL = "https://www.tiktok.com/login"
	homeURL  = "https://www.tiktok.com/"

	// How long the collection loops wait between scrolls before checking
	// whether the page stopped yielding new elements.
	scrollSettle = 500 * time.Millisecond
)

// Session drives a Chromium-family browser over CDP. It implements
// ports.CookieSource and ports.PageExtractor. The engine is an opaque
// collaborator: open a context, read the cookie jar, query the DOM.
type Session struct {
	Engine    string // chromium, chrome, brave, edge; empty picks up the default
	Headless  bool
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

func (s *Session) logger() *slog.Logger {
	if s.Logger == nil {
		return logging.Null()
	}
	return s.Logger
}

// allocator builds the exec allocator for this session. userDataDir may
// be empty for a throwaway browser profile.
func (s *Session) allocator(ctx context.Context, userDataDir string, headless bool) (context.Context, context.CancelFunc, error) {
	execPath, err := ResolveExecPath(s.Engine)
	if err != nil {
		return nil, nil, err
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", headless))
	if !headless {
		// The default allocator options force headless; drop that for
		// interactive logins.
		opts = append(opts, chromedp.Flag("hide-scrollbars", false))
	}
	if s.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.UserAgent))
	}
	if userDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(userDataDir))
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return allocCtx, cancel, nil
}

// LoginCapture opens an interactive session at the TikTok login page,
// blocks until confirm returns and then serializes the browser's
// tiktok.com cookies. The session is never headless regardless of
// configuration; a user has to type credentials into it.
func (s *Session) LoginCapture(ctx context.Context, confirm func() error) ([]domain.Cookie, error) {
	allocCtx, cancelAlloc, err := s.allocator(ctx, "", false)
	if err != nil {
		return nil, err
	}
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	s.logger().Debug("opening login page", "url", loginURL)
	if err := chromedp.Run(browserCtx, chromedp.Navigate(loginURL)); err != nil {
		return nil, fmt.Errorf("failed to open login page: %w", err)
	}

	if err := confirm(); err != nil {
		return nil, err
	}

	cookies, err := s.readCookies(browserCtx)
	if err != nil {
		return nil, err
	}
	tk := filterTikTok(cookies)
	if len(tk) == 0 {
		return nil, fmt.Errorf("no tiktok.com session after login: %w", domain.ErrExtractionFailed)
	}
	return tk, nil
}

// AutoCapture opens a context over an existing browser user-data
// directory and extracts its tiktok.com cookies without interaction.
func (s *Session) AutoCapture(ctx context.Context, userDataDir string) ([]domain.Cookie, error) {
	allocCtx, cancelAlloc, err := s.allocator(ctx, userDataDir, s.Headless)
	if err != nil {
		return nil, err
	}
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if s.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		browserCtx, cancelTimeout = context.WithTimeout(browserCtx, s.Timeout)
		defer cancelTimeout()
	}

	s.logger().Debug("extracting cookies from user data dir", "dir", userDataDir)
	if err := chromedp.Run(browserCtx, chromedp.Navigate(homeURL)); err != nil {
		return nil, fmt.Errorf("failed to open browser profile %s: %w", userDataDir, err)
	}

	cookies, err := s.readCookies(browserCtx)
	if err != nil {
		return nil, err
	}
	tk := filterTikTok(cookies)
	if len(tk) == 0 {
		return nil, fmt.Errorf("no tiktok.com session in %s: %w", userDataDir, domain.ErrExtractionFailed)
	}
	return tk, nil
}

// SlideshowImages loads a slideshow post and returns the ordered,
// deduplicated slide image URLs. The page is scrolled until the image
// set stops growing, matching how the carousel lazy-loads.
func (s *Session) SlideshowImages(ctx context.Context, pageURL string, cookies []domain.Cookie) ([]string, error) {
	const imageJS = `Array.from(document.querySelectorAll('img[class*="ImgPhotoSlide"], [class*="ImgPhotoSlide"] img')).map(e => e.src).filter(Boolean)`

	urls, err := s.collect(ctx, pageURL, cookies, imageJS)
	if err != nil {
		return nil, fmt.Errorf("slideshow extraction for %s: %w", pageURL, err)
	}
	return urls, nil
}

// ProfilePosts scrolls a user's profile page and returns the post URLs
// found on it, deduplicated in first-seen order.
func (s *Session) ProfilePosts(ctx context.Context, username string, cookies []domain.Cookie) ([]string, error) {
	const linkJS = `Array.from(document.querySelectorAll('a[href]')).map(e => e.href).filter(Boolean)`

	pageURL := "https://www.tiktok.com/@" + strings.TrimPrefix(username, "@")
	links, err := s.collect(ctx, pageURL, cookies, linkJS)
	if err != nil {
		return nil, fmt.Errorf("profile scrape for %s: %w", username, err)
	}

	var posts []string
	for _, link := range links {
		if tiktok.ExtractVideoID(link) != "" && tiktok.DetectKind(link) != domain.KindUnknown {
			posts = append(posts, link)
		}
	}
	return dedupe(posts), nil
}

// collect runs the shared navigate / inject cookies / scroll-until-stable
// loop and returns whatever extractJS yields, deduplicated.
func (s *Session) collect(ctx context.Context, pageURL string, cookies []domain.Cookie, extractJS string) ([]string, error) {
	allocCtx, cancelAlloc, err := s.allocator(ctx, "", s.Headless)
	if err != nil {
		return nil, err
	}
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if s.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		browserCtx, cancelTimeout = context.WithTimeout(browserCtx, s.Timeout)
		defer cancelTimeout()
	}

	actions := []chromedp.Action{}
	if len(cookies) > 0 {
		actions = append(actions, setCookiesAction(cookies))
	}
	actions = append(actions,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
	)
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return nil, err
	}

	var found []string
	if err := chromedp.Run(browserCtx, chromedp.Evaluate(extractJS, &found)); err != nil {
		return nil, err
	}

	for {
		previous := len(found)
		err := chromedp.Run(browserCtx,
			chromedp.Evaluate(`window.scrollBy(0, 10000)`, nil),
			chromedp.Sleep(scrollSettle),
			chromedp.Evaluate(extractJS, &found),
		)
		if err != nil {
			return nil, err
		}
		if len(found) == previous {
			break
		}
	}

	return dedupe(found), nil
}

func (s *Session) readCookies(browserCtx context.Context) ([]domain.Cookie, error) {
	var raw []*network.Cookie
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	cookies := make([]domain.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, domain.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  int64(c.Expires),
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return cookies, nil
}

func setCookiesAction(cookies []domain.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		params := make([]*network.CookieParam, 0, len(cookies))
		for _, c := range cookies {
			p := &network.CookieParam{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			}
			if exp := c.Expiry(); exp > 0 {
				t := cdp.TimeSinceEpoch(time.Unix(exp, 0))
				p.Expires = &t
			}
			params = append(params, p)
		}
		return storage.SetCookies(params).Do(ctx)
	})
}

func filterTikTok(cookies []domain.Cookie) []domain.Cookie {
	var out []domain.Cookie
	for _, c := range cookies {
		d := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
		if d == "tiktok.com" || strings.HasSuffix(d, ".tiktok.com") {
			out = append(out, c)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
