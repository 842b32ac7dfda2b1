package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tiktokgrab/internal/adapters/browser"
	"tiktokgrab/internal/adapters/cookiestore"
	"tiktokgrab/internal/adapters/downloader"
	"tiktokgrab/internal/adapters/ytdlp"
	"tiktokgrab/internal/config"
	"tiktokgrab/internal/core/domain"
	"tiktokgrab/internal/logging"
	"tiktokgrab/internal/service"
	"tiktokgrab/internal/tiktok"
)

const version = "0.3.0"

const usageText = `Usage: tiktokgrab <command> [arguments]

Commands:
  download <url>                        download a video or slideshow
      -cookies <profile>                use a stored cookie profile
      -output <dir>                     destination directory
      -concurrency <n>                  parallel image downloads
      -debug                            verbose logging
  profile <username>                    list post URLs on a user profile
      -cookies <profile>                use a stored cookie profile
  cookies login <profile>               capture cookies via browser login
      -browser <engine>                 chromium, chrome, brave or edge
      -user-data-dir <dir>              reuse an existing browser profile
  cookies auto <profile> <data-dir>     extract cookies from a browser profile
  cookies import <profile> <file>       import a JSON or cookies.txt file
  cookies export <profile> <file>       export a profile as cookies.txt
  cookies verify <profile>              check whether a profile still works
  cookies list                          list stored profiles
  version                               print the version
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not read .env: %v\n", err)
	}

	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	ctx, stop := withSignalCancel(context.Background())
	defer stop()

	switch args[0] {
	case "download":
		return cmdDownload(ctx, cfg, args[1:])
	case "profile":
		return cmdProfile(ctx, cfg, args[1:])
	case "cookies":
		return cmdCookies(ctx, cfg, args[1:])
	case "version", "-version", "--version":
		fmt.Printf("tiktokgrab %s\n", version)
		return 0
	case "help", "-h", "-help", "--help":
		fmt.Print(usageText)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}
}

// withSignalCancel cancels the context on the first SIGINT/SIGTERM so
// in-flight work can finish cleanly; a second signal exits immediately.
func withSignalCancel(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\ninterrupted, finishing up (press again to force quit)")
		cancel()
		<-sigChan
		os.Exit(130)
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func newOrchestrator(cfg *config.Config, engine string) *service.Orchestrator {
	logger := logging.Setup(cfg.Debug, os.Stderr)
	store := cookiestore.NewStore(cfg.ProfileDir)
	session := &browser.Session{
		Engine:    engine,
		Headless:  cfg.Headless,
		Timeout:   cfg.BrowserTimeout,
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	}
	return service.NewOrchestrator(
		tiktok.NewClassifier(nil, cfg.UserAgent),
		store,
		session,
		session,
		ytdlp.NewVideoDownloader(logger),
		downloader.NewHTTPDownloader(cfg.UserAgent, cfg.MaxRetries, cfg.RetryDelay, logger),
		cfg.DownloadDir,
		cfg.Concurrency,
		logger,
	)
}

func cmdDownload(ctx context.Context, cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	profile := fs.String("cookies", "", "cookie profile name")
	output := fs.String("output", cfg.DownloadDir, "destination directory")
	concurrency := fs.Int("concurrency", cfg.Concurrency, "parallel image downloads")
	debug := fs.Bool("debug", cfg.Debug, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tiktokgrab download [flags] <url>")
		return 2
	}
	if *concurrency < 1 {
		fmt.Fprintf(os.Stderr, "concurrency must be at least 1, got %d\n", *concurrency)
		return 2
	}
	cfg.DownloadDir = *output
	cfg.Concurrency = *concurrency
	cfg.Debug = *debug

	o := newOrchestrator(cfg, "")
	result, err := o.Download(ctx, fs.Arg(0), *profile)
	if err != nil && result == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	printResult(result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printResult(r *domain.JobResult) {
	fmt.Printf("state:     %s\n", r.State)
	if r.VideoPath != "" {
		fmt.Printf("video:     %s\n", r.VideoPath)
	}
	for _, img := range r.Images {
		if img.Err != nil {
			fmt.Printf("failed:    %s (%v)\n", img.URL, img.Err)
			continue
		}
		fmt.Printf("image:     %s sha256=%s\n", img.Path, img.Checksum)
	}
	if len(r.Images) > 0 {
		fmt.Printf("images:    %d/%d\n", r.Succeeded(), len(r.Images))
	}
}

func cmdProfile(ctx context.Context, cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	profile := fs.String("cookies", "", "cookie profile name")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tiktokgrab profile [flags] <username>")
		return 2
	}

	o := newOrchestrator(cfg, "")
	posts, err := o.ProfilePosts(ctx, fs.Arg(0), *profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	for _, p := range posts {
		fmt.Println(p)
	}
	fmt.Fprintf(os.Stderr, "%d posts\n", len(posts))
	return 0
}

func cmdCookies(ctx context.Context, cfg *config.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: tiktokgrab cookies <login|auto|import|export|verify|list> ...")
		return 2
	}
	store := cookiestore.NewStore(cfg.ProfileDir)

	switch args[0] {
	case "login":
		return cmdCookiesLogin(ctx, cfg, args[1:])
	case "auto":
		fs := flag.NewFlagSet("cookies auto", flag.ContinueOnError)
		engine := fs.String("browser", "", "browser engine (chromium, chrome, brave, edge)")
		headless := fs.Bool("headless", cfg.Headless, "run the browser headless")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 2 {
			fmt.Fprintln(os.Stderr, "usage: tiktokgrab cookies auto [flags] <profile> <user-data-dir>")
			return 2
		}
		cfg.Headless = *headless
		return cmdCookiesAuto(ctx, cfg, *engine, fs.Arg(0), fs.Arg(1))
	case "import":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: tiktokgrab cookies import <profile> <file>")
			return 2
		}
		if err := store.ImportFile(args[1], args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Printf("imported profile %q from %s\n", args[1], args[2])
		return 0
	case "export":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: tiktokgrab cookies export <profile> <file>")
			return 2
		}
		if err := store.ExportNetscape(args[1], args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Printf("exported profile %q to %s\n", args[1], args[2])
		return 0
	case "verify":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: tiktokgrab cookies verify <profile>")
			return 2
		}
		o := newOrchestrator(cfg, "")
		status, err := o.Verify(ctx, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Printf("profile %q: %s\n", args[1], status)
		switch status {
		case domain.ProfileExpired:
			fmt.Fprintf(os.Stderr, "%v; run 'tiktokgrab cookies login %s' to refresh\n", domain.ErrAuthExpired, args[1])
			return 1
		case domain.ProfileInvalid:
			fmt.Fprintf(os.Stderr, "%v; run 'tiktokgrab cookies login %s' to refresh\n", domain.ErrAuthInvalid, args[1])
			return 1
		}
		return 0
	case "list":
		names, err := store.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown cookies subcommand %q\n", args[0])
		return 2
	}
}

func cmdCookiesLogin(ctx context.Context, cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("cookies login", flag.ContinueOnError)
	engine := fs.String("browser", "", "browser engine (chromium, chrome, brave, edge)")
	userDataDir := fs.String("user-data-dir", "", "existing browser profile directory")
	headless := fs.Bool("headless", cfg.Headless, "run the browser headless where possible")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tiktokgrab cookies login [flags] <profile>")
		return 2
	}
	name := fs.Arg(0)
	cfg.Headless = *headless

	// A supplied user-data-dir means the login already happened in that
	// browser profile; skip the interactive flow.
	if *userDataDir != "" {
		return cmdCookiesAuto(ctx, cfg, *engine, name, *userDataDir)
	}

	o := newOrchestrator(cfg, *engine)

	confirm := func() error {
		fmt.Println("A browser window is open. Log in to TikTok, then press Enter here.")
		reader := bufio.NewReader(os.Stdin)
		_, err := reader.ReadString('\n')
		return err
	}

	n, err := o.AcquireLogin(ctx, name, confirm)
	if err != nil {
		reportCookieError(err)
		return 1
	}
	fmt.Printf("saved %d cookies to profile %q\n", n, name)
	return 0
}

func cmdCookiesAuto(ctx context.Context, cfg *config.Config, engine, name, userDataDir string) int {
	if userDataDir == "auto" {
		detected := browser.ChromeUserDataDir()
		if detected == "" {
			fmt.Fprintln(os.Stderr, "could not locate a Chrome user data directory")
			return 1
		}
		userDataDir = detected
	}

	o := newOrchestrator(cfg, engine)
	n, err := o.AcquireAuto(ctx, name, userDataDir)
	if err != nil {
		reportCookieError(err)
		return 1
	}
	fmt.Printf("saved %d cookies to profile %q\n", n, name)
	return 0
}

func reportCookieError(err error) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedBrowser):
		fmt.Fprintf(os.Stderr, "error: %v (only Chromium-family browsers are supported)\n", err)
	case errors.Is(err, domain.ErrExtractionFailed):
		fmt.Fprintf(os.Stderr, "error: %v\nMake sure you are logged in to tiktok.com in that browser.\n", err)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}
