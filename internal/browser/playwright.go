package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Renderer returns the document source of a page after client-side
// scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string, settle time.Duration) (string, error)
	Close() error
}

// Launcher starts a browser session. The caller owns the returned
// Renderer and must Close it.
type Launcher func(ctx context.Context) (Renderer, error)

type Options struct {
	Headless   bool
	Install    bool // download the driver and Chromium on first use
	UserAgent  string
	NavTimeout time.Duration
}

// PlaywrightManager is one headless Chromium session.
type PlaywrightManager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	opts    Options
}

// NewLauncher returns a Launcher backed by playwright.
func NewLauncher(opts Options) Launcher {
	return func(ctx context.Context) (Renderer, error) {
		return NewPlaywright(ctx, opts)
	}
}

func NewPlaywright(ctx context.Context, opts Options) (*PlaywrightManager, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}
	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("playwright install: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright run: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	var ctxOpts playwright.BrowserNewPageOptions
	if opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	page, err := browser.NewPage(ctxOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new page: %w", err)
	}

	log.Printf("[browser] session started headless=%v", opts.Headless)
	return &PlaywrightManager{pw: pw, browser: browser, page: page, opts: opts}, nil
}

// Render navigates, waits settle for client-side rendering, then returns
// the page source.
func (pm *PlaywrightManager) Render(ctx context.Context, url string, settle time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := pm.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(pm.opts.NavTimeout.Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}

	if settle > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(settle):
		}
	}

	html, err := pm.page.Content()
	if err != nil {
		return "", fmt.Errorf("page content %s: %w", url, err)
	}
	return html, nil
}

// Close ends the session. Safe to call more than once.
func (pm *PlaywrightManager) Close() error {
	if pm == nil || pm.pw == nil {
		return nil
	}
	var errs []error
	if pm.browser != nil {
		if err := pm.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if err := pm.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	pm.pw, pm.browser, pm.page = nil, nil, nil
	log.Printf("[browser] session closed")
	return errors.Join(errs...)
}
