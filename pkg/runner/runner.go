package runner

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/proctor/pkg/browser"
	"github.com/entrhq/proctor/pkg/config"
	"github.com/entrhq/proctor/pkg/logging"
	"github.com/entrhq/proctor/pkg/oracle"
	"github.com/entrhq/proctor/pkg/types"
)

// navigationSettle is the pause after the initial navigation before the
// first screenshot.
var navigationSettle = 2 * time.Second

// BrowserSession is the runner's view of a launched browser.
type BrowserSession interface {
	browser.Tabs
	Page() browser.Page
	Close() error
}

// LaunchFunc starts a browser session.
type LaunchFunc func(browser.LaunchOptions) (BrowserSession, error)

// LaunchPlaywright adapts the real browser launcher to LaunchFunc.
func LaunchPlaywright(opts browser.LaunchOptions) (BrowserSession, error) {
	return browser.Launch(opts)
}

// Runner executes one test run end to end.
type Runner struct {
	cfg      *config.Config
	oracle   DecisionOracle
	reviewer Reviewer
	exec     ActionExecutor
	emitter  types.Emitter
	log      *logging.Logger
	launch   LaunchFunc
	sweepDir string

	session *Session
	loop    *Loop

	mu   sync.Mutex
	page browser.Page
	tabs browser.Tabs
}

// Option configures a Runner.
type Option func(*Runner)

// WithLauncher overrides how the browser is started.
func WithLauncher(launch LaunchFunc) Option {
	return func(r *Runner) {
		r.launch = launch
	}
}

// WithSweepDir sets where the pre-run page sweep screenshots are saved.
func WithSweepDir(dir string) Option {
	return func(r *Runner) {
		r.sweepDir = dir
	}
}

// New creates a runner.
func New(cfg *config.Config, o DecisionOracle, rev Reviewer, exec ActionExecutor, emitter types.Emitter, log *logging.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		oracle:   o,
		reviewer: rev,
		exec:     exec,
		emitter:  emitter,
		log:      log,
		launch:   LaunchPlaywright,
		sweepDir: "page_sweep",
		session:  NewSession(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.loop = NewLoop(o, rev, exec, emitter, log, r.session, cfg.DisplayWidth, cfg.DisplayHeight)
	return r
}

// Session returns the run's session for external control surfaces.
func (r *Runner) Session() *Session {
	return r.session
}

// Override applies an external pass or fail verdict and reports whether it
// was accepted.
func (r *Runner) Override(status string) bool {
	if !r.session.Override(status) {
		return false
	}
	switch r.session.Status() {
	case types.StatusFail:
		r.log.Infof("the test case failed, please review the failed steps and try again")
		r.emitter.Emit(types.NewMessageEvent("Test case failed. Please review the failed steps and try again."))
	case types.StatusPass:
		r.log.Infof("test case passed")
		r.emitter.Emit(types.NewMessageEvent("Test case passed."))
	}
	return true
}

// Run launches the browser, walks the checklist with the oracle, and
// returns the run's final status.
func (r *Runner) Run(ctx context.Context, taskInstructions, url string) (types.RunStatus, error) {
	r.log.Infof("starting test script execution")
	r.emitter.Emit(types.NewMessageEvent("Starting test script execution..."))

	session, err := r.launch(browser.LaunchOptions{
		Headless: r.cfg.Headless,
		Width:    r.cfg.DisplayWidth,
		Height:   r.cfg.DisplayHeight,
	})
	if err != nil {
		return types.StatusFail, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.log.Errorf("failed to close browser: %v", err)
		}
	}()
	r.emitter.Emit(types.NewMessageEvent("Launching browser..."))

	page := session.Page()
	if err := page.SetViewportSize(r.cfg.DisplayWidth, r.cfg.DisplayHeight); err != nil {
		return types.StatusFail, fmt.Errorf("failed to set viewport: %w", err)
	}
	if err := page.Navigate(url); err != nil {
		return types.StatusFail, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	select {
	case <-time.After(navigationSettle):
	case <-ctx.Done():
		return types.StatusFail, ctx.Err()
	}

	r.mu.Lock()
	r.page = page
	r.tabs = session
	r.mu.Unlock()

	// Review the initial state before the oracle takes its first action.
	if png, err := page.Screenshot(); err == nil {
		r.loop.Review(ctx, png)
	} else {
		r.log.Errorf("failed to capture initial screenshot: %v", err)
	}

	// Pre-run page audit. Failures are informational only.
	if err := browser.SweepCapture(ctx, page, r.log, r.cfg.DisplayHeight, r.sweepDir); err != nil {
		r.log.Errorf("page sweep failed: %v", err)
	}
	if _, err := browser.AuditHeadings(page, r.log); err != nil {
		r.log.Errorf("heading audit failed: %v", err)
	}

	initial, err := r.oracle.Start(ctx, taskInstructions)
	if err != nil {
		return types.StatusFail, fmt.Errorf("failed to start decision conversation: %w", err)
	}

	final, err := r.loop.Run(ctx, page, session, initial)
	if err != nil {
		return r.session.Status(), err
	}
	r.flushMessages(final)

	return r.session.Status(), nil
}

// ResumeWithMessage forwards a user message into the conversation together
// with the current visual state, then continues the loop.
func (r *Runner) ResumeWithMessage(ctx context.Context, message string) error {
	r.mu.Lock()
	page, tabs := r.page, r.tabs
	r.mu.Unlock()
	if page == nil {
		return fmt.Errorf("no run in progress")
	}

	png, err := page.Screenshot()
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	previousResponseID, lastCallID := r.session.LastRound()

	resumed, err := r.oracle.Advance(ctx, oracle.AdvanceInput{
		ScreenshotB64:      base64.StdEncoding.EncodeToString(png),
		PreviousResponseID: previousResponseID,
		LastCallID:         lastCallID,
		UserText:           message,
	})
	if err != nil {
		return fmt.Errorf("failed to resume conversation: %w", err)
	}

	final, err := r.loop.Run(ctx, page, tabs, resumed)
	if err != nil {
		return err
	}
	r.flushMessages(final)
	return nil
}

// flushMessages emits any trailing oracle messages to observers.
func (r *Runner) flushMessages(decision *types.Decision) {
	if decision == nil {
		return
	}
	for _, msg := range decision.Messages() {
		for _, block := range msg.Content {
			if block.Type == "output_text" && block.Text != "" {
				r.emitter.Emit(types.NewMessageEvent(block.Text))
			}
		}
	}
}
