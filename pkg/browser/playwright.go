package browser

import (
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// LaunchOptions configures a new browser session.
type LaunchOptions struct {
	Headless bool
	Width    int
	Height   int
}

// Session is a live Chromium instance with one browser context. It
// implements Tabs over the context's open pages.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// Launch installs the browser runtime if needed and starts Chromium with a
// fresh context and page at the requested viewport size.
func Launch(opts LaunchOptions) (*Session, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	br, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--disable-extensions", "--disable-file-system"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := br.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Width, Height: opts.Height},
	})
	if err != nil {
		_ = br.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		_ = br.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Session{pw: pw, browser: br, context: context, page: page}, nil
}

// Page returns the session's initial page.
func (s *Session) Page() Page {
	return &pwPage{page: s.page}
}

// PageCount implements Tabs.
func (s *Session) PageCount() int {
	return len(s.context.Pages())
}

// LatestPage implements Tabs. The most recently opened page is last in the
// context's page list.
func (s *Session) LatestPage() Page {
	pages := s.context.Pages()
	if len(pages) == 0 {
		return &pwPage{page: s.page}
	}
	return &pwPage{page: pages[len(pages)-1]}
}

// Close tears the whole session down.
func (s *Session) Close() error {
	_ = s.context.Close()
	_ = s.browser.Close()
	if err := s.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// pwPage adapts a playwright page to the Page interface.
type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Navigate(url string) error {
	if _, err := p.page.Goto(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *pwPage) Screenshot() ([]byte, error) {
	return p.page.Screenshot()
}

func (p *pwPage) Content() (string, error) {
	return p.page.Content()
}

func (p *pwPage) Evaluate(expression string, arg ...any) (any, error) {
	return p.page.Evaluate(expression, arg...)
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) SetViewportSize(width, height int) error {
	return p.page.SetViewportSize(width, height)
}

func (p *pwPage) Pointer() Pointer {
	return &pwMouse{mouse: p.page.Mouse()}
}

func (p *pwPage) Keys() Keys {
	return &pwKeyboard{keyboard: p.page.Keyboard()}
}

type pwMouse struct {
	mouse playwright.Mouse
}

func (m *pwMouse) Move(x, y float64) error {
	return m.mouse.Move(x, y)
}

func (m *pwMouse) Click(x, y float64, button string) error {
	b := playwright.MouseButton(button)
	return m.mouse.Click(x, y, playwright.MouseClickOptions{Button: &b})
}

func (m *pwMouse) DoubleClick(x, y float64, button string) error {
	b := playwright.MouseButton(button)
	return m.mouse.Dblclick(x, y, playwright.MouseDblclickOptions{Button: &b})
}

func (m *pwMouse) Down() error {
	return m.mouse.Down()
}

func (m *pwMouse) Up() error {
	return m.mouse.Up()
}

type pwKeyboard struct {
	keyboard playwright.Keyboard
}

func (k *pwKeyboard) Down(key string) error {
	return k.keyboard.Down(key)
}

func (k *pwKeyboard) Up(key string) error {
	return k.keyboard.Up(key)
}

func (k *pwKeyboard) Press(key string) error {
	return k.keyboard.Press(key)
}

func (k *pwKeyboard) Type(text string) error {
	return k.keyboard.Type(text)
}
