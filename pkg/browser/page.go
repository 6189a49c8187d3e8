// Package browser owns the driven browser: launching it, executing oracle
// actions against the active page, and capturing its visual state.
package browser

// Pointer drives the mouse of a page.
type Pointer interface {
	Move(x, y float64) error
	Click(x, y float64, button string) error
	DoubleClick(x, y float64, button string) error
	Down() error
	Up() error
}

// Keys drives the keyboard of a page.
type Keys interface {
	Down(key string) error
	Up(key string) error
	Press(key string) error
	Type(text string) error
}

// Page is the slice of page behavior the executor and run loop need.
// Implementations wrap a live browser page; tests substitute fakes.
type Page interface {
	Navigate(url string) error
	Screenshot() ([]byte, error)
	Content() (string, error)
	Evaluate(expression string, arg ...any) (any, error)
	URL() string
	SetViewportSize(width, height int) error
	Pointer() Pointer
	Keys() Keys
}

// Tabs exposes the open pages of the browser context so the run loop can
// notice actions that spawned a new tab.
type Tabs interface {
	// PageCount returns the number of open pages in the context.
	PageCount() int

	// LatestPage returns the most recently opened page.
	LatestPage() Page
}
