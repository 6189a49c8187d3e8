package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/entrhq/proctor/pkg/logging"
)

// sweepPause is the settle time between scroll steps of a sweep.
var sweepPause = 500 * time.Millisecond

// SweepCapture scrolls the page one viewport height at a time and saves a
// screenshot after each step, giving a full-page visual record before the
// run starts interacting.
func SweepCapture(ctx context.Context, page Page, log *logging.Logger, viewportHeight int, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create sweep directory: %w", err)
	}

	total, err := page.Evaluate("() => document.body.scrollHeight")
	if err != nil {
		return fmt.Errorf("failed to read page height: %w", err)
	}
	totalHeight := asInt(total)

	scrolled := 0
	index := 0
	for scrolled < totalHeight {
		if _, err := page.Evaluate("(h) => window.scrollBy(0, h)", viewportHeight); err != nil {
			return fmt.Errorf("failed to scroll page: %w", err)
		}
		select {
		case <-time.After(sweepPause):
		case <-ctx.Done():
			return ctx.Err()
		}
		scrolled += viewportHeight
		index++

		png, err := page.Screenshot()
		if err != nil {
			return fmt.Errorf("failed to capture sweep screenshot: %w", err)
		}
		name := filepath.Join(dir, fmt.Sprintf("scroll-%d.png", index))
		if err := os.WriteFile(name, png, 0o600); err != nil {
			return fmt.Errorf("failed to save sweep screenshot: %w", err)
		}
		log.Debugf("captured screenshot: %s", name)
	}
	return nil
}

// HeadingReport records which heading levels the page contains.
type HeadingReport struct {
	H1 bool
	H2 bool
	H3 bool
}

// AuditHeadings parses the page markup and reports which of h1, h2 and h3
// are present.
func AuditHeadings(page Page, log *logging.Logger) (HeadingReport, error) {
	content, err := page.Content()
	if err != nil {
		return HeadingReport{}, fmt.Errorf("failed to read page content: %w", err)
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return HeadingReport{}, fmt.Errorf("failed to parse page content: %w", err)
	}

	var report HeadingReport
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h1":
				report.H1 = true
			case "h2":
				report.H2 = true
			case "h3":
				report.H3 = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	log.Debugf("heading validation: h1=%t h2=%t h3=%t", report.H1, report.H2, report.H3)
	return report, nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
