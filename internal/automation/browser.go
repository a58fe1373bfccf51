// Package automation drives a loaded rod page the way a reader would: it
// opens the reference modals of a library page, captures their content and
// scrolls or moves the mouse between actions.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// Selectors of the site's modal dialog.
const (
	ModalContentSelector = ".modal-content"
	ModalCloseSelector   = ".modal-close-button"
)

// BrowserAutomation handles interactions on one loaded page.
type BrowserAutomation struct {
	page   *rod.Page
	wait   time.Duration
	rng    *rand.Rand
	logger *slog.Logger
}

// NewBrowserAutomation wraps a Rod page. wait is the pause left for a modal
// to render after it is opened.
func NewBrowserAutomation(page *rod.Page, wait time.Duration, logger *slog.Logger) *BrowserAutomation {
	return &BrowserAutomation{
		page:   page,
		wait:   wait,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger.With("component", "browser_automation"),
	}
}

// --- Modals ---

// CaptureModals opens every visible trigger of each class, one at a time,
// and returns the inner HTML of the modal each one shows. Failures are
// logged and skipped; only context cancellation stops the capture.
func (ba *BrowserAutomation) CaptureModals(ctx context.Context, classes []string) ([]string, error) {
	var captured []string
	page := ba.page.Context(ctx)

	for _, class := range classes {
		elements, err := page.Elements("." + class)
		if err != nil {
			ba.logger.Error("modal triggers lookup failed", "class", class, "error", err)
			continue
		}

		for _, el := range elements {
			if err := ctx.Err(); err != nil {
				return captured, err
			}

			style, err := el.Attribute("style")
			if err == nil && style != nil && isHidden(*style) {
				continue
			}

			content, err := ba.captureOne(ctx, page, el)
			if err != nil {
				ba.logger.Warn("modal capture failed", "class", class, "error", err)
				continue
			}
			captured = append(captured, content)
			ba.logger.Debug("modal captured", "class", class, "size", len(content))
		}
	}
	return captured, nil
}

func (ba *BrowserAutomation) captureOne(ctx context.Context, page *rod.Page, trigger *rod.Element) (string, error) {
	// A script click reaches triggers hidden behind overlays.
	if _, err := trigger.Eval(`() => this.click()`); err != nil {
		return "", fmt.Errorf("open modal: %w", err)
	}
	if err := sleep(ctx, ba.wait); err != nil {
		return "", err
	}

	content, err := page.Timeout(10 * time.Second).Element(ModalContentSelector)
	if err != nil {
		return "", fmt.Errorf("modal content not found: %w", err)
	}
	res, err := content.Eval(`() => this.innerHTML`)
	if err != nil {
		return "", fmt.Errorf("read modal content: %w", err)
	}
	html := res.Value.String()

	if err := ba.closeModal(page); err != nil {
		ba.logger.Warn("modal did not close", "error", err)
	}
	return html, nil
}

// closeModal clicks the close button, falling back to Escape.
func (ba *BrowserAutomation) closeModal(page *rod.Page) error {
	has, btn, err := page.Has(ModalCloseSelector)
	if err == nil && has {
		if _, err := btn.Eval(`() => this.click()`); err == nil {
			return nil
		}
	}
	return page.Keyboard.Press(input.Escape)
}

// isHidden reports whether an inline style hides the element.
func isHidden(style string) bool {
	compact := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(compact, "display:none")
}

// --- Human-like movement ---

// HumanScroll scrolls down in a few uneven steps with pauses between them.
func (ba *BrowserAutomation) HumanScroll(ctx context.Context) error {
	page := ba.page.Context(ctx)
	for _, step := range scrollPlan(ba.rng) {
		if _, err := page.Eval(fmt.Sprintf(`() => window.scrollBy(0, %d)`, step.amount)); err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		if err := sleep(ctx, step.pause); err != nil {
			return err
		}
	}
	return nil
}

// MoveMouseRandomly moves the cursor through a handful of random points.
func (ba *BrowserAutomation) MoveMouseRandomly(ctx context.Context) error {
	page := ba.page.Context(ctx)
	x, y := 400.0, 300.0
	moves := 5 + ba.rng.Intn(11)
	for i := 0; i < moves; i++ {
		x = clamp(x+float64(ba.rng.Intn(601)-300), 0, 1280)
		y = clamp(y+float64(ba.rng.Intn(401)-200), 0, 720)
		if err := page.Mouse.MoveLinear(proto.Point{X: x, Y: y}, 5); err != nil {
			return fmt.Errorf("move mouse: %w", err)
		}
		pause := 100*time.Millisecond + time.Duration(ba.rng.Int63n(int64(400*time.Millisecond)))
		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

type scrollStep struct {
	amount int
	pause  time.Duration
}

// scrollPlan draws 5 to 15 scrolls of 200 to 600 pixels, each followed by a
// 0.3s to 1.5s pause.
func scrollPlan(rng *rand.Rand) []scrollStep {
	n := 5 + rng.Intn(11)
	steps := make([]scrollStep, n)
	for i := range steps {
		steps[i] = scrollStep{
			amount: 200 + rng.Intn(401),
			pause:  300*time.Millisecond + time.Duration(rng.Int63n(int64(1200*time.Millisecond))),
		}
	}
	return steps
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
