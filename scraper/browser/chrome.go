package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"directory-scraper/utils"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// submitTimeout bounds the wait for the search input before typing.
const submitTimeout = 10 * time.Second

const (
	textJS  = `function() { return (this.innerText || this.textContent || "").toString(); }`
	attrJS  = `function(name) { var v = (name in this) ? this[name] : this.getAttribute(name); return v == null ? "" : String(v); }`
	clickJS = `function() { this.click(); }`
	tagJS   = `function(id) { this.setAttribute("data-ds-ref", id); }`
)

// ChromeOptions configures the headless browser.
type ChromeOptions struct {
	Headless  bool
	ChromeBin string
	UserAgent string
	Logger    *utils.Logger
}

// ChromeSession drives one Chrome tab through chromedp.
type ChromeSession struct {
	ctx    context.Context
	logger *utils.Logger
	nextID int
}

// NewChromeSession launches Chrome and opens a tab. The returned release func
// closes the tab and the browser; it must be called on every exit path.
func NewChromeSession(opts ChromeOptions) (*ChromeSession, func(), error) {
	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = FindChromeBinary()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1440, 900),
		chromedp.UserAgent(ua),
	)
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	release := func() {
		cancelTab()
		cancelAlloc()
	}

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		release()
		return nil, nil, fmt.Errorf("chrome: start browser (%s): %w", chromeBin, err)
	}

	if opts.Logger != nil {
		opts.Logger.Info("[browser] Chrome started — binary: %s | headless: %v", displayBin(chromeBin), opts.Headless)
	}
	return &ChromeSession{ctx: tabCtx, logger: opts.Logger}, release, nil
}

// run executes actions on the tab while honouring the caller's ctx and an
// optional timeout.
func (s *ChromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("chrome: navigate %s: %w", url, err)
	}
	return nil
}

func (s *ChromeSession) WaitFor(ctx context.Context, locator string, timeout time.Duration) error {
	err := s.run(ctx, timeout, chromedp.WaitReady(locator, chromedp.BySearch))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return ErrNotFound
	}
	return fmt.Errorf("chrome: wait for %q: %w", locator, err)
}

func (s *ChromeSession) Find(ctx context.Context, locator string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, 0, chromedp.Nodes(locator, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("chrome: find %q: %w", locator, err)
	}
	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &chromeElement{s: s, node: n})
	}
	return els, nil
}

func (s *ChromeSession) Submit(ctx context.Context, inputName, query string) error {
	sel := fmt.Sprintf(`//*[@name=%s]`, xpathLiteral(inputName))
	err := s.run(ctx, submitTimeout,
		chromedp.WaitReady(sel, chromedp.BySearch),
		chromedp.SendKeys(sel, query, chromedp.BySearch),
		chromedp.Submit(sel, chromedp.BySearch),
	)
	if err != nil {
		return fmt.Errorf("chrome: submit %q: %w", inputName, err)
	}
	return nil
}

type chromeElement struct {
	s    *ChromeSession
	node *cdp.Node
	ref  string
}

func (e *chromeElement) call(ctx context.Context, fn string, res interface{}, args ...interface{}) error {
	return e.s.run(ctx, 0, chromedp.ActionFunc(func(c context.Context) error {
		return chromedp.CallFunctionOnNode(c, e.node, fn, res, args...)
	}))
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var out string
	if err := e.call(ctx, textJS, &out); err != nil {
		return "", fmt.Errorf("chrome: text: %w", err)
	}
	return out, nil
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, error) {
	var out string
	if err := e.call(ctx, attrJS, &out, name); err != nil {
		return "", fmt.Errorf("chrome: attribute %s: %w", name, err)
	}
	return out, nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	if err := e.call(ctx, clickJS, nil); err != nil {
		return fmt.Errorf("chrome: click: %w", err)
	}
	return nil
}

// Find tags the element with a unique attribute and anchors the relative
// locator on it, since BySearch queries cannot start from a node.
func (e *chromeElement) Find(ctx context.Context, locator string) ([]Element, error) {
	if e.ref == "" {
		e.s.nextID++
		ref := strconv.Itoa(e.s.nextID)
		if err := e.call(ctx, tagJS, nil, ref); err != nil {
			return nil, fmt.Errorf("chrome: tag element: %w", err)
		}
		e.ref = ref
	}
	return e.s.Find(ctx, anchorLocator(e.ref, locator))
}

// anchorLocator rewrites a relative XPath ("./x", ".//x", "x") to start at
// the element carrying data-ds-ref=ref.
func anchorLocator(ref, rel string) string {
	rel = strings.TrimPrefix(strings.TrimSpace(rel), ".")
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return fmt.Sprintf(`(//*[@data-ds-ref=%s])%s`, xpathLiteral(ref), rel)
}

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// FindChromeBinary locates Chrome/Chromium binary.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

func displayBin(bin string) string {
	if bin == "" {
		return "(chromedp default)"
	}
	return bin
}
