package document

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/logger"
)

const defaultRenderTimeout = 30 * time.Second

// A4 paper in inches; Chrome's print API wants inches.
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
	marginInches   = 0.4
)

// ChromedpRenderer renders HTML to PDF through Chrome DevTools Protocol.
// The allocator is created once and shared; each render gets its own
// browser context.
type ChromedpRenderer struct {
	timeout     time.Duration
	allocCtx    context.Context
	allocCancel context.CancelFunc
	log         *zap.SugaredLogger
}

// NewChromedpRenderer starts a headless Chrome allocator for invoice
// rendering. Close releases it.
func NewChromedpRenderer(timeout time.Duration, log *zap.SugaredLogger) *ChromedpRenderer {
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	if log == nil {
		log = logger.Logger
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromedpRenderer{
		timeout:     timeout,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		log:         log,
	}
}

// RenderPDF renders a complete HTML document to A4 PDF bytes.
func (r *ChromedpRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx)
	defer browserCancel()

	started := time.Now()
	var pdfData []byte

	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4WidthInches).
				WithPaperHeight(a4HeightInches).
				WithMarginTop(marginInches).
				WithMarginRight(marginInches).
				WithMarginBottom(marginInches).
				WithMarginLeft(marginInches).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrapf(err, "PDF rendering timed out after %v", r.timeout)
		}
		return nil, errors.Wrap(err, "chromedp execution failed")
	}

	if len(pdfData) == 0 {
		return nil, errors.New("rendered PDF is empty")
	}

	r.log.Debugw("Rendered PDF",
		"bytes", len(pdfData),
		logger.FieldDurationMS, time.Since(started).Milliseconds())

	return pdfData, nil
}

// Close shuts down the Chrome allocator.
func (r *ChromedpRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

var _ PDFRenderer = (*ChromedpRenderer)(nil)
