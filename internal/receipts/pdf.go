package receipts

import (
	"context"
	"encoding/base64"
	"regexp"
	"strconv"

	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	pkgerrors "github.com/omaraldhaheri/zaina-backend/pkg/errors"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
)

// cssPixelsPerInch is Chrome's fixed CSS pixel density for print sizing.
const cssPixelsPerInch = 96.0

// browserSession is one checkout of a rendering engine. Close must be safe
// to call regardless of whether RenderPDF succeeded.
type browserSession interface {
	RenderPDF(ctx context.Context, html string, width, height int) ([]byte, error)
	Close()
}

type sessionFactory func(ctx context.Context) (browserSession, error)

// Converter rasterizes rendered receipts into single-page PDFs using a
// headless browser launched per conversion.
type Converter struct {
	newSession sessionFactory
	logg       *logger.Logger
}

func NewConverter(logg *logger.Logger) *Converter {
	return &Converter{
		newSession: newChromeSession,
		logg:       logg,
	}
}

// Convert wraps the SVG in a minimal host document and captures it as a PDF
// sized to the document's intrinsic dimensions. The browser session is torn
// down on every path, success or failure, before the error propagates.
func (c *Converter) Convert(ctx context.Context, svg string) ([]byte, error) {
	session, err := c.newSession(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRender, err, "launch rendering engine")
	}
	defer session.Close()

	width, height := intrinsicSize(svg)
	host := `<!doctype html><html><head><meta charset="utf-8"><style>html,body{margin:0;padding:0}</style></head><body>` +
		svg + `</body></html>`

	pdf, err := session.RenderPDF(ctx, host, width, height)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRender, err, "capture pdf")
	}
	if len(pdf) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeRender, "rendering produced empty output")
	}
	return pdf, nil
}

var (
	widthAttr  = regexp.MustCompile(`width="(\d+)"`)
	heightAttr = regexp.MustCompile(`height="(\d+)"`)
)

// intrinsicSize reads the explicit width/height attributes from the SVG
// root. Falls back to the renderer's zero-item geometry.
func intrinsicSize(svg string) (int, int) {
	width, height := DocWidth, Height(0)
	if m := widthAttr.FindStringSubmatch(svg); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			width = v
		}
	}
	if m := heightAttr.FindStringSubmatch(svg); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			height = v
		}
	}
	return width, height
}

type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func newChromeSession(parent context.Context) (browserSession, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, chromedp.DefaultExecAllocatorOptions[:]...)
	ctx, cancel := chromedp.NewContext(allocCtx)
	return &chromeSession{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

// waitForResources resolves once fonts and embedded images have loaded, so
// the capture never races resource fetches.
const waitForResources = `Promise.all([
	document.fonts.ready,
	...Array.from(document.images)
		.filter(img => !img.complete)
		.map(img => new Promise(resolve => { img.onload = img.onerror = resolve; })),
]).then(() => true)`

func (s *chromeSession) RenderPDF(ctx context.Context, html string, width, height int) ([]byte, error) {
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var pdf []byte
	err := chromedp.Run(s.ctx,
		chromedp.EmulateViewport(int64(width), int64(height), chromedp.EmulateScale(2)),
		chromedp.Navigate(dataURL),
		chromedp.Evaluate(waitForResources, nil, func(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(float64(width) / cssPixelsPerInch).
				WithPaperHeight(float64(height) / cssPixelsPerInch).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(false).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

func (s *chromeSession) Close() {
	s.cancel()
	s.allocCancel()
}
