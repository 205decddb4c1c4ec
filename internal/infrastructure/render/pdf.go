package render

import (
	"context"
	"time"

	"github.com/capazme/VisuaLex-Beta/internal/domain/shared"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultRenderTimeout = 30 * time.Second
	defaultScale         = 1.0
)

// Config contains configuration for the PDF exporter
type Config struct {
	// BaseURL is the register resolution endpoint the canonical
	// identifier is appended to.
	BaseURL string
	// Timeout bounds a single render
	Timeout time.Duration
	// Scale for rendering (default: 1.0)
	Scale float64
	// PrintBackground prints background graphics
	PrintBackground bool
}

// Exporter renders the register page for a canonical identifier to a
// PDF artifact using Chrome DevTools Protocol. It consumes a handle
// from the browser manager and never owns the browser itself.
type Exporter struct {
	cfg     Config
	storage *Storage
	logger  *zap.Logger
}

// NewExporter creates a new chromedp-based PDF exporter
func NewExporter(cfg Config, storage *Storage, logger *zap.Logger) *Exporter {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultRenderTimeout
	}
	if cfg.Scale == 0 {
		cfg.Scale = defaultScale
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{cfg: cfg, storage: storage, logger: logger}
}

// Storage returns the artifact storage used by the exporter.
func (e *Exporter) Storage() *Storage {
	return e.storage
}

// RenderToFile navigates the shared browser to the register page for
// urn, prints it to PDF and stores the artifact. Failures surface as
// RENDER_FAILED.
func (e *Exporter) RenderToFile(h *browser.Handle, urn string) (string, error) {
	target := e.cfg.BaseURL + urn
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(h.Ctx(), e.cfg.Timeout)
	defer cancel()

	var pdfData []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(e.cfg.PrintBackground).
				WithScale(e.cfg.Scale).
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
			return "", shared.NewDomainError(shared.CodeRenderFailed,
				"PDF rendering timed out after "+e.cfg.Timeout.String())
		}
		e.logger.Error("chromedp rendering failed", zap.String("urn", urn), zap.Error(err))
		return "", shared.NewDomainError(shared.CodeRenderFailed, "chromedp execution failed: "+err.Error())
	}
	if len(pdfData) == 0 {
		return "", shared.NewDomainError(shared.CodeRenderFailed, "generated PDF is empty")
	}

	path, err := e.storage.Write(urn, pdfData)
	if err != nil {
		return "", shared.NewDomainError(shared.CodeRenderFailed, "failed to store PDF: "+err.Error())
	}

	e.logger.Info("PDF rendered",
		zap.String("urn", urn),
		zap.String("path", path),
		zap.Int("bytes", len(pdfData)),
		zap.Duration("duration", time.Since(startTime)))

	return path, nil
}
