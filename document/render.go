package document

import "context"

// PDFRenderer converts an HTML document into PDF bytes. The production
// implementation drives headless Chrome; tests substitute a fake.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
	Close() error
}
