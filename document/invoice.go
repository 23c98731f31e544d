package document

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/logger"
	"github.com/floriandheer/ordermon/woo"
)

//go:embed templates/invoice.html
var templateFS embed.FS

var invoiceTemplate = template.Must(template.ParseFS(templateFS, "templates/invoice.html"))

// InvoiceGenerator renders the PDF invoice for an order. Invoice failures
// are hard failures: an order folder without an invoice is not done.
type InvoiceGenerator struct {
	renderer PDFRenderer
	cfg      config.InvoiceConfig
	log      *zap.SugaredLogger
}

// NewInvoiceGenerator builds an invoice generator around a renderer.
func NewInvoiceGenerator(renderer PDFRenderer, cfg config.InvoiceConfig, log *zap.SugaredLogger) *InvoiceGenerator {
	if log == nil {
		log = logger.Logger
	}
	return &InvoiceGenerator{renderer: renderer, cfg: cfg, log: log}
}

type invoiceData struct {
	Order          woo.Order
	OrderDate      string
	Subtotal       string
	GrandTotal     string
	HasDiscount    bool
	CompanyName    string
	CompanyAddress string
	FooterNote     string
}

// Generate writes Invoice_{order_number}.pdf into folder.
func (g *InvoiceGenerator) Generate(ctx context.Context, order woo.Order, folder string) Result {
	html, err := g.renderHTML(order)
	if err != nil {
		return failed(ArtifactInvoice, err)
	}

	pdf, err := g.renderer.RenderPDF(ctx, html)
	if err != nil {
		return failed(ArtifactInvoice, errors.Wrapf(err, "rendering invoice for order %s", order.Number))
	}

	path := filepath.Join(folder, fmt.Sprintf("Invoice_%s.pdf", order.Number))
	if err := os.WriteFile(path, pdf, 0644); err != nil {
		return failed(ArtifactInvoice, errors.Wrapf(err, "writing invoice %s", path))
	}

	g.log.Infow("Generated invoice",
		logger.FieldOrderNumber, order.Number,
		logger.FieldPath, path)
	return generated(ArtifactInvoice, path)
}

func (g *InvoiceGenerator) renderHTML(order woo.Order) (string, error) {
	// The invoice totals are recomputed from unit prices and quantities;
	// the store's reported total is only compared, never rendered.
	subtotal := order.ItemsSubtotal()
	grand := order.ComputedTotal()

	if !grand.Equal(order.Total) {
		// Usually a fee plugin the line items don't show.
		g.log.Warnw("Order total does not match line item sum",
			logger.FieldOrderNumber, order.Number,
			"reported", order.Total.String(),
			"computed", grand.String())
	}

	data := invoiceData{
		Order:          order,
		OrderDate:      order.DateCreated.Format("2006-01-02"),
		Subtotal:       subtotal.StringFixed(2),
		GrandTotal:     grand.StringFixed(2),
		HasDiscount:    order.DiscountTotal.IsPositive(),
		CompanyName:    g.cfg.CompanyName,
		CompanyAddress: g.cfg.CompanyAddress,
		FooterNote:     g.cfg.FooterNote,
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "rendering invoice template for order %s", order.Number)
	}
	return buf.String(), nil
}
