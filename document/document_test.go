package document

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/woo"
)

// fakeRenderer records the HTML it was asked to render.
type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) RenderPDF(_ context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

func (f *fakeRenderer) Close() error { return nil }

// fakeLabelSource serves canned label lookups and downloads.
type fakeLabelSource struct {
	lookupURL   string
	lookupErr   error
	labelData   []byte
	downloadErr error

	lookupCalls   int
	downloadedURL string
}

func (f *fakeLabelSource) FetchLabelURL(_ context.Context, _ int64) (string, error) {
	f.lookupCalls++
	return f.lookupURL, f.lookupErr
}

func (f *fakeLabelSource) DownloadLabel(_ context.Context, u string) ([]byte, error) {
	f.downloadedURL = u
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.labelData, nil
}

func testOrder(t *testing.T) woo.Order {
	t.Helper()
	var o woo.Order
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 7421,
		"number": "7421",
		"status": "processing",
		"currency": "EUR",
		"date_created": "2026-08-12T09:15:30",
		"total": "30.00",
		"total_tax": "2.00",
		"shipping_total": "3.00",
		"discount_total": "0.00",
		"payment_method_title": "Direct bank transfer",
		"transaction_id": "txn_8842",
		"customer_note": "Leave at the side door",
		"billing": {"first_name": "Ana", "last_name": "Peeters", "address_1": "Kerkstraat 12", "city": "Gent", "postcode": "9000", "country": "BE", "email": "ana@example.com"},
		"shipping": {"first_name": "Ana", "last_name": "Peeters", "address_1": "Kerkstraat 12", "city": "Gent", "postcode": "9000", "country": "BE"},
		"line_items": [
			{"name": "Ceramic mug", "sku": "MUG-01", "quantity": 2, "price": 10, "subtotal": "20.00", "total": "20.00"},
			{"name": "Coaster set", "sku": "CST-04", "quantity": 1, "price": 5, "subtotal": "5.00", "total": "5.00"}
		],
		"shipping_lines": [
			{"method_id": "flat_rate", "method_title": "Flat rate", "total": "3.00"}
		]
	}`), &o))
	return o
}

func TestInvoiceGenerator(t *testing.T) {
	cfg := config.InvoiceConfig{CompanyName: "Atelier Dheer", FooterNote: "Thank you for your order"}

	t.Run("writes pdf with expected name", func(t *testing.T) {
		dir := t.TempDir()
		renderer := &fakeRenderer{}
		g := NewInvoiceGenerator(renderer, cfg, nil)

		res := g.Generate(context.Background(), testOrder(t), dir)
		require.NoError(t, res.Err)
		assert.Equal(t, OutcomeGenerated, res.Outcome)
		assert.Equal(t, filepath.Join(dir, "Invoice_7421.pdf"), res.Path)
		assert.FileExists(t, res.Path)
	})

	t.Run("html carries order content", func(t *testing.T) {
		renderer := &fakeRenderer{}
		g := NewInvoiceGenerator(renderer, cfg, nil)

		res := g.Generate(context.Background(), testOrder(t), t.TempDir())
		require.NoError(t, res.Err)

		assert.Contains(t, renderer.html, "Invoice")
		assert.Contains(t, renderer.html, "7421")
		assert.Contains(t, renderer.html, "Ana Peeters")
		assert.Contains(t, renderer.html, "Ceramic mug")
		assert.Contains(t, renderer.html, "30.00")
		assert.Contains(t, renderer.html, "Atelier Dheer")
	})

	t.Run("totals are computed from line items", func(t *testing.T) {
		renderer := &fakeRenderer{}
		g := NewInvoiceGenerator(renderer, cfg, nil)

		order := testOrder(t)
		// A store-reported total never reaches the document.
		order.Total = decimal.RequireFromString("99.99")

		res := g.Generate(context.Background(), order, t.TempDir())
		require.NoError(t, res.Err)

		assert.Contains(t, renderer.html, ">25.00<", "subtotal is unit price times quantity")
		assert.Contains(t, renderer.html, ">30.00<", "grand total is subtotal plus shipping and tax")
		assert.NotContains(t, renderer.html, "99.99")
	})

	t.Run("render failure is a failed outcome", func(t *testing.T) {
		renderer := &fakeRenderer{err: errors.New("chrome exploded")}
		g := NewInvoiceGenerator(renderer, cfg, nil)

		res := g.Generate(context.Background(), testOrder(t), t.TempDir())
		assert.Equal(t, OutcomeFailed, res.Outcome)
		assert.Error(t, res.Err)
	})

	t.Run("unwritable folder is a failed outcome", func(t *testing.T) {
		g := NewInvoiceGenerator(&fakeRenderer{}, cfg, nil)

		res := g.Generate(context.Background(), testOrder(t), filepath.Join(t.TempDir(), "does", "not", "exist"))
		assert.Equal(t, OutcomeFailed, res.Outcome)
	})
}

func TestLabelGenerator(t *testing.T) {
	t.Run("uses metadata url without lookup", func(t *testing.T) {
		dir := t.TempDir()
		source := &fakeLabelSource{labelData: []byte("%PDF label")}
		g := NewLabelGenerator(source, nil)

		order := testOrder(t)
		order.MetaData = []woo.MetaData{{Key: "_bpost_label_url", Value: "https://labels.example.com/7421.pdf"}}

		res := g.Generate(context.Background(), order, dir)
		require.NoError(t, res.Err)
		assert.Equal(t, OutcomeGenerated, res.Outcome)
		assert.Equal(t, filepath.Join(dir, "Shipping_Label_7421.pdf"), res.Path)
		assert.Equal(t, "https://labels.example.com/7421.pdf", source.downloadedURL)
		assert.Zero(t, source.lookupCalls)
	})

	t.Run("falls back to store lookup", func(t *testing.T) {
		source := &fakeLabelSource{
			lookupURL: "https://labels.example.com/ajax/7421.pdf",
			labelData: []byte("%PDF label"),
		}
		g := NewLabelGenerator(source, nil)

		res := g.Generate(context.Background(), testOrder(t), t.TempDir())
		require.NoError(t, res.Err)
		assert.Equal(t, OutcomeGenerated, res.Outcome)
		assert.Equal(t, 1, source.lookupCalls)
	})

	t.Run("no label anywhere is a skip", func(t *testing.T) {
		source := &fakeLabelSource{}
		g := NewLabelGenerator(source, nil)

		res := g.Generate(context.Background(), testOrder(t), t.TempDir())
		assert.Equal(t, OutcomeSkipped, res.Outcome)
		assert.NoError(t, res.Err)
		assert.NotEmpty(t, res.Reason)
	})

	t.Run("download failure is a failed outcome", func(t *testing.T) {
		source := &fakeLabelSource{
			lookupURL:   "https://labels.example.com/x.pdf",
			downloadErr: errors.New("connection reset"),
		}
		g := NewLabelGenerator(source, nil)

		res := g.Generate(context.Background(), testOrder(t), t.TempDir())
		assert.Equal(t, OutcomeFailed, res.Outcome)
		assert.Error(t, res.Err)
	})

	t.Run("empty label body is a failed outcome", func(t *testing.T) {
		source := &fakeLabelSource{lookupURL: "https://labels.example.com/x.pdf"}
		g := NewLabelGenerator(source, nil)

		res := g.Generate(context.Background(), testOrder(t), t.TempDir())
		assert.Equal(t, OutcomeFailed, res.Outcome)
	})
}

func TestDetailsGenerator(t *testing.T) {
	t.Run("writes readable summary", func(t *testing.T) {
		dir := t.TempDir()
		g := NewDetailsGenerator(nil)

		res := g.Generate(testOrder(t), dir)
		require.NoError(t, res.Err)
		assert.Equal(t, OutcomeGenerated, res.Outcome)
		assert.Equal(t, filepath.Join(dir, "Order_Details_7421.txt"), res.Path)

		data, err := os.ReadFile(res.Path)
		require.NoError(t, err)
		text := string(data)

		assert.Contains(t, text, detailsSeparator)
		assert.Contains(t, text, "ORDER DETAILS - #7421")
		assert.Contains(t, text, "Transaction ID: txn_8842")
		assert.Contains(t, text, "2x Ceramic mug [MUG-01] - 20.00")
		assert.Contains(t, text, "SHIPPING")
		assert.Contains(t, text, "Method: Flat rate")
		assert.Contains(t, text, "Cost:   3.00")
		assert.Contains(t, text, "TOTAL:    30.00 EUR")
		assert.Contains(t, text, "CUSTOMER NOTE")
		assert.Contains(t, text, "Leave at the side door")
		assert.Contains(t, text, "ana@example.com")
	})

	t.Run("unwritable folder is a failed outcome", func(t *testing.T) {
		g := NewDetailsGenerator(nil)
		res := g.Generate(testOrder(t), filepath.Join(t.TempDir(), "missing"))
		assert.Equal(t, OutcomeFailed, res.Outcome)
	})
}
