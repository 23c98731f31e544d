package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/logger"
	"github.com/floriandheer/ordermon/woo"
)

// LabelSource is the slice of the store client the label generator needs.
type LabelSource interface {
	// FetchLabelURL asks the store for a label URL when order metadata
	// carries none. "" with nil error means no label exists.
	FetchLabelURL(ctx context.Context, orderID int64) (string, error)
	// DownloadLabel fetches the label document bytes.
	DownloadLabel(ctx context.Context, labelURL string) ([]byte, error)
}

// LabelGenerator saves the shipping label for an order. Not every order has
// one; a missing label is a skip, not a failure, and even a real failure is
// tolerated by the processor.
type LabelGenerator struct {
	source LabelSource
	log    *zap.SugaredLogger
}

// NewLabelGenerator builds a label generator backed by the store client.
func NewLabelGenerator(source LabelSource, log *zap.SugaredLogger) *LabelGenerator {
	if log == nil {
		log = logger.Logger
	}
	return &LabelGenerator{source: source, log: log}
}

// Generate writes Shipping_Label_{order_number}.pdf into folder.
// Label URL resolution order: order metadata first, then the store's
// admin-ajax lookup.
func (g *LabelGenerator) Generate(ctx context.Context, order woo.Order, folder string) Result {
	labelURL, found := order.LabelURL()
	if !found {
		var err error
		labelURL, err = g.source.FetchLabelURL(ctx, order.ID)
		if err != nil {
			return failed(ArtifactLabel, errors.Wrapf(err, "looking up label for order %s", order.Number))
		}
	}

	if labelURL == "" {
		g.log.Infow("No shipping label for order",
			logger.FieldOrderNumber, order.Number)
		return skipped(ArtifactLabel, "order has no shipping label")
	}

	data, err := g.source.DownloadLabel(ctx, labelURL)
	if err != nil {
		return failed(ArtifactLabel, errors.Wrapf(err, "downloading label for order %s", order.Number))
	}
	if len(data) == 0 {
		return failed(ArtifactLabel, errors.Newf("label for order %s is empty", order.Number))
	}

	path := filepath.Join(folder, fmt.Sprintf("Shipping_Label_%s.pdf", order.Number))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return failed(ArtifactLabel, errors.Wrapf(err, "writing label %s", path))
	}

	g.log.Infow("Saved shipping label",
		logger.FieldOrderNumber, order.Number,
		logger.FieldPath, path)
	return generated(ArtifactLabel, path)
}
