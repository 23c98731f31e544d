// Package monitor runs the polling cycle: fetch recent orders, process the
// new ones into document folders, remember what was done.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/document"
	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/logger"
	"github.com/floriandheer/ordermon/naming"
	"github.com/floriandheer/ordermon/state"
	"github.com/floriandheer/ordermon/woo"
)

// OrderOutcome classifies one order's processing.
type OrderOutcome string

const (
	// OrderSuccess: every enabled document generated or legitimately skipped.
	OrderSuccess OrderOutcome = "success"
	// OrderPartialFailure: the shipping label failed but the invoice and
	// details are in place. Recorded; the order will not be retried.
	OrderPartialFailure OrderOutcome = "partial_failure"
	// OrderFailure: a required document failed. Not recorded, so the next
	// cycle retries the order from scratch.
	OrderFailure OrderOutcome = "failure"
)

// OrderResult is the full outcome of processing one order.
type OrderResult struct {
	OrderID     int64
	OrderNumber string
	Outcome     OrderOutcome
	FolderPath  string
	Invoice     document.Result
	Label       document.Result
	Details     document.Result
	Err         error
}

// Processor turns one fetched order into an order folder with documents
// and a state record. Safe for use from the cycle goroutine while config
// reloads swap the folder and document settings.
type Processor struct {
	store   state.Store
	invoice *document.InvoiceGenerator
	label   *document.LabelGenerator
	details *document.DetailsGenerator
	log     *zap.SugaredLogger

	mu     sync.RWMutex
	folder config.FolderConfig
	docs   config.DocumentsConfig
}

// NewProcessor wires the document generators to the state store.
func NewProcessor(store state.Store, invoice *document.InvoiceGenerator, label *document.LabelGenerator, details *document.DetailsGenerator, folder config.FolderConfig, docs config.DocumentsConfig, log *zap.SugaredLogger) *Processor {
	if log == nil {
		log = logger.Logger
	}
	return &Processor{
		store:   store,
		invoice: invoice,
		label:   label,
		details: details,
		folder:  folder,
		docs:    docs,
		log:     log,
	}
}

// UpdateConfig swaps folder and document settings, used by config reload.
func (p *Processor) UpdateConfig(folder config.FolderConfig, docs config.DocumentsConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.folder = folder
	p.docs = docs
}

// Process handles one order end to end. The caller has already established
// the order is new and passes the configured filters.
func (p *Processor) Process(ctx context.Context, order woo.Order) OrderResult {
	p.mu.RLock()
	folderCfg := p.folder
	docs := p.docs
	p.mu.RUnlock()

	res := OrderResult{OrderID: order.ID, OrderNumber: order.Number}

	folder, err := naming.EnsureFolder(folderCfg, naming.FolderSpec{
		OrderID:      order.ID,
		OrderNumber:  order.Number,
		CustomerName: order.CustomerName(),
		Created:      order.DateCreated.Time,
	}, p.log)
	if err != nil {
		res.Outcome = OrderFailure
		res.Err = errors.Wrapf(err, "preparing folder for order %s", order.Number)
		return res
	}
	res.FolderPath = folder

	if docs.Invoice {
		res.Invoice = p.invoice.Generate(ctx, order, folder)
	} else {
		res.Invoice = document.Result{Artifact: document.ArtifactInvoice, Outcome: document.OutcomeSkipped, Reason: "disabled in configuration"}
	}

	if docs.Label {
		res.Label = p.label.Generate(ctx, order, folder)
	} else {
		res.Label = document.Result{Artifact: document.ArtifactLabel, Outcome: document.OutcomeSkipped, Reason: "disabled in configuration"}
	}

	if docs.Details {
		res.Details = p.details.Generate(order, folder)
	} else {
		res.Details = document.Result{Artifact: document.ArtifactDetails, Outcome: document.OutcomeSkipped, Reason: "disabled in configuration"}
	}

	// The invoice and details are required; the label is best effort.
	switch {
	case res.Invoice.Outcome == document.OutcomeFailed:
		res.Outcome = OrderFailure
		res.Err = res.Invoice.Err
	case res.Details.Outcome == document.OutcomeFailed:
		res.Outcome = OrderFailure
		res.Err = res.Details.Err
	case res.Label.Outcome == document.OutcomeFailed:
		res.Outcome = OrderPartialFailure
	default:
		res.Outcome = OrderSuccess
	}

	if res.Outcome == OrderFailure {
		p.log.Errorw("Order processing failed, will retry next cycle",
			logger.FieldOrderNumber, order.Number,
			logger.FieldError, res.Err)
		return res
	}

	record := state.ProcessedRecord{
		OrderID:        order.ID,
		OrderNumber:    order.Number,
		ProcessedAt:    time.Now().UTC(),
		FolderPath:     folder,
		Outcome:        state.OutcomeSuccess,
		InvoiceOutcome: string(res.Invoice.Outcome),
		LabelOutcome:   string(res.Label.Outcome),
		DetailsOutcome: string(res.Details.Outcome),
	}
	if res.Outcome == OrderPartialFailure {
		record.Outcome = state.OutcomePartialFailure
	}

	if err := p.store.Record(record); err != nil {
		// An unrecorded order reprocesses next cycle; surface that as a
		// failure so the cycle stats don't overcount success.
		res.Outcome = OrderFailure
		res.Err = errors.Wrapf(err, "recording order %s", order.Number)
		return res
	}

	if res.Outcome == OrderPartialFailure {
		p.log.Warnw("Order processed without shipping label",
			logger.FieldOrderNumber, order.Number,
			logger.FieldPath, folder,
			logger.FieldError, res.Label.Err)
	} else {
		p.log.Infow("Order processed",
			logger.FieldOrderNumber, order.Number,
			logger.FieldPath, folder)
	}

	return res
}
