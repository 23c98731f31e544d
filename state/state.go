package state

import (
	"time"

	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/errors"
)

// Cycle outcomes recorded per order. Only these two are ever persisted;
// an order whose cycle failed outright is left unrecorded so the next
// cycle retries it.
const (
	OutcomeSuccess        = "success"
	OutcomePartialFailure = "partial_failure"
)

// ProcessedRecord is one order's processing history.
type ProcessedRecord struct {
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	ProcessedAt time.Time `json:"processed_at"`
	FolderPath  string    `json:"folder_path"`
	Outcome     string    `json:"outcome"`

	// Per-document outcomes: "generated", "skipped" or "failed".
	InvoiceOutcome string `json:"invoice_outcome,omitempty"`
	LabelOutcome   string `json:"label_outcome,omitempty"`
	DetailsOutcome string `json:"details_outcome,omitempty"`
}

// Store persists which orders have already been handled. Implementations
// must survive process restarts; losing this state reprocesses every order
// in the lookback window.
type Store interface {
	// Contains reports whether the order was already processed.
	Contains(orderID int64) (bool, error)
	// Record marks an order processed. Recording the same order again
	// replaces the previous record.
	Record(rec ProcessedRecord) error
	// Snapshot returns all records, oldest first.
	Snapshot() ([]ProcessedRecord, error)
	Close() error
}

// OpenStore builds the configured state backend.
func OpenStore(cfg config.MonitorConfig, log *zap.SugaredLogger) (Store, error) {
	switch cfg.StateBackend {
	case "file":
		return OpenFileStore(cfg.StatePath, log)
	case "sqlite":
		return OpenSQLiteStore(cfg.StatePath, log)
	default:
		return nil, errors.Newf("unknown state backend %q", cfg.StateBackend)
	}
}
