package state

import (
	"database/sql"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/db"
	"github.com/floriandheer/ordermon/errors"
)

// SQLiteStore persists processed-order records in the ordermon database.
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool
}

// OpenSQLiteStore opens (and migrates) the database at path.
func OpenSQLiteStore(path string, log *zap.SugaredLogger) (*SQLiteStore, error) {
	database, err := db.Open(path, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database, log); err != nil {
		database.Close()
		return nil, err
	}
	return &SQLiteStore{db: database, ownsDB: true}, nil
}

// NewSQLiteStore wraps an existing, already-migrated database handle.
// Close leaves the handle open; the caller owns it.
func NewSQLiteStore(database *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

// Contains reports whether the order was already processed.
func (s *SQLiteStore) Contains(orderID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM processed_orders WHERE order_id = ?",
		strconv.FormatInt(orderID, 10),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		if db.IsDatabaseClosed(err) {
			return false, db.ErrDatabaseClosed
		}
		return false, errors.Wrapf(err, "checking processed state for order %d", orderID)
	}
	return true, nil
}

// Record marks an order processed. Re-recording replaces the existing row.
func (s *SQLiteStore) Record(rec ProcessedRecord) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO processed_orders
			(order_id, order_number, processed_at, folder_path, outcome,
			 invoice_outcome, label_outcome, details_outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strconv.FormatInt(rec.OrderID, 10),
		rec.OrderNumber,
		rec.ProcessedAt.UTC().Format(time.RFC3339),
		rec.FolderPath,
		rec.Outcome,
		rec.InvoiceOutcome,
		rec.LabelOutcome,
		rec.DetailsOutcome,
	)
	if err != nil {
		if db.IsDatabaseClosed(err) {
			return db.ErrDatabaseClosed
		}
		return errors.Wrapf(err, "recording order %d", rec.OrderID)
	}
	return nil
}

// Snapshot returns all records ordered by processing time.
func (s *SQLiteStore) Snapshot() ([]ProcessedRecord, error) {
	rows, err := s.db.Query(`
		SELECT order_id, order_number, processed_at, folder_path, outcome,
		       invoice_outcome, label_outcome, details_outcome
		FROM processed_orders
		ORDER BY processed_at, order_id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying processed orders")
	}
	defer rows.Close()

	var records []ProcessedRecord
	for rows.Next() {
		var (
			rec         ProcessedRecord
			orderID     string
			processedAt string
		)
		if err := rows.Scan(&orderID, &rec.OrderNumber, &processedAt,
			&rec.FolderPath, &rec.Outcome,
			&rec.InvoiceOutcome, &rec.LabelOutcome, &rec.DetailsOutcome); err != nil {
			return nil, errors.Wrap(err, "scanning processed order row")
		}

		rec.OrderID, err = strconv.ParseInt(orderID, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "non-numeric order_id %q in state", orderID)
		}
		rec.ProcessedAt, err = time.Parse(time.RFC3339, processedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "bad processed_at %q in state", processedAt)
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating processed orders")
	}
	return records, nil
}

// Close closes the database if this store opened it.
func (s *SQLiteStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
