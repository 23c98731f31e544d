package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/logger"
)

const fileStoreVersion = 1

// fileStoreDoc is the on-disk layout. Records are keyed by decimal order id.
type fileStoreDoc struct {
	Version int                        `json:"version"`
	Orders  map[string]ProcessedRecord `json:"orders"`
}

// FileStore keeps processed-order records in a single JSON file. Every
// Record call rewrites the file through a temp file and rename, so a crash
// mid-write leaves the previous state intact rather than a truncated file.
type FileStore struct {
	path string
	log  *zap.SugaredLogger

	mu      sync.RWMutex
	records map[int64]ProcessedRecord
}

// OpenFileStore loads (or initializes) the JSON state file at path.
// An unreadable file is moved aside and the store starts empty; reprocessing
// a window of orders beats refusing to start.
func OpenFileStore(path string, log *zap.SugaredLogger) (*FileStore, error) {
	if log == nil {
		log = logger.Logger
	}

	fs := &FileStore{
		path:    path,
		log:     log,
		records: make(map[int64]ProcessedRecord),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading state file %s", path)
	}

	var doc fileStoreDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		backup := fmt.Sprintf("%s.corrupt-%s", path, time.Now().Format("20060102-150405"))
		if renameErr := os.Rename(path, backup); renameErr != nil {
			return nil, errors.Wrapf(renameErr, "state file %s is corrupt and could not be moved aside", path)
		}
		log.Errorw("State file is corrupt, starting with empty state",
			logger.FieldPath, path,
			"backup", backup,
			logger.FieldError, err)
		return fs, nil
	}

	for key, rec := range doc.Orders {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			log.Warnw("Skipping state record with non-numeric order id",
				"key", key)
			continue
		}
		if rec.OrderID == 0 {
			rec.OrderID = id
		}
		fs.records[id] = rec
	}

	return fs, nil
}

// Contains reports whether the order was already processed.
func (fs *FileStore) Contains(orderID int64) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.records[orderID]
	return ok, nil
}

// Record marks an order processed and persists the full state atomically.
func (fs *FileStore) Record(rec ProcessedRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.records[rec.OrderID] = rec
	if err := fs.persistLocked(); err != nil {
		// Roll back the in-memory entry so memory and disk agree.
		delete(fs.records, rec.OrderID)
		return err
	}
	return nil
}

// Snapshot returns all records ordered by processing time.
func (fs *FileStore) Snapshot() ([]ProcessedRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]ProcessedRecord, 0, len(fs.records))
	for _, rec := range fs.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProcessedAt.Equal(out[j].ProcessedAt) {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].ProcessedAt.Before(out[j].ProcessedAt)
	})
	return out, nil
}

// Close is a no-op for the file backend; state is flushed on every Record.
func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) persistLocked() error {
	doc := fileStoreDoc{
		Version: fileStoreVersion,
		Orders:  make(map[string]ProcessedRecord, len(fs.records)),
	}
	for id, rec := range fs.records {
		doc.Orders[strconv.FormatInt(id, 10)] = rec
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding state")
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp state file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "writing temp state file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "closing temp state file")
	}

	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "replacing state file")
	}
	return nil
}
