// Package naming turns order data into filesystem-safe output folders.
package naming

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/logger"
)

// markerFile inside each order folder records which order it belongs to,
// so a re-run can tell "same order, reuse" from "different order, collide".
const markerFile = ".order_id"

// collisionLimit caps suffix probing. Hitting it means something is wrong
// with the base directory, not that 100 distinct orders share a name.
const collisionLimit = 100

// unsafeChars are rejected by at least one of the filesystems order folders
// end up on (NTFS is the strictest).
const unsafeChars = `<>:"/\|?*`

// Sanitize makes a name safe for use as a single path element. Unsafe and
// control characters become underscores, whitespace runs collapse to one
// space, and trailing dots and spaces are trimmed.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case strings.ContainsRune(unsafeChars, r):
			b.WriteRune('_')
		// Tabs and newlines are both control characters and whitespace;
		// they collapse as whitespace, so this case goes first.
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	s := strings.Join(strings.Fields(b.String()), " ")
	s = strings.TrimRight(s, ". ")
	return s
}

// FolderSpec carries the order fields folder naming draws from.
type FolderSpec struct {
	OrderID      int64
	OrderNumber  string
	CustomerName string
	Created      time.Time
}

// FolderName renders the configured template for an order. The result is a
// single sanitized path element, truncated to the configured rune limit.
func FolderName(cfg config.FolderConfig, spec FolderSpec) string {
	customer := Sanitize(spec.CustomerName)
	if customer == "" {
		customer = "Unknown"
	}

	name := cfg.Template
	name = strings.ReplaceAll(name, "{order_number}", Sanitize(spec.OrderNumber))
	name = strings.ReplaceAll(name, "{customer_name}", customer)
	name = strings.ReplaceAll(name, "{order_id}", strconv.FormatInt(spec.OrderID, 10))
	name = Sanitize(name)

	if name == "" {
		name = "Order_" + strconv.FormatInt(spec.OrderID, 10)
	}

	if cfg.DatePrefix {
		date := spec.Created
		if date.IsZero() {
			date = time.Now()
		}
		name = date.Format("2006-01-02") + "_" + name
	}

	if runes := []rune(name); len(runes) > cfg.MaxNameLength {
		name = strings.TrimRight(string(runes[:cfg.MaxNameLength]), ". ")
	}

	return name
}

// EnsureFolder creates (or finds) the output folder for an order under the
// base directory and returns its path.
//
// A folder whose marker matches the order id is reused; one belonging to a
// different order gets a numeric suffix probe (_2, _3, ...). A folder with
// no marker at all predates this tool or was made by hand, so it is never
// reused silently.
func EnsureFolder(cfg config.FolderConfig, spec FolderSpec, log *zap.SugaredLogger) (string, error) {
	if log == nil {
		log = logger.Logger
	}

	base := FolderName(cfg, spec)
	want := strconv.FormatInt(spec.OrderID, 10)

	for i := 1; i <= collisionLimit; i++ {
		name := base
		if i > 1 {
			name = base + "_" + strconv.Itoa(i)
		}
		path := filepath.Join(cfg.BaseDir, name)

		info, err := os.Stat(path)
		switch {
		case os.IsNotExist(err):
			if err := os.MkdirAll(path, 0755); err != nil {
				return "", errors.Wrapf(err, "creating order folder %s", path)
			}
			if err := os.WriteFile(filepath.Join(path, markerFile), []byte(want+"\n"), 0644); err != nil {
				return "", errors.Wrapf(err, "writing order marker in %s", path)
			}
			return path, nil

		case err != nil:
			return "", errors.Wrapf(err, "checking order folder %s", path)

		case !info.IsDir():
			// A plain file squatting on the name; probe the next suffix.
			continue
		}

		marker, err := os.ReadFile(filepath.Join(path, markerFile))
		if err == nil && strings.TrimSpace(string(marker)) == want {
			return path, nil
		}

		log.Debugw("Folder name collision, probing suffix",
			logger.FieldPath, path,
			logger.FieldOrderID, spec.OrderID)
	}

	return "", errors.Newf("could not find a free folder name for order %d under %s after %d attempts",
		spec.OrderID, cfg.BaseDir, collisionLimit)
}
