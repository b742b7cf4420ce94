package storage

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// CSVWriter writes raw (undeduplicated) catalog records to a CSV file, one row per
// record as it was streamed. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	rows   int
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "csv: create output dir")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "csv: create file %q", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"kind", "natural_key", "record", "scraped_at"}); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "csv: write header")
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends one record. The record itself is stored as JSON.
func (c *CSVWriter) WriteRaw(kind string, record RawRecord, scrapedAt time.Time) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "csv: encode %s record", kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write([]string{
		kind,
		record.Key(),
		string(payload),
		scrapedAt.Format(time.RFC3339),
	}); err != nil {
		return errors.Wrap(err, "csv: write row")
	}
	c.rows++
	return nil
}

// Rows returns how many records have been written.
func (c *CSVWriter) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return errors.Wrap(err, "csv: flush")
	}
	return c.file.Close()
}
