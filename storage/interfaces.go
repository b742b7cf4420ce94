package storage

import (
	"context"
	"time"

	"classconnect-scraper/models"
)

// RecordWriter is the interface any persistence backend must satisfy. Create makes
// exactly one request and never retries.
type RecordWriter interface {
	Create(ctx context.Context, collection string, record models.Canonical) error
}

// Counter is implemented by backends that can report a collection's size.
type Counter interface {
	Count(ctx context.Context, collection string) (int, error)
}

// RawRecord is any record streamed by the registration system.
type RawRecord interface {
	Key() string
}

// RawRecordWriter is the interface for persisting unprocessed scraped data.
type RawRecordWriter interface {
	WriteRaw(kind string, record RawRecord, scrapedAt time.Time) error
	Close() error
}
