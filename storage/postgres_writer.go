package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"

	"classconnect-scraper/models"
)

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// PostgresWriter mirrors canonical records into a local PostgreSQL database, one row
// per record, keyed by collection and stable identifier.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: open")
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			err = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, errors.WithHint(errors.Wrap(err, "postgres: ping failed after retries"),
			"check POSTGRES_DSN and that the database is running")
	}

	return NewPostgresWriterFromDB(ctx, db)
}

// NewPostgresWriterFromDB wraps an open database handle and runs migrations. It takes
// ownership of db and closes it if migrations fail.
func NewPostgresWriterFromDB(ctx context.Context, db *sql.DB) (*PostgresWriter, error) {
	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "postgres: migrate")
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS catalog_records (
			collection  VARCHAR(50)  NOT NULL,
			id          CHAR(15)     NOT NULL,
			payload     JSONB        NOT NULL,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		);

		CREATE INDEX IF NOT EXISTS idx_catalog_records_collection ON catalog_records(collection);
	`)
	return err
}

// Create implements RecordWriter. A duplicate identifier fails like it does on the
// hosted backend; nothing is upserted.
func (pw *PostgresWriter) Create(ctx context.Context, collection string, record models.Canonical) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "postgres: encode %s/%s", collection, record.RecordID())
	}

	_, err = pw.db.ExecContext(ctx,
		`INSERT INTO catalog_records (collection, id, payload) VALUES ($1, $2, $3)`,
		collection, record.RecordID(), payload,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return errors.WithHint(
				errors.Wrapf(err, "postgres: create %s/%s", collection, record.RecordID()),
				"the record already exists; --save is not idempotent, use --offset to skip persisted courses",
			)
		}
		return errors.Wrapf(err, "postgres: create %s/%s", collection, record.RecordID())
	}
	return nil
}

// Count implements Counter.
func (pw *PostgresWriter) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := pw.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM catalog_records WHERE collection = $1`, collection,
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "postgres: count %s", collection)
	}
	return n, nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
