package services

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"classconnect-scraper/models"
	"classconnect-scraper/storage"
	"classconnect-scraper/utils"
)

// ErrPartialFailure marks a persistence run in which at least one record failed.
// Records created before or after the failure stay persisted.
var ErrPartialFailure = errors.New("persist: one or more records failed")

// PersisterOptions tunes pacing and parallelism of a bulk load.
type PersisterOptions struct {
	// Interval between consecutive submissions. Ignored when Limiter is set.
	Interval       time.Duration
	MaxConcurrency int
	// Limiter overrides the per-run token bucket built from Interval.
	Limiter utils.Limiter
}

// Persister bulk-creates canonical records, one request per record and no retries.
type Persister struct {
	writer storage.RecordWriter
	opts   PersisterOptions
	logger *utils.Logger
	now    func() time.Time
}

// NewPersister creates a Persister writing through writer.
func NewPersister(writer storage.RecordWriter, opts PersisterOptions, logger *utils.Logger) *Persister {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	return &Persister{writer: writer, opts: opts, logger: logger, now: time.Now}
}

// Persist submits records in order, each submission waiting its turn on the limiter, and
// lets the creates complete in any order. Every attempted record gets a result at its own
// index. The error wraps ErrPartialFailure and every per-record error when any create
// failed, or ctx's error when the run was cut short; the report is returned either way.
func (p *Persister) Persist(ctx context.Context, collection string, records []models.Canonical) (*models.PersistReport, error) {
	report := &models.PersistReport{
		RunID:      uuid.New().String(),
		Collection: collection,
		Started:    p.now(),
	}

	limiter := p.opts.Limiter
	pacing := "custom limiter"
	if limiter == nil {
		limiter = utils.NewIntervalLimiter(p.opts.Interval)
		pacing = "interval " + p.opts.Interval.String()
		if p.opts.Interval <= 0 {
			pacing = "unpaced"
		}
	}
	pool := utils.NewWorkerPool(p.opts.MaxConcurrency, limiter)

	p.logger.Info("[persister] Run %s: creating %d %s records (%s, concurrency %d)",
		report.RunID, len(records), collection, pacing, p.opts.MaxConcurrency)

	results := make([]models.PersistResult, len(records))
	var submitErr error
	for i, rec := range records {
		i, rec := i, rec // per-iteration copies; go.mod targets go1.21 loop semantics
		err := pool.Submit(ctx, func() {
			results[i] = p.create(ctx, collection, i, rec)
		})
		if err != nil {
			submitErr = err
			break
		}
		report.Attempted++
	}
	pool.Wait()

	report.Results = results[:report.Attempted]
	report.Finished = p.now()

	var failures []error
	for _, res := range report.Results {
		if res.OK() {
			report.Succeeded++
			continue
		}
		report.Failed++
		failures = append(failures, res.Err)
	}

	p.logger.Info("[persister] Run %s: %d attempted, %d created, %d failed in %s",
		report.RunID, report.Attempted, report.Succeeded, report.Failed,
		report.Finished.Sub(report.Started).Round(time.Millisecond))

	if submitErr != nil {
		return report, errors.Wrapf(submitErr, "persist %s: stopped after %d of %d records",
			collection, report.Attempted, len(records))
	}
	if len(failures) > 0 {
		err := errors.Wrapf(errors.Join(failures...), "persist %s: %d of %d records failed",
			collection, report.Failed, report.Attempted)
		return report, errors.Mark(err, ErrPartialFailure)
	}
	return report, nil
}

func (p *Persister) create(ctx context.Context, collection string, index int, rec models.Canonical) models.PersistResult {
	res := models.PersistResult{Index: index, ID: rec.RecordID(), Collection: collection}
	if err := p.writer.Create(ctx, collection, rec); err != nil {
		res.Err = err
		res.Error = err.Error()
		p.logger.Error("[persister] Create %s #%d %q (%s) failed: %+v",
			collection, index, rec.DisplayName(), rec.RecordID(), err)
		return res
	}
	p.logger.Debug("[persister] Created %s #%d %q (%s)", collection, index, rec.DisplayName(), rec.RecordID())
	return res
}
