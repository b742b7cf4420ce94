package services

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"classconnect-scraper/config"
	"classconnect-scraper/models"
	"classconnect-scraper/storage"
	"classconnect-scraper/utils"
)

// Catalog is the push-style registration feed. *registration.Client implements it.
type Catalog interface {
	ForEachSection(ctx context.Context, term string, fn func(models.CourseRecord, time.Time) error) error
	ForEachSubject(ctx context.Context, fn func(models.SubjectRecord, time.Time) error) error
	ForEachTerm(ctx context.Context, fn func(models.TermRecord, time.Time) error) error
}

// Result is what one pipeline run produces.
type Result struct {
	Function string                `json:"function"`
	Records  []models.Canonical    `json:"records"`
	Report   *models.PersistReport `json:"report,omitempty"`
}

// Pipeline describes one selectable catalog pipeline.
type Pipeline struct {
	Name        string
	Collection  string
	Description string
	run         func(ctx context.Context, r *Runner, p Pipeline, cfg config.ScraperConfig) (*Result, error)
}

// Pipelines is the closed set of selectable functions, in display order.
var Pipelines = []Pipeline{
	{
		Name:        config.FunctionCourses,
		Collection:  "courses",
		Description: "Courses offered in --term, one per subject and number; --save persists the --offset/--batchSize window",
		run:         runCourses,
	},
	{
		Name:        config.FunctionSubjects,
		Collection:  "subjects",
		Description: "Subject areas from the class search form",
		run:         runSubjects,
	},
	{
		Name:        config.FunctionTerms,
		Collection:  "terms",
		Description: "Academic terms from the class search form",
		run:         runTerms,
	},
}

// LookupPipeline finds a pipeline by its function name.
func LookupPipeline(name string) (Pipeline, bool) {
	for _, p := range Pipelines {
		if p.Name == name {
			return p, true
		}
	}
	return Pipeline{}, false
}

// Runner wires the catalog feed to the normalizer and an optional sink.
type Runner struct {
	catalog    Catalog
	normalizer *Normalizer
	persister  *Persister
	counter    storage.Counter
	raw        storage.RawRecordWriter
	logger     *utils.Logger
}

// RunnerOptions holds the optional collaborators of a Runner.
type RunnerOptions struct {
	// Persister is required when the run saves.
	Persister *Persister
	// Counter, when set, reports collection sizes after a save.
	Counter storage.Counter
	// Raw, when set, receives every record as streamed, duplicates included.
	Raw storage.RawRecordWriter
}

// NewRunner creates a Runner reading from catalog.
func NewRunner(catalog Catalog, opts RunnerOptions, logger *utils.Logger) *Runner {
	return &Runner{
		catalog:    catalog,
		normalizer: NewNormalizer(logger),
		persister:  opts.Persister,
		counter:    opts.Counter,
		raw:        opts.Raw,
		logger:     logger,
	}
}

// Run executes the pipeline cfg.Function selects. Configuration errors are returned before
// anything is fetched. A failed persistence still returns the Result with its report.
func (r *Runner) Run(ctx context.Context, cfg config.ScraperConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, ok := LookupPipeline(cfg.Function)
	if !ok {
		return nil, errors.Wrapf(config.ErrFunctionNotFound, "function %q", cfg.Function)
	}
	if cfg.Save && r.persister == nil {
		return nil, errors.New("save requested but no sink is configured")
	}

	r.logger.Info("[pipeline] Running %s (save=%t limit=%d)", p.Name, cfg.Save, cfg.Limit)
	return p.run(ctx, r, p, cfg)
}

func runCourses(ctx context.Context, r *Runner, p Pipeline, cfg config.ScraperConfig) (*Result, error) {
	source := func(ctx context.Context, fn func(models.CourseRecord, time.Time) error) error {
		return r.catalog.ForEachSection(ctx, cfg.Term, fn)
	}
	window := func(records []models.Course) []models.Course {
		return BatchWindow(records, cfg.Offset, cfg.BatchSize)
	}
	return runPipeline(ctx, r, p, cfg, source, CourseFromRecord, window)
}

func runSubjects(ctx context.Context, r *Runner, p Pipeline, cfg config.ScraperConfig) (*Result, error) {
	return runPipeline(ctx, r, p, cfg, r.catalog.ForEachSubject, SubjectFromRecord, nil)
}

func runTerms(ctx context.Context, r *Runner, p Pipeline, cfg config.ScraperConfig) (*Result, error) {
	return runPipeline(ctx, r, p, cfg, r.catalog.ForEachTerm, TermFromRecord, nil)
}

func runPipeline[R Keyed, C models.Canonical](
	ctx context.Context,
	r *Runner,
	p Pipeline,
	cfg config.ScraperConfig,
	source Source[R],
	toCanonical func(R) (C, error),
	window func([]C) []C,
) (*Result, error) {
	name := p.Name

	var tap func(R, time.Time) error
	if r.raw != nil {
		tap = func(rec R, discoveredAt time.Time) error {
			return r.raw.WriteRaw(name, rec, discoveredAt)
		}
	}

	raw, err := Collect(ctx, source, cfg.FetchCap, tap)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}
	r.logger.Info("[pipeline] Fetched %d raw %s records", len(raw), name)

	records, err := Normalize(r.normalizer, raw, toCanonical, cfg.Limit)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}

	result := &Result{Function: name, Records: asCanonical(records)}
	if !cfg.Save {
		return result, nil
	}

	toSave := records
	if window != nil {
		toSave = window(records)
		r.logger.Info("[pipeline] Saving window offset=%d size=%d: %d of %d records",
			cfg.Offset, cfg.BatchSize, len(toSave), len(records))
	}

	report, err := r.persister.Persist(ctx, p.Collection, asCanonical(toSave))
	result.Report = report
	if err != nil {
		return result, errors.Wrapf(err, "%s", name)
	}

	if r.counter != nil {
		if n, err := r.counter.Count(ctx, p.Collection); err != nil {
			r.logger.Warn("[pipeline] Could not count %s: %v", p.Collection, err)
		} else {
			r.logger.Info("[pipeline] Collection %s now holds %d records", p.Collection, n)
		}
	}
	return result, nil
}

// BatchWindow returns records[offset:offset+size], clamped to the slice bounds.
func BatchWindow[C any](records []C, offset, size int) []C {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) || size <= 0 {
		return records[:0]
	}
	end := offset + size
	if end > len(records) || end < offset {
		end = len(records)
	}
	return records[offset:end]
}

func asCanonical[C models.Canonical](records []C) []models.Canonical {
	out := make([]models.Canonical, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}
