package services

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/mock"

	"classconnect-scraper/models"
	"classconnect-scraper/scraper/registration"
	"classconnect-scraper/storage"
)

var discovered = time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)

// fakeCatalog replays fixed feeds the way the registration client does: ErrStop ends a
// walk cleanly and any other callback error aborts it.
type fakeCatalog struct {
	sections []models.CourseRecord
	subjects []models.SubjectRecord
	terms    []models.TermRecord
	err      error
	stall    bool

	mu       sync.Mutex
	calls    []string
	termArgs []string
}

func (f *fakeCatalog) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCatalog) ForEachSection(ctx context.Context, term string, fn func(models.CourseRecord, time.Time) error) error {
	f.record("sections")
	f.mu.Lock()
	f.termArgs = append(f.termArgs, term)
	f.mu.Unlock()
	return replay(ctx, f, f.sections, fn)
}

func (f *fakeCatalog) ForEachSubject(ctx context.Context, fn func(models.SubjectRecord, time.Time) error) error {
	f.record("subjects")
	return replay(ctx, f, f.subjects, fn)
}

func (f *fakeCatalog) ForEachTerm(ctx context.Context, fn func(models.TermRecord, time.Time) error) error {
	f.record("terms")
	return replay(ctx, f, f.terms, fn)
}

func replay[R any](ctx context.Context, f *fakeCatalog, feed []R, fn func(R, time.Time) error) error {
	for _, rec := range feed {
		if err := fn(rec, discovered); err != nil {
			if errors.Is(err, registration.ErrStop) {
				return nil
			}
			return err
		}
	}
	if f.stall {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Create(ctx context.Context, collection string, record models.Canonical) error {
	args := m.Called(ctx, collection, record)
	return args.Error(0)
}

func (m *mockWriter) Count(ctx context.Context, collection string) (int, error) {
	args := m.Called(ctx, collection)
	return args.Int(0), args.Error(1)
}

// recordingWriter keeps every created record with the time its create started.
type recordingWriter struct {
	mu      sync.Mutex
	ids     []string
	started map[string]time.Time
	failIDs map[string]error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{started: map[string]time.Time{}, failIDs: map[string]error{}}
}

func (w *recordingWriter) Create(_ context.Context, _ string, record models.Canonical) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ids = append(w.ids, record.RecordID())
	w.started[record.RecordID()] = time.Now()
	return w.failIDs[record.RecordID()]
}

func (w *recordingWriter) created() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.ids...)
}

type memoryRaw struct {
	rows []string
}

func (m *memoryRaw) WriteRaw(kind string, record storage.RawRecord, _ time.Time) error {
	m.rows = append(m.rows, kind+":"+record.Key())
	return nil
}

func (m *memoryRaw) Close() error { return nil }

func courses(names ...string) []models.Canonical {
	out := make([]models.Canonical, len(names))
	for i, n := range names {
		out[i] = models.Course{ID: idFor(i), Subject: "CS", Abbreviation: n, Name: n}
	}
	return out
}

func idFor(i int) string {
	return "record" + string(rune('a'+i)) + "00000000"
}
