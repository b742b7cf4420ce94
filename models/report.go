package models

import "time"

// PersistResult is the outcome of creating a single record.
type PersistResult struct {
	Index      int    `json:"index"`
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Err        error  `json:"-"`
	Error      string `json:"error,omitempty"`
}

// OK reports whether the record was created.
func (r PersistResult) OK() bool { return r.Err == nil }

// PersistReport summarises a bulk persistence run. Results are in submission order.
type PersistReport struct {
	RunID      string          `json:"runId"`
	Collection string          `json:"collection"`
	Attempted  int             `json:"attempted"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Results    []PersistResult `json:"results"`
	Started    time.Time       `json:"started"`
	Finished   time.Time       `json:"finished"`
}

// Failures returns the failed results in submission order.
func (r *PersistReport) Failures() []PersistResult {
	if r == nil {
		return nil
	}
	var failed []PersistResult
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// RunSummary is the human-readable digest of a pipeline run.
type RunSummary struct {
	Function       string
	TotalRecords   int
	Saved          bool
	Report         *PersistReport
	RecordsByGroup map[string]int
	Duration       time.Duration
}
