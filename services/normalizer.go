package services

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"classconnect-scraper/config"
	"classconnect-scraper/models"
	"classconnect-scraper/utils"
)

// Keyed is a raw record with a natural key.
type Keyed interface {
	Key() string
}

// Normalizer turns raw feed records into the ordered, limited canonical list.
type Normalizer struct {
	logger *utils.Logger
	lang   language.Tag
}

// NewNormalizer creates a Normalizer that orders names by English collation rules.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger, lang: language.English}
}

// Dedupe keeps the first record seen for each natural key, in first-seen order.
func Dedupe[R Keyed](n *Normalizer, raw []R) []R {
	seen := utils.NewKeySet()
	out := make([]R, 0, len(raw))
	for _, r := range raw {
		if !seen.Add(r.Key()) {
			n.logger.Debug("[normalizer] Duplicate key skipped: %s", r.Key())
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortByName orders records by display name. Equal names keep their relative order.
func SortByName[C models.Canonical](n *Normalizer, records []C) {
	col := collate.New(n.lang)
	keys := make([][]byte, len(records))
	var buf collate.Buffer
	for i, r := range records {
		keys[i] = append([]byte(nil), col.KeyFromString(&buf, r.DisplayName())...)
		buf.Reset()
	}

	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return string(keys[idx[a]]) < string(keys[idx[b]])
	})

	sorted := make([]C, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	copy(records, sorted)
}

// Limit truncates records to limit entries. config.Unlimited keeps everything.
func Limit[C any](records []C, limit int) []C {
	if limit == config.Unlimited || limit >= len(records) {
		return records
	}
	if limit < 0 {
		limit = 0
	}
	return records[:limit]
}

// Normalize runs dedup, identifier assignment, sort and limit in that order. The limit
// applies after sorting, so the result is the alphabetically first records.
func Normalize[R Keyed, C models.Canonical](n *Normalizer, raw []R, toCanonical func(R) (C, error), limit int) ([]C, error) {
	unique := Dedupe(n, raw)

	records := make([]C, 0, len(unique))
	for _, r := range unique {
		c, err := toCanonical(r)
		if err != nil {
			return nil, err
		}
		records = append(records, c)
	}

	SortByName(n, records)
	records = Limit(records, limit)

	n.logger.Info("[normalizer] Normalised %d → %d records (duplicates %d)",
		len(raw), len(records), len(raw)-len(unique))
	return records, nil
}

// CourseFromRecord builds a canonical course with a fresh identifier.
func CourseFromRecord(r models.CourseRecord) (models.Course, error) {
	id, err := NewID()
	if err != nil {
		return models.Course{}, err
	}
	return models.Course{
		ID:           id,
		Subject:      models.NormaliseText(r.Subject),
		Abbreviation: models.NormaliseText(r.Abbreviation),
		Name:         models.NormaliseText(r.Name),
	}, nil
}

// SubjectFromRecord builds a canonical subject keyed by its registration code.
func SubjectFromRecord(r models.SubjectRecord) (models.Subject, error) {
	ext := models.NormaliseText(r.ID)
	id, err := PadID(ext)
	if err != nil {
		return models.Subject{}, err
	}
	return models.Subject{ID: id, Name: models.NormaliseText(r.Name), ExternalID: ext}, nil
}

// TermFromRecord builds a canonical term keyed by its registration code.
func TermFromRecord(r models.TermRecord) (models.Term, error) {
	ext := models.NormaliseText(r.ID)
	id, err := PadID(ext)
	if err != nil {
		return models.Term{}, err
	}
	return models.Term{ID: id, Title: models.NormaliseText(r.Title), ExternalID: ext}, nil
}
