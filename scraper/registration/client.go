package registration

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"classconnect-scraper/models"
	"classconnect-scraper/utils"
)

const (
	inputPath  = "/SearchClasses!input.action"
	searchPath = "/SearchClasses!search.action"
)

// ErrStop may be returned by a callback to end a walk early without error.
var ErrStop = errors.New("registration: stop")

// Client walks the registration system's catalog. Each ForEach method calls fn once per
// record as it is discovered, together with the discovery time, and returns once the
// walk is over: the feed is exhausted, fn returned ErrStop, or an error occurred.
type Client struct {
	loader   PageLoader
	maxPages int
	logger   *utils.Logger
	now      func() time.Time
}

// NewClient creates a Client. maxPages bounds a section walk; zero or less means 500.
func NewClient(loader PageLoader, maxPages int, logger *utils.Logger) *Client {
	if maxPages <= 0 {
		maxPages = 500
	}
	return &Client{
		loader:   loader,
		maxPages: maxPages,
		logger:   logger,
		now:      time.Now,
	}
}

// ForEachTerm streams the terms offered on the search form.
func (c *Client) ForEachTerm(ctx context.Context, fn func(models.TermRecord, time.Time) error) error {
	doc, err := c.loader.Load(ctx, inputPath, nil)
	if err != nil {
		return errors.Wrap(err, "registration: load terms")
	}

	for _, term := range parseTerms(doc) {
		if err := fn(term, c.now()); err != nil {
			return stopOrErr(err)
		}
	}
	return nil
}

// ForEachSubject streams the subject areas offered on the search form.
func (c *Client) ForEachSubject(ctx context.Context, fn func(models.SubjectRecord, time.Time) error) error {
	doc, err := c.loader.Load(ctx, inputPath, nil)
	if err != nil {
		return errors.Wrap(err, "registration: load subjects")
	}

	for _, subject := range parseSubjects(doc) {
		if err := fn(subject, c.now()); err != nil {
			return stopOrErr(err)
		}
	}
	return nil
}

// ForEachSection streams one course record per section offered in term, page by page.
// A course with several sections is reported several times.
func (c *Client) ForEachSection(ctx context.Context, term string, fn func(models.CourseRecord, time.Time) error) error {
	query := url.Values{}
	query.Set("selectedTermCode", term)
	query.Set("keywords", "")

	for page := 1; page <= c.maxPages; page++ {
		query.Set("page", strconv.Itoa(page))

		doc, err := c.loader.Load(ctx, searchPath, query)
		if err != nil {
			return errors.Wrapf(err, "registration: load sections for term %s, page %d", term, page)
		}

		courses, hasNext := parseSections(doc)
		c.logger.Debug("[registration] Term %s page %d: %d sections", term, page, len(courses))

		for _, course := range courses {
			if err := fn(course, c.now()); err != nil {
				return stopOrErr(err)
			}
		}

		if len(courses) == 0 || !hasNext {
			return nil
		}
	}

	c.logger.Warn("[registration] Stopped term %s after %d pages; raise REGISTRATION_MAX_PAGES to read further",
		term, c.maxPages)
	return nil
}

func stopOrErr(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}
