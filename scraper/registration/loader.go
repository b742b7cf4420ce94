package registration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"classconnect-scraper/utils"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// PageLoader fetches one registration page and parses it as HTML.
type PageLoader interface {
	Load(ctx context.Context, path string, query url.Values) (*goquery.Document, error)
}

// LoaderOptions configures an HTTPLoader.
type LoaderOptions struct {
	Timeout time.Duration
	// RPS caps page requests per second; zero disables the cap.
	RPS   float64
	Retry *utils.RetryConfig
}

// HTTPLoader loads pages over plain HTTP.
type HTTPLoader struct {
	http  *resty.Client
	retry *utils.RetryConfig
}

// NewHTTPLoader creates a loader rooted at baseURL. The session cookie the site hands
// out on the first request is kept for the rest of the run.
func NewHTTPLoader(baseURL string, opts LoaderOptions) (*HTTPLoader, error) {
	httpClient := resty.New()
	httpClient.SetBaseURL(baseURL)
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}
	httpClient.SetHeader("User-Agent", userAgent)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "registration: cookie jar")
	}
	httpClient.SetCookieJar(jar)

	if opts.RPS > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RPS), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	retry := opts.Retry
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}

	return &HTTPLoader{http: httpClient, retry: retry}, nil
}

// Load implements PageLoader. 4xx responses other than 429 are not retried.
func (l *HTTPLoader) Load(ctx context.Context, path string, query url.Values) (*goquery.Document, error) {
	var doc *goquery.Document

	err := l.retry.Do(ctx, "load "+path, func() error {
		res, err := l.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(query).
			Get(path)
		if err != nil {
			return err
		}

		if res.IsError() {
			statusErr := errors.Newf("unexpected status %d from %s", res.StatusCode(), res.Request.URL)
			if res.StatusCode() == http.StatusTooManyRequests || res.StatusCode() >= 500 {
				return statusErr
			}
			return utils.Permanent(statusErr)
		}

		parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
		if err != nil {
			return utils.Permanent(errors.Wrap(err, "parse html"))
		}
		doc = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
