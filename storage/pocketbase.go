package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"

	"classconnect-scraper/models"
	"classconnect-scraper/utils"
)

const credentialsHint = "set POCKETBASE_URL, POCKETBASE_USERNAME and POCKETBASE_PASSWORD in the environment or .env"

// FieldError is one entry of a PocketBase validation error.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is the error body PocketBase returns for non-2xx responses.
type APIError struct {
	Status  int                   `json:"-"`
	Code    int                   `json:"code"`
	Message string                `json:"message"`
	Data    map[string]FieldError `json:"data"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pocketbase: %d %s", e.Status, e.Message)

	fields := make([]string, 0, len(e.Data))
	for name := range e.Data {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	for _, name := range fields {
		fe := e.Data[name]
		fmt.Fprintf(&b, "; %s: %s (%s)", name, fe.Code, fe.Message)
	}
	return b.String()
}

// PocketBaseClient talks to the hosted PocketBase REST API. Authenticate once, then
// share it for the whole run.
type PocketBaseClient struct {
	http   *resty.Client
	logger *utils.Logger
	token  string
}

// NewPocketBaseClient creates an unauthenticated client for baseURL.
func NewPocketBaseClient(baseURL string, timeout time.Duration, logger *utils.Logger) *PocketBaseClient {
	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimRight(baseURL, "/"))
	if timeout > 0 {
		httpClient.SetTimeout(timeout)
	}
	httpClient.SetHeader("Content-Type", "application/json")

	return &PocketBaseClient{http: httpClient, logger: logger}
}

type authRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Authenticate signs in against an auth collection ("_superusers" for admins) and keeps
// the token for later requests. Credentials are not checked before the request is made.
func (c *PocketBaseClient) Authenticate(ctx context.Context, authCollection, identity, password string) error {
	if c.http.BaseURL == "" {
		return errors.WithHint(errors.New("pocketbase: no URL configured"), credentialsHint)
	}

	var out authResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("collection", authCollection).
		SetBody(authRequest{Identity: identity, Password: password}).
		SetResult(&out).
		SetError(&APIError{}).
		Post("/api/collections/{collection}/auth-with-password")
	if err != nil {
		return errors.WithHint(errors.Wrap(err, "pocketbase: authenticate"), credentialsHint)
	}
	if res.IsError() {
		return errors.WithHint(errors.Wrap(apiError(res), "pocketbase: authenticate"), credentialsHint)
	}
	if out.Token == "" {
		return errors.New("pocketbase: authenticate: response carried no token")
	}

	c.token = out.Token
	c.http.SetHeader("Authorization", out.Token)
	c.logger.Info("[pocketbase] Authenticated as %s against %s", identity, authCollection)
	return nil
}

// Create implements RecordWriter.
func (c *PocketBaseClient) Create(ctx context.Context, collection string, record models.Canonical) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		SetBody(record).
		SetError(&APIError{}).
		Post("/api/collections/{collection}/records")
	if err != nil {
		return errors.Wrapf(err, "pocketbase: create %s/%s", collection, record.RecordID())
	}
	if res.IsError() {
		return errors.Wrapf(apiError(res), "pocketbase: create %s/%s", collection, record.RecordID())
	}
	return nil
}

type listResponse struct {
	TotalItems int `json:"totalItems"`
}

// Count implements Counter.
func (c *PocketBaseClient) Count(ctx context.Context, collection string) (int, error) {
	var out listResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		SetQueryParam("perPage", "1").
		SetResult(&out).
		SetError(&APIError{}).
		Get("/api/collections/{collection}/records")
	if err != nil {
		return 0, errors.Wrapf(err, "pocketbase: count %s", collection)
	}
	if res.IsError() {
		return 0, errors.Wrapf(apiError(res), "pocketbase: count %s", collection)
	}
	return out.TotalItems, nil
}

func apiError(res *resty.Response) *APIError {
	apiErr, ok := res.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{Message: strings.TrimSpace(res.String())}
	}
	apiErr.Status = res.StatusCode()
	if apiErr.Message == "" {
		apiErr.Message = res.Status()
	}
	return apiErr
}
