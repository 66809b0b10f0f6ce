package tms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultPageSize = 250
)

// Options configures a Tolgee client.
type Options struct {
	Host      string
	ProjectID string
	APIKey    string

	// PageSize is the number of keys requested per page.
	PageSize int
	// RequestsPerSecond paces all requests; 0 disables pacing.
	RequestsPerSecond float64
	// MaxRetries bounds retries of transport errors, 429 and 5xx responses.
	MaxRetries int
	// RetryInterval is the first backoff interval; 0 keeps the library default.
	RetryInterval time.Duration
	Timeout       time.Duration
}

// Tolgee implements Client against the Tolgee REST API.
type Tolgee struct {
	opts    Options
	http    *resty.Client
	limiter *rate.Limiter
}

var _ Client = (*Tolgee)(nil)

// NewTolgee returns a client for one Tolgee project.
func NewTolgee(opts Options) (*Tolgee, error) {
	if opts.Host == "" {
		return nil, errors.New("tolgee host is required")
	}
	if opts.ProjectID == "" {
		return nil, errors.New("tolgee project id is required")
	}
	if opts.APIKey == "" {
		return nil, errors.New("tolgee API key is required")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	opts.Host = strings.TrimRight(opts.Host, "/")

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	c := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("X-API-Key", opts.APIKey)

	return &Tolgee{opts: opts, http: c, limiter: rate.NewLimiter(limit, 1)}, nil
}

func (c *Tolgee) projectURL(format string, args ...any) string {
	return c.opts.Host + "/v2/projects/" + c.opts.ProjectID + fmt.Sprintf(format, args...)
}

// ListKeys pages through the project's translations endpoint.
func (c *Tolgee) ListKeys(ctx context.Context) ([]Key, error) {
	var keys []Key
	for page := 0; ; page++ {
		url := c.projectURL("/translations?page=%d&size=%d", page, c.opts.PageSize)
		resp, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("listing keys: %w", err)
		}

		doc := gjson.ParseBytes(resp.Body())
		doc.Get("_embedded.keys").ForEach(func(_, k gjson.Result) bool {
			key := Key{
				ID:        k.Get("keyId").Int(),
				Namespace: k.Get("keyNamespace").String(),
				Name:      k.Get("keyName").String(),
				Tags:      []Tag{},
			}
			k.Get("keyTags").ForEach(func(_, t gjson.Result) bool {
				key.Tags = append(key.Tags, Tag{ID: t.Get("id").Int(), Name: t.Get("name").String()})
				return true
			})
			keys = append(keys, key)
			return true
		})

		total := doc.Get("page.totalPages").Int()
		log.Debug().Str("sys", "tms").Int("page", page).Int64("totalPages", total).Int("keys", len(keys)).Msg("Fetched key page")
		if int64(page+1) >= total {
			break
		}
	}
	return keys, nil
}

// AddTag attaches name to the key.
func (c *Tolgee) AddTag(ctx context.Context, keyID int64, name string) error {
	url := c.projectURL("/keys/%d/tags", keyID)
	if _, err := c.do(ctx, http.MethodPut, url, map[string]string{"name": name}); err != nil {
		return fmt.Errorf("adding tag %q to key %d: %w", name, keyID, err)
	}
	return nil
}

// RemoveTag detaches the tag from the key.
func (c *Tolgee) RemoveTag(ctx context.Context, keyID, tagID int64) error {
	url := c.projectURL("/keys/%d/tags/%d", keyID, tagID)
	if _, err := c.do(ctx, http.MethodDelete, url, nil); err != nil {
		return fmt.Errorf("removing tag %d from key %d: %w", tagID, keyID, err)
	}
	return nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func (c *Tolgee) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if c.opts.RetryInterval > 0 {
		exp.InitialInterval = c.opts.RetryInterval
		exp.MaxInterval = 10 * c.opts.RetryInterval
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(max(c.opts.MaxRetries, 0))), ctx)
}

// do sends one request, retrying transport errors, 429 and 5xx. Other 4xx
// responses fail immediately.
func (c *Tolgee) do(ctx context.Context, method, url string, body any) (*resty.Response, error) {
	var resp *resty.Response
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req := c.http.R().SetContext(ctx)
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}
		r, err := req.Execute(method, url)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		if r.IsError() {
			se := &StatusError{Method: method, URL: url, Status: r.StatusCode(), Body: r.String()}
			if retryable(r.StatusCode()) {
				return se
			}
			return backoff.Permanent(se)
		}
		resp = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().Str("sys", "tms").Err(err).Dur("wait", wait).Msg("Retrying request")
	}
	if err := backoff.RetryNotify(op, c.newBackOff(ctx), notify); err != nil {
		return nil, err
	}
	return resp, nil
}
