// Package client is a Go SDK for the Huddle HTTP API.
package client

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

const userAgent = "Huddle-CLI/0.1.0"

// Options configures a Client
type Options struct {
	BaseURL string
	Timeout time.Duration
	Token   string
	Logger  *log.Logger
}

// Client talks to the Huddle API over HTTP
type Client struct {
	http   *resty.Client
	logger *log.Logger
	token  string
}

// New creates a Client for the API at opts.BaseURL
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &Client{
		http:   resty.New(),
		logger: logger,
	}
	// Spans are no-ops unless the process installed a tracer provider
	c.http.SetTransport(otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
	))
	c.http.SetBaseURL(opts.BaseURL)
	c.http.SetTimeout(opts.Timeout)
	c.http.SetHeader("User-Agent", userAgent)
	c.http.SetHeader("Content-Type", "application/json")

	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		c.logger.Debug("HTTP Request", "method", req.Method, "url", req.URL)
		return nil
	})
	c.http.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		c.logger.Debug("HTTP Response", "status", resp.StatusCode(), "url", resp.Request.URL)
		return nil
	})

	if opts.Token != "" {
		c.SetToken(opts.Token)
	}
	return c
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.token = token
	c.http.SetAuthToken(token)
}

// Token returns the current bearer token, if any
func (c *Client) Token() string {
	return c.token
}

// HasToken reports whether requests are authenticated
func (c *Client) HasToken() bool {
	return c.token != ""
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

func (c *Client) get(path string, query map[string]string, target interface{}) error {
	return c.getContext(context.Background(), path, query, target)
}

func (c *Client) getContext(ctx context.Context, path string, query map[string]string, target interface{}) error {
	resp, err := c.http.R().SetContext(ctx).SetQueryParams(query).Get(path)
	return decode(resp, err, target)
}

func (c *Client) post(path string, body interface{}, target interface{}) error {
	req := c.http.R()
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(path)
	return decode(resp, err, target)
}

func (c *Client) delete(path string, target interface{}) error {
	resp, err := c.http.R().Delete(path)
	return decode(resp, err, target)
}
