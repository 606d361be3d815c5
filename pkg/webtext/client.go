// Package webtext issues HTTP GET and POST requests and hands back the
// response body as text, either directly or through a single-shot callback
// carrying the status code.
package webtext

import (
	"context"
	"errors"
	"net/http"

	"github.com/samvad-hq/webtext/pkg/httpclient"
)

const (
	// DefaultContentType is sent with POST bodies when the caller passes "".
	DefaultContentType = "application/json"
	// ErrorPrefix starts the text handed to callbacks on transport failure.
	ErrorPrefix = "Error: "
)

var errNoResponse = errors.New("transport returned no response")

// Callback receives the response text and status code of a callback call.
// Status 0 means the request never produced an HTTP response.
type Callback func(text string, status int)

// Result is delivered by the asynchronous plain calls.
type Result struct {
	Text string
	Err  error
}

// Client issues text requests. The shared transport is used by the plain
// calls; every callback call gets its own transport, closed once the call ends.
type Client struct {
	shared    httpclient.Client
	newScoped func() httpclient.Client
	log       Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSharedClient sets the long-lived transport used by Get, GetAsync, Post and PostAsync.
func WithSharedClient(hc httpclient.Client) Option {
	return func(c *Client) {
		c.shared = hc
	}
}

// WithScopedClientFactory sets how the per-call transport of the callback calls is built.
func WithScopedClientFactory(fn func() httpclient.Client) Option {
	return func(c *Client) {
		c.newScoped = fn
	}
}

// WithLogger injects a logger; the client is silent otherwise.
func WithLogger(log Logger) Option {
	return func(c *Client) {
		c.log = ensureLogger(log)
	}
}

// New builds a Client. The shared transport is created here and never replaced.
func New(opts ...Option) *Client {
	c := &Client{log: noopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.shared == nil {
		c.shared = httpclient.NewRestyClient(0)
	}
	if c.newScoped == nil {
		c.newScoped = defaultScopedClient
	}
	return c
}

func defaultScopedClient() httpclient.Client { return httpclient.NewRestyClient(0) }

// request is the transient (method, url, body, content type) tuple of one call.
type request struct {
	method      string
	url         string
	body        string
	contentType string
}

func getRequest(url string) request {
	return request{method: http.MethodGet, url: url}
}

func postRequest(url, body, contentType string) request {
	if contentType == "" {
		contentType = DefaultContentType
	}
	return request{method: http.MethodPost, url: url, body: body, contentType: contentType}
}

// exchange runs req on hc and materializes the body as text.
// Any HTTP status is a success; only transport failures return an error.
func (c *Client) exchange(hc httpclient.Client, req request) (string, int, error) {
	ctx := context.Background()

	var (
		resp httpclient.Response
		err  error
	)
	switch req.method {
	case http.MethodPost:
		resp, err = hc.Post(ctx, req.url, encodeText(req.body), map[string]string{
			"Content-Type": req.contentType,
		})
	default:
		resp, err = hc.Get(ctx, req.url, nil)
	}
	if err == nil && resp == nil {
		err = errNoResponse
	}
	if err != nil {
		c.log.DebugObj("webtext request failed", "webtext_error", map[string]any{
			"method": req.method,
			"url":    req.url,
			"error":  err.Error(),
		})
		return "", 0, &TransportError{Method: req.method, URL: req.url, Err: err}
	}

	text := decodeText(resp.Body(), resp.Header().Get("Content-Type"))
	c.log.DebugObj("webtext request completed", "webtext_response", map[string]any{
		"method": req.method,
		"url":    req.url,
		"status": resp.StatusCode(),
		"bytes":  len(resp.Body()),
	})
	return text, resp.StatusCode(), nil
}

// plain runs req on the shared transport and returns the text only.
func (c *Client) plain(req request) (string, error) {
	text, _, err := c.exchange(c.shared, req)
	if err != nil {
		return "", err
	}
	return text, nil
}

// scoped runs req on a fresh transport and reports the outcome to cb exactly once.
func (c *Client) scoped(req request, cb Callback) {
	hc := c.newScoped()
	defer func() {
		if err := hc.Close(); err != nil {
			c.log.WarnObj("webtext scoped client close failed", "error", err.Error())
		}
	}()

	text, status, err := c.exchange(hc, req)
	if err != nil {
		text, status = ErrorPrefix+err.Error(), 0
	}
	if cb != nil {
		cb(text, status)
	}
}

func goResult(fn func() (string, error)) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		text, err := fn()
		out <- Result{Text: text, Err: err}
	}()
	return out
}

func goDone(fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	return done
}
