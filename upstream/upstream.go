// Package upstream provides the shared HTTP fetch adapter used by the
// typed API clients, along with the error taxonomy every resolver
// converts into its null fallback.
package upstream

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const DefaultFetchTimeout = 10 * time.Second

// Client issues single-shot upstream requests with a bounded timeout.
type Client struct {
	http    *fasthttp.Client
	timeout time.Duration
}

// NewClient wraps the given fasthttp client. A nil client and a zero
// timeout fall back to defaults.
func NewClient(http *fasthttp.Client, timeout time.Duration) *Client {
	if http == nil {
		http = &fasthttp.Client{}
	}
	if timeout == 0 {
		timeout = DefaultFetchTimeout
	}
	return &Client{http: http, timeout: timeout}
}

// GetJSON fetches url and decodes the JSON response body into out.
func (c *Client) GetJSON(
	url string, header map[string]string, out any,
) error {
	body, err := c.get(url, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &UnexpectedShapeError{
			Upstream: hostOf(url),
			Expected: "valid JSON body",
		}
	}
	return nil
}

// GetText fetches url and returns the raw response body.
// Used for XML-bearing endpoints.
func (c *Client) GetText(
	url string, header map[string]string,
) ([]byte, error) {
	return c.get(url, header)
}

func (c *Client) get(url string, header map[string]string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	if err := c.http.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	if s := resp.StatusCode(); s < 200 || s > 299 {
		return nil, &TransportError{URL: url, Status: s}
	}

	// The response buffer is released together with resp.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func hostOf(url string) string {
	u := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if i := strings.IndexAny(u, "/?"); i >= 0 {
		u = u[:i]
	}
	return u
}

// TransportError reports a failure to complete an upstream call:
// either the request never got a response (Err is set) or the
// upstream answered with a non-2xx status (Status is set).
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("upstream transport: ")
	b.WriteString(e.URL)
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString("status ")
		b.WriteString(fasthttp.StatusMessage(e.Status))
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// UnexpectedShapeError reports that an upstream responded but the
// response lacked the expected top-level object.
type UnexpectedShapeError struct {
	Upstream string
	Expected string
}

func (e *UnexpectedShapeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Upstream)
	b.WriteString(" response missing ")
	b.WriteString(e.Expected)
	return b.String()
}
