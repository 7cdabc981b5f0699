package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/arkadyv/reqforge/packages/descriptor"
)

const (
	// DefaultMaxRedirects bounds the redirect chain when following is on.
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the idle connection pool size.
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost bounds idle connections per host.
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay pooled.
	DefaultIdleConnTimeout = 90 * time.Second
)

// Client executes resolved descriptors. One client may serve many requests
// within a session; the transport and its connection pool are reused.
type Client struct {
	transport          *http.Transport
	maxRedirects       int
	keepAuthOnRedirect bool
	validateSSL        bool
	proxyURL           string
	userAgent          string
	defaultHeaders     map[string]string
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: make(map[string]string),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.transport = &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	if !c.validateSSL {
		c.transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	if c.proxyURL != "" {
		if proxyURL, err := neturl.Parse(c.proxyURL); err == nil {
			c.transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return c
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

// WithKeepAuthOnRedirect keeps the Authorization header on cross-origin
// redirect hops. Off by default: credentials are stripped when the origin
// changes.
func WithKeepAuthOnRedirect(keep bool) ClientOption {
	return func(c *Client) {
		c.keepAuthOnRedirect = keep
	}
}

func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// Do performs the network call for a fully resolved descriptor and returns
// a normalized Response, or a classified *Error. The descriptor's timeout
// is a hard deadline covering connection and transfer; the call is made
// exactly once, with no retries.
func (c *Client) Do(ctx context.Context, d *descriptor.Descriptor) (*Response, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	timeout := time.Duration(d.Timeout()) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload := d.BodyBytes(); len(payload) > 0 {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, d.Method, d.URL, body)
	if err != nil {
		return nil, err
	}

	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	// Ordered list, last write wins for duplicate names.
	for _, h := range d.Headers {
		httpReq.Header.Set(h.Name, h.Value)
	}

	if ct := d.EffectiveContentType(); ct != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", ct)
	}

	httpClient := &http.Client{
		Transport:     c.transport,
		CheckRedirect: c.redirectPolicy(d.FollowRedirects, httpReq.Header.Get("Authorization")),
	}

	start := time.Now()
	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(d.URL, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	duration := time.Since(start)
	if err != nil {
		return nil, classify(d.URL, err)
	}

	headers := make(map[string]string, len(httpResp.Header))
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    headers,
		Body:       respBody,
		Duration:   duration,
		Size:       len(respBody),
		Timestamp:  start,
	}, nil
}

// redirectPolicy enforces the follow flag, the hop bound, and the
// cross-origin credential rule: the Authorization header from the original
// request is re-applied on same-origin hops and dropped when the origin
// changes, unless keepAuthOnRedirect is set.
func (c *Client) redirectPolicy(follow bool, authorization string) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !follow {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return errRedirectLimit
		}
		if authorization == "" {
			return nil
		}
		if sameOrigin(req.URL, via[0].URL) || c.keepAuthOnRedirect {
			req.Header.Set("Authorization", authorization)
		} else {
			req.Header.Del("Authorization")
		}
		return nil
	}
}

func sameOrigin(a, b *neturl.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
