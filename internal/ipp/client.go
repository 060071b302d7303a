package ipp

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// ContentType is the media type of IPP messages sent over HTTP.
const ContentType = "application/ipp"

// DefaultPort is used for ipp:// and ipps:// URIs without an explicit port.
const DefaultPort = "631"

// Client sends IPP requests to a single printer URI.
type Client struct {
	uri      string
	endpoint string
	header   http.Header
	hc       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHeader adds a header to every HTTP request the client makes.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Add(key, value) }
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// NewClient returns a client for the printer at uri. The uri may use the
// ipp, ipps, http or https schemes.
func NewClient(uri string, opts ...Option) (*Client, error) {
	endpoint, err := httpEndpoint(uri)
	if err != nil {
		return nil, err
	}

	c := &Client{
		uri:      uri,
		endpoint: endpoint,
		header:   make(http.Header),
		hc:       http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URI returns the printer URI as configured, suitable for "printer-uri".
func (c *Client) URI() string { return c.uri }

// Send posts m followed by doc, if any, and decodes the response. The body
// is sent with chunked encoding so doc is never read ahead of the transport.
func (c *Client) Send(ctx context.Context, m *Message, doc io.Reader) (*Message, error) {
	payload, err := m.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var body io.Reader = bytes.NewReader(payload)
	if doc != nil {
		body = io.MultiReader(body, doc)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, errors.Wrap(err, "ipp: could not create request")
	}
	if doc != nil {
		// Unknown length; the transport falls back to chunked encoding.
		req.ContentLength = -1
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", ContentType)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "ipp: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, errors.Errorf("ipp: unexpected http status %d", resp.StatusCode)
	}

	return Decode(resp.Body)
}

func httpEndpoint(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.Wrap(err, "ipp: invalid printer uri")
	}

	switch u.Scheme {
	case "ipp":
		u.Scheme = "http"
	case "ipps":
		u.Scheme = "https"
	case "http", "https":
		return u.String(), nil
	default:
		return "", errors.Errorf("ipp: unsupported scheme %q", u.Scheme)
	}

	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), DefaultPort)
	}
	return u.String(), nil
}
