// Package httpclient fetches remote documents without letting a URL reach
// loopback, private or otherwise special-use networks.
package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/teranos/ldx/errors"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 10
	DefaultMaxBodySize  = 64 << 20

	acceptJSONLD = "application/ld+json, application/json;q=0.9, */*;q=0.1"
)

// ErrBlocked marks a URL or address refused by the network policy.
var ErrBlocked = errors.New("request blocked")

// Addresses outside the ranges netip classifies that are still never fetched.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("fec0::/10"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// Client is an HTTP client for document fetches.
type Client struct {
	http         *http.Client
	schemes      []string
	allowPrivate bool
	maxRedirects int
	maxBodySize  int64
}

// Option configures a Client.
type Option func(*Client)

// AllowPrivateNetworks lifts the address policy, for local servers and tests.
func AllowPrivateNetworks() Option {
	return func(c *Client) { c.allowPrivate = true }
}

func WithMaxRedirects(n int) Option {
	return func(c *Client) { c.maxRedirects = n }
}

// WithMaxBodySize caps the bytes read from a response body.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) { c.maxBodySize = n }
}

// New returns a Client. A zero timeout means DefaultTimeout.
func New(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		schemes:      []string{"http", "https"},
		maxRedirects: DefaultMaxRedirects,
		maxBodySize:  DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if !c.allowPrivate {
		// Resolved addresses are checked at dial time so a public name
		// cannot rebind to a private address after validation.
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid address %q", addr)
			}
			ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
			if err != nil {
				return nil, errors.Wrapf(err, "resolve host %q", host)
			}
			for _, ip := range ips {
				if isBlockedAddr(ip) {
					return nil, errors.Wrapf(ErrBlocked, "%s resolves to %s", host, ip)
				}
			}
			if len(ips) == 0 {
				return nil, errors.Newf("host %q has no addresses", host)
			}
			return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].Unmap().String(), port))
		}
	}

	c.http = &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= c.maxRedirects {
				return errors.Newf("stopped after %d redirects", c.maxRedirects)
			}
			return errors.Wrap(c.check(req.URL), "redirect")
		},
	}
	return c
}

// Validate parses raw and checks it against the client's policy.
func (c *Client) Validate(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "invalid URL %q: %v", raw, err)
	}
	if err := c.check(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *Client) check(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if !slices.Contains(c.schemes, scheme) {
		return errors.Wrapf(ErrBlocked, "scheme %q not allowed (allowed: %s)", scheme, strings.Join(c.schemes, ", "))
	}
	if u.User != nil {
		return errors.Wrap(ErrBlocked, "URL carries userinfo")
	}
	host := u.Hostname()
	if host == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "URL %q has no host", u.Redacted())
	}
	if c.allowPrivate {
		return nil
	}
	if isLocalhost(host) {
		return errors.Wrapf(ErrBlocked, "host %s is local", host)
	}
	if ip, err := netip.ParseAddr(host); err == nil && isBlockedAddr(ip) {
		return errors.Wrapf(ErrBlocked, "address %s is not public", ip)
	}
	return nil
}

// Fetch GETs raw and returns the body, preferring JSON-LD representations.
func (c *Client) Fetch(ctx context.Context, raw string) ([]byte, error) {
	u, err := c.Validate(raw)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", acceptJSONLD)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", u.Redacted())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, errors.Wrapf(errors.ErrNotFound, "GET %s: %s", u.Redacted(), resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.Newf("GET %s: %s", u.Redacted(), resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", u.Redacted())
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrInvalidRequest, "%s exceeds %d bytes", u.Redacted(), c.maxBodySize),
			"download the document and load it from disk",
		)
	}
	return body, nil
}

func isBlockedAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return true
	}
	for _, p := range reservedPrefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

func isLocalhost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return host == "localhost" ||
		host == "localhost.localdomain" ||
		strings.HasSuffix(host, ".localhost")
}
