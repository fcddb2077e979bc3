package network

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http/httpproxy"
)

// DefaultProbeTimeout bounds a single reachability probe
const DefaultProbeTimeout = 3 * time.Second

// ProxyFunc returns the proxy for a request URL, or nil for a direct connection
type ProxyFunc func(*url.URL) (*url.URL, error)

// Dialer opens network connections
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Probe reports the environment as online when a TCP connection can be
// opened to the first hop of an API request: the proxy named by
// HTTP_PROXY/HTTPS_PROXY when one applies, the API host otherwise.
type Probe struct {
	address string
	proxied bool
	timeout time.Duration
	dialer  Dialer
	logger  *zap.Logger
}

// NewProbe creates a probe for baseURL using the proxy settings of the
// environment, the same ones the HTTP clients of the providers follow
func NewProbe(baseURL string, timeout time.Duration, logger *zap.Logger) (*Probe, error) {
	return NewProbeWithProxy(baseURL, httpproxy.FromEnvironment().ProxyFunc(), timeout, logger)
}

// NewProbeWithProxy creates a probe that resolves the first hop with proxy.
// A nil proxy always dials the API host.
func NewProbeWithProxy(baseURL string, proxy ProxyFunc, timeout time.Duration, logger *zap.Logger) (*Probe, error) {
	target, err := parseTarget(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Probe{
		address: dialAddress(target),
		timeout: timeout,
		dialer:  &net.Dialer{},
		logger:  logger,
	}

	if proxy != nil {
		proxyURL, err := proxy(target)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve proxy for %s: %w", target.Host, err)
		}
		if proxyURL != nil && proxyURL.Hostname() != "" {
			p.address = dialAddress(proxyURL)
			p.proxied = true
			logger.Debug("Reachability probe goes through proxy",
				zap.String("api_host", target.Host),
				zap.String("proxy", proxyURL.Redacted()))
		}
	}

	return p, nil
}

// Address returns the host:port being probed
func (p *Probe) Address() string {
	return p.address
}

// Proxied reports whether Address is a proxy rather than the API host
func (p *Probe) Proxied() bool {
	return p.proxied
}

// Online dials the first hop once
func (p *Probe) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		p.logger.Debug("Reachability probe failed",
			zap.String("address", p.address),
			zap.Bool("proxied", p.proxied),
			zap.Error(err))
		return false
	}
	conn.Close()
	return true
}

func parseTarget(baseURL string) (*url.URL, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse API URL: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("API URL %q has no host", baseURL)
	}
	return u, nil
}

// dialAddress returns host:port of u, defaulting the port by scheme
func dialAddress(u *url.URL) string {
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "http":
			port = "80"
		case "socks5":
			port = "1080"
		default:
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

func hostPort(baseURL string) (string, error) {
	u, err := parseTarget(baseURL)
	if err != nil {
		return "", err
	}
	return dialAddress(u), nil
}
