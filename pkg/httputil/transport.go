package httputil

import (
	"net"
	"net/http"
	"time"
)

// TransportConfig sizes the connection pool and timeouts of the HTTP client
// shared by all registry requests. It is passed explicitly to [NewHTTPClient]
// rather than mutating process-wide defaults.
type TransportConfig struct {
	// MaxConnsPerHost caps concurrent connections to a single registry host.
	// It should be at least the number of scan workers.
	MaxConnsPerHost int `toml:"max_conns_per_host" yaml:"max_conns_per_host"`

	// MaxIdleConnsPerHost caps idle keep-alive connections per host.
	MaxIdleConnsPerHost int `toml:"max_idle_conns_per_host" yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout closes keep-alive connections idle for this long.
	IdleConnTimeout time.Duration `toml:"idle_conn_timeout" yaml:"idle_conn_timeout"`

	// ResponseHeaderTimeout bounds the wait for response headers after the
	// request is written. Package bodies may take longer to read.
	ResponseHeaderTimeout time.Duration `toml:"response_header_timeout" yaml:"response_header_timeout"`

	// Timeout bounds a whole request including reading the body.
	// Zero, the default, disables it so slow .nupkg downloads are not cut off.
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`

	// UserAgent is sent with every request.
	UserAgent string `toml:"user_agent" yaml:"user_agent"`
}

// DefaultTransportConfig returns a pool sized for 32 concurrent workers with a
// 10 second idle timeout and a one minute header timeout.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxConnsPerHost:       32,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       10 * time.Second,
		ResponseHeaderTimeout: time.Minute,
	}
}

// NewHTTPClient builds an *http.Client from cfg. Zero pool fields fall back to
// [DefaultTransportConfig]; a zero Timeout leaves body reads unbounded.
func NewHTTPClient(cfg TransportConfig) *http.Client {
	def := DefaultTransportConfig()
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = cfg.MaxConnsPerHost
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}
	if cfg.ResponseHeaderTimeout <= 0 {
		cfg.ResponseHeaderTimeout = def.ResponseHeaderTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConnsPerHost * 2,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: time.Second,
	}

	var rt http.RoundTripper = transport
	if cfg.UserAgent != "" {
		rt = &userAgentTransport{base: transport, agent: cfg.UserAgent}
	}

	return &http.Client{Transport: rt, Timeout: cfg.Timeout}
}

type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(r)
}
