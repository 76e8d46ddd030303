// Package httpclient builds the *http.Client used for platform and upload requests.
package httpclient

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ClientConfig holds transport tuning for upload clients. The client has no overall
// timeout; uploads are bounded by their request context.
type ClientConfig struct {
	// MaxIdleConnsPerHost controls the idle (keep-alive) connections kept per upload host
	MaxIdleConnsPerHost int `envconfig:"MAX_IDLE_CONNS_PER_HOST" default:"16"`

	// IdleConnTimeout is how long an idle connection remains open
	IdleConnTimeout time.Duration `envconfig:"IDLE_CONN_TIMEOUT" default:"90s"`

	// DialTimeout is the maximum amount of time a dial will wait for a connect to complete
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT" default:"10s"`

	// TLSHandshakeTimeout specifies the maximum amount of time to wait for a TLS handshake
	TLSHandshakeTimeout time.Duration `envconfig:"TLS_HANDSHAKE_TIMEOUT" default:"10s"`

	// ResponseHeaderTimeout is the time to wait for response headers after a chunk was written
	ResponseHeaderTimeout time.Duration `envconfig:"RESPONSE_HEADER_TIMEOUT" default:"60s"`
}

// DefaultConfig reads MOLPAUPLOAD_HTTP_* overrides on top of the defaults. Malformed
// overrides are logged and the defaults are used.
func DefaultConfig() ClientConfig {
	var cfg ClientConfig
	if err := envconfig.Process("molpaupload_http", &cfg); err != nil {
		slog.Warn("invalid http client settings, using defaults", "error", err)
		return defaultClientConfig
	}
	return cfg
}

var defaultClientConfig = ClientConfig{
	MaxIdleConnsPerHost:   16,
	IdleConnTimeout:       90 * time.Second,
	DialTimeout:           10 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 60 * time.Second,
}

// NewHTTPClient creates a new HTTP client with the provided configuration.
// If config is nil, DefaultConfig() is used.
func NewHTTPClient(config *ClientConfig) *http.Client {
	if config == nil {
		cfg := DefaultConfig()
		config = &cfg
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{Transport: transport}
}
