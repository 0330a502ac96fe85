package api

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aerodrift/constellation/pkg/logger"
)

// hourFilePattern admits exactly the upstream's hourly file names.
var hourFilePattern = regexp.MustCompile(`^\d{2}\.json$`)

const (
	proxyTimeout      = 15 * time.Second
	proxyMaxBodyBytes = 32 << 20
	proxyCacheControl = "public, max-age=60"
)

// ProxyHandler forwards hourly snapshot requests to the upstream feed so
// browser clients avoid its missing CORS headers.
type ProxyHandler struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// ProxyOption applies a configuration option to the ProxyHandler.
type ProxyOption func(*ProxyHandler)

// WithProxyHTTPClient overrides the HTTP client, mainly for tests.
func WithProxyHTTPClient(hc *http.Client) ProxyOption {
	return func(p *ProxyHandler) {
		if hc != nil {
			p.client = hc
		}
	}
}

// NewProxyHandler creates a proxy for the given upstream base URL.
func NewProxyHandler(baseURL string, opts ...ProxyOption) *ProxyHandler {
	p := &ProxyHandler{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: proxyTimeout},
		logger:  logger.Get().Named("proxy"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleProxy handles GET /proxy?file=NN.json requests.
func (p *ProxyHandler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	file := r.URL.Query().Get("file")
	if !hourFilePattern.MatchString(file) {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet,
		fmt.Sprintf("%s/%s", p.baseURL, file), nil)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", ErrUpstreamProxy)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn(r.Context(), "proxy fetch failed", logger.String("file", file), logger.Error(err))
		writeError(w, http.StatusBadGateway, "upstream_error", ErrUpstreamProxy)
		return
	}
	defer resp.Body.Close()

	// The upstream response passes through as-is, status included; a 502
	// only ever means we could not reach the upstream at all.
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", proxyCacheControl)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, io.LimitReader(resp.Body, proxyMaxBodyBytes))
}
