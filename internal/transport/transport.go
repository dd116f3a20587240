package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// connectTimeout bounds connection setup only, the transfer itself has no deadline
const connectTimeout = 300 * time.Second

var (
	ErrNotInitialized     = errors.New("transport subsystem is not initialized")
	ErrAlreadyInitialized = errors.New("transport subsystem is already initialized")
	ErrHandleClosed       = errors.New("handle has been closed")
)

// subsystem is the process wide state shared by every handle
var subsystem struct {
	mu          sync.Mutex
	initialized bool
	roots       *x509.CertPool
	proxy       func(*url.URL) (*url.URL, error)
}

// systemCertPool is swapped in tests to simulate an init failure
var systemCertPool = x509.SystemCertPool

// Init sets up the process wide transport state. It must be called once
// before any handle is created and paired with exactly one Cleanup.
func Init() error {
	subsystem.mu.Lock()
	defer subsystem.mu.Unlock()

	if subsystem.initialized {
		return ErrAlreadyInitialized
	}

	roots, err := systemCertPool()
	if err != nil {
		return newError(FailedInit, fmt.Errorf("failed to load system certificate pool: %w", err))
	}

	subsystem.roots = roots
	subsystem.proxy = httpproxy.FromEnvironment().ProxyFunc()
	subsystem.initialized = true
	return nil
}

// Cleanup tears down the process wide state. Calling it more than once is harmless.
func Cleanup() {
	subsystem.mu.Lock()
	defer subsystem.mu.Unlock()

	subsystem.roots = nil
	subsystem.proxy = nil
	subsystem.initialized = false
}

func Initialized() bool {
	subsystem.mu.Lock()
	defer subsystem.mu.Unlock()
	return subsystem.initialized
}

// Handle holds the options of a single transfer. Options are only read when
// Perform runs, so they can be set in any order.
type Handle struct {
	url       string
	caInfo    string
	userAgent string
	headers   *HeaderList
	body      []byte
	hasBody   bool
	verbose   io.Writer
	out       io.Writer

	roots *x509.CertPool
	proxy func(*url.URL) (*url.URL, error)

	responseCode int
	closed       bool
}

// NewHandle acquires a handle bound to the current subsystem state
func NewHandle() (*Handle, error) {
	subsystem.mu.Lock()
	defer subsystem.mu.Unlock()

	if !subsystem.initialized {
		return nil, ErrNotInitialized
	}

	return &Handle{
		out:   os.Stdout,
		roots: subsystem.roots,
		proxy: subsystem.proxy,
	}, nil
}

func (h *Handle) SetURL(u string) {
	h.url = u
}

// SetCAInfo sets the PEM bundle used to verify TLS peers. A relative path is
// looked up in the working directory first and then next to the executable.
func (h *Handle) SetCAInfo(path string) {
	h.caInfo = path
}

func (h *Handle) SetUserAgent(ua string) {
	h.userAgent = ua
}

// SetHeaders attaches a header list. The list is not copied and must outlive Perform.
func (h *Handle) SetHeaders(l *HeaderList) {
	h.headers = l
}

// SetBody makes the transfer a POST of body. The length is taken from the body itself.
func (h *Handle) SetBody(body []byte) {
	h.body = body
	h.hasBody = true
}

// SetVerbose enables the protocol trace. A nil writer disables it.
func (h *Handle) SetVerbose(w io.Writer) {
	h.verbose = w
}

// SetOutput sets where the response body is written, stdout by default
func (h *Handle) SetOutput(w io.Writer) {
	h.out = w
}

// ResponseCode returns the HTTP status of the last transfer, 0 if none was received
func (h *Handle) ResponseCode() int {
	return h.responseCode
}

// Close releases the handle. Calling it more than once, or on a nil handle, is harmless.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.headers = nil
	h.body = nil
	h.closed = true
}

// Perform runs the transfer and blocks until it completes. HTTP error statuses
// are not failures, only transport level problems are reported as *Error.
func (h *Handle) Perform(ctx context.Context) error {
	if h.closed {
		return newError(FailedInit, ErrHandleClosed)
	}
	h.responseCode = 0

	target, err := url.Parse(h.url)
	if err != nil {
		return newError(URLMalformat, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return newError(UnsupportedProtocol, fmt.Errorf("protocol %q not supported", target.Scheme))
	}
	if target.Host == "" {
		return newError(URLMalformat, fmt.Errorf("no host part in %q", h.url))
	}

	tlsConfig := &tls.Config{RootCAs: h.roots}
	if target.Scheme == "https" && h.caInfo != "" {
		pool, err := loadCABundle(h.caInfo)
		if err != nil {
			return newError(SSLCACertBadFile, err)
		}
		tlsConfig.RootCAs = pool
	}

	tr := &http.Transport{
		Proxy:               h.proxyForRequest,
		DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: connectTimeout,
		DisableKeepAlives:   true,
		DisableCompression:  true,
	}
	defer tr.CloseIdleConnections()

	var rt http.RoundTripper = tr
	if h.verbose != nil {
		rt = &tracingTransport{next: tr, tracer: &tracer{w: h.verbose}}
	}

	client := &http.Client{
		Transport: rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // Don't follow redirects
		},
	}

	req, err := h.newRequest(ctx, target)
	if err != nil {
		return newError(URLMalformat, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return newError(classify(ctx, err), err)
	}
	defer resp.Body.Close()

	h.responseCode = resp.StatusCode

	out := h.out
	if out == nil {
		out = io.Discard
	}
	if _, err := io.Copy(&outputWriter{w: out}, resp.Body); err != nil {
		return newError(classify(ctx, err), err)
	}

	return nil
}

func (h *Handle) newRequest(ctx context.Context, target *url.URL) (*http.Request, error) {
	method := http.MethodGet
	var body io.Reader
	if h.hasBody {
		method = http.MethodPost
		body = bytes.NewReader(h.body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}

	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	} else {
		// No agent was configured, so send none rather than the net/http default
		req.Header["User-Agent"] = []string{""}
	}
	req.Header.Set("Accept", "*/*")
	if h.hasBody {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if h.headers != nil {
		h.headers.apply(req)
	}

	return req, nil
}

func (h *Handle) proxyForRequest(req *http.Request) (*url.URL, error) {
	if h.proxy == nil {
		return nil, nil
	}
	u, err := h.proxy(req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errProxy, err)
	}
	return u, nil
}

// outputWriter tags write failures so they are not mistaken for receive failures
type outputWriter struct {
	w io.Writer
}

func (o *outputWriter) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", errOutputWrite, err)
	}
	return n, nil
}

// resolveCAPath finds the bundle as given, then alongside the executable
func resolveCAPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	exe, err := os.Executable()
	if err == nil {
		candidate := filepath.Join(filepath.Dir(exe), path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("CA bundle %q not found in working directory or next to the executable", path)
}

func loadCABundle(path string) (*x509.CertPool, error) {
	resolved, err := resolveCAPath(path)
	if err != nil {
		return nil, err
	}

	pem, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in CA bundle %s", resolved)
	}

	return pool, nil
}
