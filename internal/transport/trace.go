package transport

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sort"
	"strconv"
	"sync"
)

// tracer writes a protocol level trace of a single transfer.
// Info lines start with "* ", request headers with "> " and response headers with "< ".
type tracer struct {
	w  io.Writer
	mu sync.Mutex
}

func (t *tracer) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format+"\n", args...)
}

func (t *tracer) clientTrace(req *http.Request) *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSDone: func(info httptrace.DNSDoneInfo) {
			if info.Err != nil {
				t.printf("* Could not resolve host: %v", info.Err)
			}
		},
		ConnectStart: func(network, addr string) {
			t.printf("*   Trying %s...", addr)
		},
		ConnectDone: func(network, addr string, err error) {
			if err != nil {
				t.printf("* connect to %s failed: %v", addr, err)
				return
			}
			t.printf("* Connected to %s", addr)
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err != nil {
				t.printf("* TLS handshake failed: %v", err)
				return
			}
			t.printf("* SSL connection using %s / %s",
				tls.VersionName(state.Version),
				tls.CipherSuiteName(state.CipherSuite))
			if len(state.PeerCertificates) > 0 {
				cert := state.PeerCertificates[0]
				t.printf("* Server certificate:")
				t.printf("*  subject: %s", cert.Subject)
				t.printf("*  issuer: %s", cert.Issuer)
			}
		},
		WroteHeaders: func() {
			t.request(req)
		},
	}
}

func (t *tracer) request(req *http.Request) {
	t.printf("> %s %s %s", req.Method, req.URL.RequestURI(), req.Proto)

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	t.printf("> Host: %s", host)
	if ua, ok := req.Header["User-Agent"]; ok && len(ua) > 0 && ua[0] != "" {
		t.printf("> User-Agent: %s", ua[0])
	}
	t.headers(">", req.Header, "User-Agent")
	if req.ContentLength > 0 {
		t.printf("> Content-Length: %s", strconv.FormatInt(req.ContentLength, 10))
	}
	t.printf(">")
}

func (t *tracer) response(resp *http.Response) {
	t.printf("< %s %s", resp.Proto, resp.Status)
	t.headers("<", resp.Header)
	t.printf("<")
}

func (t *tracer) headers(prefix string, h http.Header, skip ...string) {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	// Nice to have - sort the names so the trace is stable between runs (maps pseudo random order)
	sort.Strings(names)

	for _, name := range names {
		if contains(skip, name) {
			continue
		}
		for _, v := range h[name] {
			t.printf("%s %s: %s", prefix, name, v)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// tracingTransport reports every round trip to a tracer
type tracingTransport struct {
	next   http.RoundTripper
	tracer *tracer
}

func (rt *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), rt.tracer.clientTrace(req)))

	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	rt.tracer.response(resp)
	return resp, nil
}
