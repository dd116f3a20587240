package transport

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupSubsystem initializes the process wide state for a single test
func setupSubsystem(t *testing.T) {
	t.Helper()

	require.NoError(t, Init())
	t.Cleanup(Cleanup)
}

type capturedRequest struct {
	method string
	body   string
	header http.Header
}

// newCaptureServer records the last request it received and replies with 201
func newCaptureServer(t *testing.T, tls bool) (*httptest.Server, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		captured.method = r.Method
		captured.body = string(b)
		captured.header = r.Header.Clone()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":101}`))
	})

	var ts *httptest.Server
	if tls {
		ts = httptest.NewTLSServer(handler)
	} else {
		ts = httptest.NewServer(handler)
	}
	t.Cleanup(ts.Close)

	return ts, captured
}

// writeCABundle writes the certificate of a TLS test server as a PEM bundle
func writeCABundle(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "curl-ca-bundle.crt")
	block := &pem.Block{Type: "CERTIFICATE", Bytes: ts.Certificate().Raw}
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))

	return path
}

func newPostHandle(t *testing.T, target string, body string) *Handle {
	t.Helper()

	h, err := NewHandle()
	require.NoError(t, err)
	t.Cleanup(h.Close)

	headers := NewHeaderList()
	require.NoError(t, headers.Append("Expect:"))
	require.NoError(t, headers.Append("Content-Type: application/json; charset=utf-8"))

	h.SetURL(target)
	h.SetUserAgent(UserAgent())
	h.SetHeaders(headers)
	h.SetBody([]byte(body))
	h.SetOutput(io.Discard)

	return h
}

func requireCode(t *testing.T, err error, want Code) {
	t.Helper()

	require.Error(t, err)
	var tErr *Error
	require.True(t, errors.As(err, &tErr), "expected *transport.Error, got %T", err)
	require.Equal(t, want, tErr.Code, "unexpected code, error: %v", err)
	require.True(t, strings.HasPrefix(err.Error(), want.String()))
}

func TestInitLifecycle(t *testing.T) {
	_, err := NewHandle()
	require.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, Init())
	require.True(t, Initialized())
	require.ErrorIs(t, Init(), ErrAlreadyInitialized)

	h, err := NewHandle()
	require.NoError(t, err)
	h.Close()

	Cleanup()
	Cleanup()
	require.False(t, Initialized())

	_, err = NewHandle()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitFailure(t *testing.T) {
	orig := systemCertPool
	systemCertPool = func() (*x509.CertPool, error) {
		return nil, errors.New("no roots")
	}
	defer func() { systemCertPool = orig }()

	err := Init()
	requireCode(t, err, FailedInit)
	require.False(t, Initialized())
}

func TestPerformPostsBodyAndHeaders(t *testing.T) {
	setupSubsystem(t)
	ts, captured := newCaptureServer(t, false)

	var trace, out bytes.Buffer
	h := newPostHandle(t, ts.URL+"/posts", `{"title":"hello world"}`)
	h.SetVerbose(&trace)
	h.SetOutput(&out)

	require.NoError(t, h.Perform(context.Background()))

	require.Equal(t, http.MethodPost, captured.method)
	require.Equal(t, `{"title":"hello world"}`, captured.body)
	require.Equal(t, "application/json; charset=utf-8", captured.header.Get("Content-Type"))
	require.Equal(t, UserAgent(), captured.header.Get("User-Agent"))
	require.Empty(t, captured.header.Values("Expect"))

	require.Equal(t, http.StatusCreated, h.ResponseCode())
	require.Equal(t, `{"id":101}`, out.String())

	require.Contains(t, trace.String(), "> POST /posts HTTP/1.1")
	require.Contains(t, trace.String(), "> Content-Type: application/json; charset=utf-8")
	require.Contains(t, trace.String(), "< HTTP/1.1 201 Created")
	require.Contains(t, trace.String(), "* Connected to")
}

func TestPerformHTTPErrorStatusIsNotAFailure(t *testing.T) {
	setupSubsystem(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	h := newPostHandle(t, ts.URL, `{"a":"b"}`)
	require.NoError(t, h.Perform(context.Background()))
	require.Equal(t, http.StatusInternalServerError, h.ResponseCode())
}

func TestPerformDoesNotFollowRedirects(t *testing.T) {
	setupSubsystem(t)
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer ts.Close()

	h := newPostHandle(t, ts.URL, `{"a":"b"}`)
	require.NoError(t, h.Perform(context.Background()))
	require.Equal(t, http.StatusFound, h.ResponseCode())
	require.Equal(t, 1, hits)
}

func TestPerformFailures(t *testing.T) {
	setupSubsystem(t)

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name     string
		url      string
		wantCode Code
	}{
		{
			name:     "test unsupported scheme",
			url:      "ftp://example.com/file",
			wantCode: UnsupportedProtocol,
		},
		{
			name:     "test missing host",
			url:      "http://",
			wantCode: URLMalformat,
		},
		{
			name:     "test unparsable url",
			url:      "http://[::1",
			wantCode: URLMalformat,
		},
		{
			name:     "test refused connection",
			url:      closedURL,
			wantCode: CouldntConnect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newPostHandle(t, tt.url, `{"a":"b"}`)
			requireCode(t, h.Perform(context.Background()), tt.wantCode)
			require.Equal(t, 0, h.ResponseCode())
		})
	}
}

func TestPerformCanceledContext(t *testing.T) {
	setupSubsystem(t)
	ts, _ := newCaptureServer(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newPostHandle(t, ts.URL, `{"a":"b"}`)
	requireCode(t, h.Perform(ctx), AbortedByCallback)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestPerformOutputWriteFailure(t *testing.T) {
	setupSubsystem(t)
	ts, _ := newCaptureServer(t, false)

	h := newPostHandle(t, ts.URL, `{"a":"b"}`)
	h.SetOutput(failingWriter{})
	requireCode(t, h.Perform(context.Background()), WriteError)
}

func TestPerformTLS(t *testing.T) {
	setupSubsystem(t)
	ts, captured := newCaptureServer(t, true)

	t.Run("test trusted via CA bundle", func(t *testing.T) {
		h := newPostHandle(t, ts.URL, `{"foo":"bar"}`)
		h.SetCAInfo(writeCABundle(t, ts))

		require.NoError(t, h.Perform(context.Background()))
		require.Equal(t, `{"foo":"bar"}`, captured.body)
	})

	t.Run("test missing CA bundle", func(t *testing.T) {
		h := newPostHandle(t, ts.URL, `{"foo":"bar"}`)
		h.SetCAInfo(filepath.Join(t.TempDir(), "missing.crt"))

		requireCode(t, h.Perform(context.Background()), SSLCACertBadFile)
	})

	t.Run("test CA bundle without certificates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.crt")
		require.NoError(t, os.WriteFile(path, []byte("not a pem"), 0600))

		h := newPostHandle(t, ts.URL, `{"foo":"bar"}`)
		h.SetCAInfo(path)

		requireCode(t, h.Perform(context.Background()), SSLCACertBadFile)
	})

	t.Run("test untrusted peer", func(t *testing.T) {
		h := newPostHandle(t, ts.URL, `{"foo":"bar"}`)

		requireCode(t, h.Perform(context.Background()), PeerFailedVerification)
	})
}

func TestCABundleIgnoredForPlainHTTP(t *testing.T) {
	setupSubsystem(t)
	ts, _ := newCaptureServer(t, false)

	h := newPostHandle(t, ts.URL, `{"a":"b"}`)
	h.SetCAInfo(filepath.Join(t.TempDir(), "missing.crt"))

	require.NoError(t, h.Perform(context.Background()))
}

func TestPerformOnClosedHandle(t *testing.T) {
	setupSubsystem(t)

	h := newPostHandle(t, "http://127.0.0.1:1", `{"a":"b"}`)
	h.Close()
	h.Close()

	err := h.Perform(context.Background())
	requireCode(t, err, FailedInit)
	require.ErrorIs(t, err, ErrHandleClosed)
}

func TestCodeDescriptions(t *testing.T) {
	require.Equal(t, "No error", OK.String())
	require.Equal(t, "Couldn't connect to server", CouldntConnect.String())
	require.Equal(t, "Unknown error (999)", Code(999).String())

	err := &Error{Code: CouldntResolveHost, Err: errors.New("lookup nope")}
	require.Equal(t, "Couldn't resolve host name: lookup nope", err.Error())
	require.Equal(t, "Timeout was reached", (&Error{Code: OperationTimedout}).Error())
}
