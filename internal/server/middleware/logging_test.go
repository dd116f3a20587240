package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	h := WithLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}), logger)

	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"a":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	line := logs.String()
	require.Contains(t, line, "method=POST")
	require.Contains(t, line, "path=/posts")
	require.Contains(t, line, "status=201")
	require.Contains(t, line, "response_bytes=7")
	require.Contains(t, line, "request_bytes=9")
}
