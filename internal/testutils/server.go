package testutil

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/jwtly10/go-postjson/internal/server"
)

// SetupPostsServer starts a local posts endpoint for the duration of the test.
// The handler records every request it receives.
func SetupPostsServer(t *testing.T) (*httptest.Server, *server.PostsHandler) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	posts := server.NewPostsHandler(logger)

	ts := httptest.NewServer(server.NewServer("", posts, logger).Handler)
	t.Cleanup(ts.Close)

	return ts, posts
}

// ClosedServerURL returns the URL of a server that is no longer listening
func ClosedServerURL(t *testing.T) string {
	t.Helper()

	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	return url
}
