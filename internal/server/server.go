package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jwtly10/go-postjson/internal/server/middleware"
)

// NewServer returns a local stand in for the public test endpoint, so postjson
// can be exercised with POSTJSON_URL=http://localhost:<port>/posts
func NewServer(addr string, posts *PostsHandler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/posts", posts)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           middleware.WithLogging(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
