package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// createdID is the id the public test endpoint assigns to every new post
const createdID = 101

// Received is a request as the posts endpoint saw it
type Received struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// PostsHandler fakes resource creation: a POSTed JSON object is echoed back
// with an id, nothing is stored beyond the in memory request record.
type PostsHandler struct {
	logger *slog.Logger

	mu       sync.Mutex
	received []Received
}

func NewPostsHandler(logger *slog.Logger) *PostsHandler {
	return &PostsHandler{logger: logger}
}

func (h *PostsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read request body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.received = append(h.received, Received{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	h.mu.Unlock()

	// Anything that is not a JSON object still creates an empty post, like the real endpoint
	resp := make(map[string]any)
	if err := json.Unmarshal(body, &resp); err != nil {
		h.logger.Debug("body is not a json object", "error", err)
		resp = make(map[string]any)
	}
	resp["id"] = createdID

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// Received returns every request handled so far, oldest first
func (h *PostsHandler) Received() []Received {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Received, len(h.received))
	copy(out, h.received)
	return out
}

// Last returns the most recent request, if any
func (h *PostsHandler) Last() (Received, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.received) == 0 {
		return Received{}, false
	}
	return h.received[len(h.received)-1], true
}
