package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jwtly10/go-postjson/internal/document"
	"github.com/jwtly10/go-postjson/internal/transport"
)

const (
	DefaultURL    = "http://jsonplaceholder.typicode.com/posts"
	DefaultCAInfo = "curl-ca-bundle.crt"

	contentTypeHeader = "Content-Type: application/json; charset=utf-8"
	// An empty Expect stops the transport from probing with 100-continue before small bodies
	expectHeader = "Expect:"
)

var (
	errNoDocument  = errors.New("could not create document")
	errEmptyOutput = errors.New("rendering produced no output")
)

// Options configure where and how the document is sent
type Options struct {
	URL    string
	CAInfo string

	// Verbose receives the protocol trace, nil disables it
	Verbose io.Writer
	// Output receives the response body, stdout when nil
	Output io.Writer
}

type Sender struct {
	opts    Options
	logger  *slog.Logger
	tracker Tracker

	newDocument func() *document.Document
	newHandle   func() (*transport.Handle, error)
	headerLines []string
}

func New(opts Options, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Sender{
		opts:        opts,
		logger:      logger,
		tracker:     nopTracker{},
		newDocument: document.New,
		newHandle:   transport.NewHandle,
		headerLines: []string{expectHeader, contentTypeHeader},
	}
}

// WithTracker reports every resource acquisition and release to t
func (s *Sender) WithTracker(t Tracker) *Sender {
	s.tracker = t
	return s
}

// resources holds everything a single Post acquires. release frees whatever
// was acquired, in a fixed order, whichever step the operation stopped at.
type resources struct {
	tracker Tracker

	doc     *document.Document
	payload []byte
	handle  *transport.Handle
	headers *transport.HeaderList
}

func (r *resources) release() {
	if r.headers != nil {
		r.headers.Release()
		r.headers = nil
		r.tracker.Released(ResourceHeaders)
	}
	if r.handle != nil {
		r.handle.Close()
		r.handle = nil
		r.tracker.Released(ResourceHandle)
	}
	if r.doc != nil {
		r.doc.Release()
		r.doc = nil
		r.tracker.Released(ResourceDocument)
	}
	if r.payload != nil {
		clear(r.payload)
		r.payload = nil
		r.tracker.Released(ResourcePayload)
	}
}

// Post builds {"key":"value"} and sends it as the body of a single POST.
// It blocks until the transfer finishes and returns a *Error naming the
// failed stage. Every resource acquired is released before returning.
func (s *Sender) Post(ctx context.Context, key, value string) error {
	res := &resources{tracker: s.tracker}
	defer res.release()

	// Build document
	res.doc = s.newDocument()
	if res.doc == nil {
		return s.fail(StageDocumentBuild, errNoDocument)
	}
	s.tracker.Acquired(ResourceDocument)

	// Insert and verify
	if err := res.doc.Set(key, value); err != nil {
		return s.fail(StageInsertionVerification, err)
	}
	got, ok := res.doc.Get(key)
	if !ok {
		return s.fail(StageInsertionVerification, fmt.Errorf("key %q not found after insertion", key))
	}
	if !strings.EqualFold(got, value) {
		return s.fail(StageInsertionVerification, fmt.Errorf("value of %q changed after insertion", key))
	}

	// Serialize
	payload, err := res.doc.MarshalJSON()
	if err != nil {
		return s.fail(StageSerialization, err)
	}
	if len(payload) == 0 {
		return s.fail(StageSerialization, errEmptyOutput)
	}
	res.payload = payload
	s.tracker.Acquired(ResourcePayload)

	// Acquire transport handle
	handle, err := s.newHandle()
	if err != nil {
		return s.fail(StageTransportInit, err)
	}
	res.handle = handle
	s.tracker.Acquired(ResourceHandle)

	// Configure
	res.handle.SetCAInfo(s.opts.CAInfo)
	res.handle.SetUserAgent(transport.UserAgent())

	// A header list that cannot be built leaves the handle unusable, so it
	// counts as a transport init failure like a missing handle.
	res.headers = transport.NewHeaderList()
	s.tracker.Acquired(ResourceHeaders)
	for _, line := range s.headerLines {
		if err := res.headers.Append(line); err != nil {
			return s.fail(StageTransportInit, err)
		}
	}
	res.handle.SetHeaders(res.headers)

	res.handle.SetBody(res.payload)
	res.handle.SetURL(s.opts.URL)
	res.handle.SetVerbose(s.opts.Verbose)
	res.handle.SetOutput(s.opts.Output)

	// Perform
	s.logger.Info("posting json", "url", s.opts.URL, "bytes", len(res.payload))
	if err := res.handle.Perform(ctx); err != nil {
		return s.fail(StageTransport, err)
	}

	s.logger.Info("post complete", "url", s.opts.URL, "status", res.handle.ResponseCode())
	return nil
}

func (s *Sender) fail(stage Stage, err error) *Error {
	e := &Error{Stage: stage, Err: err}
	s.logger.Error("post failed", "stage", string(stage), "error", err)
	return e
}
