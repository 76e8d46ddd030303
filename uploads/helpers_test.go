package uploads

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type fakeURLs struct {
	mu       sync.Mutex
	endpoint *Endpoint
	err      error
	calls    []MediaKind
}

func (f *fakeURLs) GetUploadURL(ctx context.Context, kind MediaKind) (*Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, kind)
	if f.err != nil {
		return nil, f.err
	}
	return f.endpoint, nil
}

type recordedRequest struct {
	Header http.Header
	Body   []byte
}

// uploadServer replies to the n-th request (0-based) with respond(n, w, r).
type uploadServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newUploadServer(t *testing.T, respond func(n int, w http.ResponseWriter, r *http.Request)) *uploadServer {
	t.Helper()
	s := &uploadServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		n := len(s.requests)
		s.requests = append(s.requests, recordedRequest{Header: r.Header.Clone(), Body: body})
		s.mu.Unlock()
		respond(n, w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *uploadServer) recorded() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedRequest(nil), s.requests...)
}

func newTestUploader(t *testing.T, cfg Config, urls URLProvider) *Uploader {
	t.Helper()
	return New(cfg,
		WithURLProvider(urls),
		WithHTTPClient(&http.Client{}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
