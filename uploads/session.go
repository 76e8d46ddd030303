// Package uploads transfers media files to the platform's upload servers.
//
// An upload negotiates a single-use URL for a media kind, then sends the file either
// as sequential Content-Range chunks (streams and files on disk) or as one multipart
// request (in-memory buffers). The platform's JSON payload is returned as is.
package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/molpadia/molpaupload/internal/httpclient"
)

// Uploader runs uploads against one platform. It is safe for concurrent use; every
// upload owns its own session.
type Uploader struct {
	urls       URLProvider
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
}

type Option func(*Uploader)

// WithHTTPClient sets the client used for transfer requests.
func WithHTTPClient(c *http.Client) Option {
	return func(u *Uploader) { u.httpClient = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(u *Uploader) { u.logger = l }
}

// WithURLProvider replaces the platform API client.
func WithURLProvider(p URLProvider) Option {
	return func(u *Uploader) { u.urls = p }
}

func New(cfg Config, opts ...Option) *Uploader {
	u := &Uploader{config: cfg}
	for _, opt := range opts {
		opt(u)
	}
	if u.httpClient == nil {
		u.httpClient = httpclient.NewHTTPClient(nil)
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	if u.urls == nil {
		u.urls = NewAPIClient(u.httpClient, cfg)
	}
	return u
}

type callOptions struct {
	timeout time.Duration
}

type CallOption func(*callOptions)

// WithTimeout overrides the configured deadline of a single upload.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

// session is the state of one upload call.
type session struct {
	endpoint *Endpoint
}

// Upload sends file to a freshly negotiated upload URL and returns the platform's
// payload. The transfer is aborted once the deadline passes; the URL request itself
// is bounded only by ctx.
func (u *Uploader) Upload(ctx context.Context, kind MediaKind, file UploadFile, opts ...CallOption) (json.RawMessage, error) {
	result, _, err := u.upload(ctx, kind, file, opts...)
	return result, err
}

func (u *Uploader) upload(ctx context.Context, kind MediaKind, file UploadFile, opts ...CallOption) (json.RawMessage, *Endpoint, error) {
	o := callOptions{timeout: u.config.timeout()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = u.config.timeout()
	}
	if s, ok := file.(*FileStream); ok {
		defer func() {
			if err := s.Close(); err != nil {
				u.logger.Warn("cannot close upload file", "file", s.FileName, "error", err)
			}
		}()
	}

	ep, err := u.urls.GetUploadURL(ctx, kind)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot get %s upload url: %w", kind, err)
	}
	sess := &session{endpoint: ep}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	started := time.Now()
	logger := u.logger.With("kind", kind, "file", file.Name())
	logger.Debug("upload started", "timeout", o.timeout)

	var result json.RawMessage
	switch f := file.(type) {
	case *FileStream:
		result, err = u.sendStream(ctx, sess, f, logger)
	case *FileBuffer:
		result, err = u.sendBuffer(ctx, sess, f)
	default:
		err = fmt.Errorf("unsupported upload file %T", file)
	}
	if err != nil {
		logger.Debug("upload failed", "error", err, "elapsed", time.Since(started))
		return nil, ep, err
	}
	logger.Info("upload finished", "elapsed", time.Since(started))
	return result, ep, nil
}

// UploadAs uploads file and decodes the platform's payload into T.
func UploadAs[T any](ctx context.Context, u *Uploader, kind MediaKind, file UploadFile, opts ...CallOption) (T, error) {
	var out T
	raw, err := u.Upload(ctx, kind, file, opts...)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &TransferError{Op: "decode upload result", Err: err}
	}
	return out, nil
}

// transferError reports a failed request, preferring the context's error when the
// upload was aborted.
func transferError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return &TransferError{Op: op, Err: err}
}
