package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/molpadia/molpaupload/internal/httprange"
)

// sendStream uploads f in sequential Content-Range chunks. The next chunk is read
// only after the previous request completed.
func (u *Uploader) sendStream(ctx context.Context, sess *session, f *FileStream, logger *slog.Logger) (json.RawMessage, error) {
	var (
		offset int64 = -1 // last byte already sent
		result json.RawMessage
	)
	size := u.config.chunkSize()
	// Closing the file unblocks a read pending at the deadline.
	if f.closer != nil {
		stop := context.AfterFunc(ctx, func() { _ = f.Close() })
		defer stop()
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, &TransferError{Op: "send chunk", Err: err}
		}
		// Chunks never share memory with a request still owned by the transport.
		bufSize := size
		// One byte past the declared length is read to detect an overlong stream.
		if rem := f.ContentLength - offset - 1; rem < int64(bufSize) {
			bufSize = int(rem) + 1
		}
		buf := make([]byte, bufSize)
		n, err := io.ReadFull(f.Reader, buf)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &TransferError{Op: "read stream", Err: ctxErr}
		}
		last := err == io.EOF || err == io.ErrUnexpectedEOF
		if err != nil && !last {
			return nil, &TransferError{Op: "read stream", Err: err}
		}
		if n > 0 {
			if offset+int64(n) >= f.ContentLength {
				return nil, &TransferError{
					Op:  "read stream",
					Err: fmt.Errorf("stream exceeds declared length %d", f.ContentLength),
				}
			}
			cr := httprange.NewContentRange(offset+1, int64(n), f.ContentLength)
			body, err := u.sendChunk(ctx, sess.endpoint.URL, f.FileName, cr, buf[:n])
			if err != nil {
				return nil, err
			}
			logger.Debug("chunk sent", "range", cr.String())
			if result == nil && len(body) > 0 && json.Valid(body) {
				result = body
			}
			offset += int64(n)
		}
		if last {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &TransferError{Op: "send stream", Err: err}
	}
	if result == nil {
		return nil, &IncompleteUploadError{FileName: f.FileName, Sent: offset + 1}
	}
	return result, nil
}

// sendChunk posts one chunk and returns the response body.
func (u *Uploader) sendChunk(ctx context.Context, uploadURL, name string, cr *httprange.ContentRange, chunk []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(chunk))
	if err != nil {
		return nil, &TransferError{Op: "build chunk request", Err: err}
	}
	req.Header.Set("Content-Disposition", contentDisposition(name))
	req.Header.Set("Content-Range", cr.String())
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, transferError(ctx, "send chunk "+cr.String(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transferError(ctx, "read chunk response", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &UploadError{Status: resp.StatusCode, Body: body}
	}
	return body, nil
}

func contentDisposition(name string) string {
	return `attachment; filename="` + quoteEscaper.Replace(name) + `"`
}
