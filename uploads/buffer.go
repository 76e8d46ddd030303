package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// formField is the multipart field carrying the file.
const formField = "data"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// sendBuffer uploads f as a single multipart request and returns the response body.
// Unless StrictStatus is set, the status code is not inspected.
func (u *Uploader) sendBuffer(ctx context.Context, sess *session, f *FileBuffer) (json.RawMessage, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, formField, quoteEscaper.Replace(f.FileName)))
	h.Set("Content-Type", mimetype.Detect(f.Data).String())
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, &TransferError{Op: "create multipart field", Err: err}
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, &TransferError{Op: "write multipart field", Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &TransferError{Op: "finalize multipart payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sess.endpoint.URL, &buf)
	if err != nil {
		return nil, &TransferError{Op: "build upload request", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, transferError(ctx, "send file", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transferError(ctx, "read upload response", err)
	}
	if u.config.StrictStatus && resp.StatusCode >= http.StatusBadRequest {
		return nil, &UploadError{Status: resp.StatusCode, Body: body}
	}
	if !json.Valid(body) {
		return nil, &TransferError{
			Op:  "parse upload response",
			Err: fmt.Errorf("status %d: body is not valid JSON", resp.StatusCode),
		}
	}
	return body, nil
}
