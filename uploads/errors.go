package uploads

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotAFile is matched by every *NotAFileError.
	ErrNotAFile = errors.New("not a regular file")
	// ErrIncompleteUpload is matched by every *IncompleteUploadError.
	ErrIncompleteUpload = errors.New("upload incomplete")
)

// NotAFileError is returned when a path source does not resolve to a regular file.
// It is raised before any network activity.
type NotAFileError struct {
	Path string
}

func (e *NotAFileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, ErrNotAFile)
}

func (e *NotAFileError) Is(target error) bool { return target == ErrNotAFile }

// IOError is returned when the metadata or bytes of a source cannot be read.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// UploadError is returned when the platform rejects a request with status >= 400.
// Body holds the response payload as received.
type UploadError struct {
	Status int
	Body   []byte
}

func (e *UploadError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("upload rejected: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("upload rejected: %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// TransferError is a network or stream fault without a structured server payload,
// including an abort caused by the upload deadline.
type TransferError struct {
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed: %s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// IncompleteUploadError is returned when a stream ended without the platform ever
// answering with a usable payload.
type IncompleteUploadError struct {
	FileName string
	Sent     int64
}

func (e *IncompleteUploadError) Error() string {
	return fmt.Sprintf("%s: %s after %d bytes: no result payload received", e.FileName, ErrIncompleteUpload, e.Sent)
}

func (e *IncompleteUploadError) Is(target error) bool { return target == ErrIncompleteUpload }
