package uploads

import (
	"io"
	"sync"
)

// UploadFile is a source normalized for transfer. It is either a *FileStream or a
// *FileBuffer and is consumed by exactly one upload.
type UploadFile interface {
	// Name is the file name declared to the upload server.
	Name() string

	uploadFile()
}

// FileStream is a byte stream of a known total length, sent in Content-Range chunks.
type FileStream struct {
	FileName      string
	Reader        io.Reader
	ContentLength int64

	// closer is set when the stream was opened by Normalize and must be released
	// by the upload.
	closer    io.Closer
	closeOnce sync.Once
	closeErr  error
}

func (f *FileStream) Name() string { return f.FileName }

// Close releases the file opened by Normalize. Caller-supplied streams are left open.
// It is safe to call concurrently with a pending Read.
func (f *FileStream) Close() error {
	f.closeOnce.Do(func() {
		if f.closer != nil {
			f.closeErr = f.closer.Close()
		}
	})
	return f.closeErr
}

func (*FileStream) uploadFile() {}

// FileBuffer is a fully materialized file, sent as a single multipart request.
type FileBuffer struct {
	FileName string
	Data     []byte
}

func (f *FileBuffer) Name() string { return f.FileName }

func (*FileBuffer) uploadFile() {}
