package uploads

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var errUnknownLength = errors.New("stream does not report its length")

type sourceKind int

const (
	sourcePath sourceKind = iota + 1
	sourceBuffer
	sourceStream
)

// FileSource is what a caller hands in for upload: a path on disk, a byte buffer,
// or an open stream. Build one with Path, Buffer or Stream.
type FileSource struct {
	kind   sourceKind
	path   string
	data   []byte
	stream io.Reader
}

// Path selects a regular file on disk.
func Path(path string) FileSource { return FileSource{kind: sourcePath, path: path} }

// Buffer selects an in-memory file. The file name is generated.
func Buffer(data []byte) FileSource { return FileSource{kind: sourceBuffer, data: data} }

// Stream selects an already open reader. Its length is taken from Stat() when it is
// backed by a regular file, from the file named by Name(), or else from Len() or
// Size(). Readers exposing none of these cannot be uploaded; wrap them in an
// io.SectionReader or read them into a Buffer.
func Stream(r io.Reader) FileSource { return FileSource{kind: sourceStream, stream: r} }

type (
	statter interface {
		Stat() (fs.FileInfo, error)
	}
	namer interface {
		Name() string
	}
	lener interface {
		Len() int
	}
	sizer interface {
		Size() int64
	}
)

// Normalize converts a FileSource into the UploadFile a transmitter consumes.
// A path source opens a file which is owned by the returned *FileStream.
func Normalize(src FileSource) (UploadFile, error) {
	switch src.kind {
	case sourcePath:
		return normalizePath(src.path)
	case sourceBuffer:
		if src.data == nil {
			return nil, &IOError{Op: "read buffer", Err: errors.New("nil buffer")}
		}
		return &FileBuffer{FileName: uuid.NewString(), Data: src.data}, nil
	case sourceStream:
		return normalizeStream(src.stream)
	default:
		return nil, &IOError{Op: "normalize", Err: errors.New("empty file source")}
	}
}

func normalizePath(path string) (UploadFile, error) {
	if path == "" {
		return nil, &IOError{Op: "stat", Err: errors.New("empty path")}
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &NotAFileError{Path: path}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	return &FileStream{
		FileName:      filepath.Base(path),
		Reader:        f,
		ContentLength: info.Size(),
		closer:        f,
	}, nil
}

func normalizeStream(r io.Reader) (UploadFile, error) {
	if r == nil {
		return nil, &IOError{Op: "read stream", Err: errors.New("nil stream")}
	}
	if info, err := statStream(r); err != nil {
		return nil, err
	} else if info != nil {
		name := info.Name()
		if n, ok := r.(namer); ok && n.Name() != "" {
			name = filepath.Base(n.Name())
		}
		if name == "" {
			name = uuid.NewString()
		}
		return &FileStream{FileName: name, Reader: r, ContentLength: info.Size()}, nil
	}

	var length int64
	switch v := r.(type) {
	case lener:
		length = int64(v.Len())
	case sizer:
		length = v.Size()
	default:
		return nil, &IOError{Op: "size", Err: errUnknownLength}
	}
	if length < 0 {
		return nil, &IOError{Op: "size", Err: fmt.Errorf("negative length %d", length)}
	}
	return &FileStream{FileName: uuid.NewString(), Reader: r, ContentLength: length}, nil
}

// statStream returns the info of the regular file behind r, or nil when r is not
// backed by one.
func statStream(r io.Reader) (fs.FileInfo, error) {
	if s, ok := r.(statter); ok {
		info, err := s.Stat()
		if err != nil {
			return nil, &IOError{Op: "stat", Err: err}
		}
		if info.Mode().IsRegular() {
			return info, nil
		}
		return nil, nil
	}
	if n, ok := r.(namer); ok && n.Name() != "" {
		info, err := os.Stat(n.Name())
		if err != nil {
			return nil, &IOError{Op: "stat", Path: n.Name(), Err: err}
		}
		if info.Mode().IsRegular() {
			return info, nil
		}
	}
	return nil, nil
}
