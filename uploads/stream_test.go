package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendStreamRanges(t *testing.T) {
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		if n == 0 {
			writeJSON(w, http.StatusOK, `{"id":7,"token":"abc"}`)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	urls := &fakeURLs{endpoint: &Endpoint{URL: srv.URL + "/upload"}}
	u := newTestUploader(t, Config{ChunkSize: 1000}, urls)

	data := bytes.Repeat([]byte("x"), 1500)
	file := &FileStream{FileName: "clip.mp4", Reader: bytes.NewReader(data), ContentLength: 1500}

	res, err := u.Upload(context.Background(), KindVideo, file)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"token":"abc"}`, string(res))
	assert.Equal(t, []MediaKind{KindVideo}, urls.calls)

	reqs := srv.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "bytes 0-999/1500", reqs[0].Header.Get("Content-Range"))
	assert.Equal(t, "bytes 1000-1499/1500", reqs[1].Header.Get("Content-Range"))
	assert.Len(t, reqs[0].Body, 1000)
	assert.Len(t, reqs[1].Body, 500)
	for _, r := range reqs {
		assert.Equal(t, `attachment; filename="clip.mp4"`, r.Header.Get("Content-Disposition"))
	}
	assert.Equal(t, data, append(reqs[0].Body, reqs[1].Body...))
}

func TestSendStreamKeepsFirstPayload(t *testing.T) {
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		if n == 0 {
			_, _ = w.Write([]byte("accepted"))
			return
		}
		writeJSON(w, http.StatusOK, `{"token":"chunk-`+string(rune('0'+n))+`"}`)
	})
	u := newTestUploader(t, Config{ChunkSize: 4}, &fakeURLs{endpoint: &Endpoint{URL: srv.URL}})
	file := &FileStream{FileName: "a.bin", Reader: strings.NewReader("0123456789"), ContentLength: 10}

	res, err := u.Upload(context.Background(), KindFile, file)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"chunk-1"}`, string(res))
	assert.Len(t, srv.recorded(), 3)
}

func TestSendStreamRejectedChunk(t *testing.T) {
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		if n == 1 {
			writeJSON(w, http.StatusBadRequest, `{"code":"bad.range","message":"invalid range"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"token":"abc"}`)
	})
	u := newTestUploader(t, Config{ChunkSize: 4}, &fakeURLs{endpoint: &Endpoint{URL: srv.URL}})
	file := &FileStream{FileName: "a.bin", Reader: strings.NewReader("0123456789"), ContentLength: 10}

	_, err := u.Upload(context.Background(), KindFile, file)
	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, http.StatusBadRequest, uploadErr.Status)
	assert.JSONEq(t, `{"code":"bad.range","message":"invalid range"}`, string(uploadErr.Body))
	assert.Len(t, srv.recorded(), 2, "no chunk may follow a rejected one")
}

func TestSendStreamEmpty(t *testing.T) {
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"token":"abc"}`)
	})
	u := newTestUploader(t, Config{}, &fakeURLs{endpoint: &Endpoint{URL: srv.URL}})
	file := &FileStream{FileName: "empty.bin", Reader: strings.NewReader(""), ContentLength: 0}

	_, err := u.Upload(context.Background(), KindFile, file)
	var incomplete *IncompleteUploadError
	require.ErrorAs(t, err, &incomplete)
	assert.ErrorIs(t, err, ErrIncompleteUpload)
	assert.Equal(t, "empty.bin", incomplete.FileName)
	assert.Empty(t, srv.recorded())
}

func TestSendStreamNoPayload(t *testing.T) {
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	u := newTestUploader(t, Config{ChunkSize: 4}, &fakeURLs{endpoint: &Endpoint{URL: srv.URL}})
	file := &FileStream{FileName: "a.bin", Reader: strings.NewReader("0123456789"), ContentLength: 10}

	_, err := u.Upload(context.Background(), KindFile, file)
	assert.ErrorIs(t, err, ErrIncompleteUpload)
	assert.Len(t, srv.recorded(), 3)
}

func TestSendStreamReadError(t *testing.T) {
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"token":"abc"}`)
	})
	u := newTestUploader(t, Config{ChunkSize: 4}, &fakeURLs{endpoint: &Endpoint{URL: srv.URL}})
	readErr := errors.New("disk failure")
	file := &FileStream{FileName: "a.bin", Reader: &failingReader{data: []byte("0123"), err: readErr}, ContentLength: 10}

	_, err := u.Upload(context.Background(), KindFile, file)
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.ErrorIs(t, err, readErr)
	assert.Len(t, srv.recorded(), 1)
}

func TestSendStreamExceedsLength(t *testing.T) {
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"token":"abc"}`)
	})
	u := newTestUploader(t, Config{ChunkSize: 4}, &fakeURLs{endpoint: &Endpoint{URL: srv.URL}})
	file := &FileStream{FileName: "a.bin", Reader: strings.NewReader("0123456789"), ContentLength: 6}

	_, err := u.Upload(context.Background(), KindFile, file)
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Len(t, srv.recorded(), 1)
}

func TestSendStreamDeadline(t *testing.T) {
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		if n == 0 {
			writeJSON(w, http.StatusOK, `{"token":"abc"}`)
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	u := newTestUploader(t, Config{ChunkSize: 4}, &fakeURLs{endpoint: &Endpoint{URL: srv.URL}})
	file := &FileStream{FileName: "a.bin", Reader: strings.NewReader("0123456789"), ContentLength: 10}

	started := time.Now()
	_, err := u.Upload(context.Background(), KindFile, file, WithTimeout(100*time.Millisecond))
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Len(t, srv.recorded(), 2, "no chunk may be sent after the deadline")
}

func TestSendStreamCancelledContext(t *testing.T) {
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"token":"abc"}`)
	})
	urls := &fakeURLs{endpoint: &Endpoint{URL: srv.URL}}
	u := newTestUploader(t, Config{ChunkSize: 4}, urls)
	file := &FileStream{FileName: "a.bin", Reader: strings.NewReader("0123456789"), ContentLength: 10}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := u.Upload(ctx, KindFile, file)
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, srv.recorded())
}

func TestSendStreamDeadlineDuringRead(t *testing.T) {
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"token":"x"}`)
	})
	u := newTestUploader(t, Config{}, &fakeURLs{endpoint: &Endpoint{URL: srv.URL}})
	file := &FileStream{FileName: "a.bin", Reader: &stallingReader{data: []byte("0123"), stall: 300 * time.Millisecond}, ContentLength: 4}

	_, err := u.Upload(context.Background(), KindFile, file, WithTimeout(50*time.Millisecond))
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, srv.recorded())
}

func TestSendStreamDeadlineUnblocksOpenedFile(t *testing.T) {
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"token":"x"}`)
	})
	u := newTestUploader(t, Config{ChunkSize: 4}, &fakeURLs{endpoint: &Endpoint{URL: srv.URL}})
	pipe := newBlockingFile([]byte("0123"))
	file := &FileStream{FileName: "a.bin", Reader: pipe, ContentLength: 10, closer: pipe}

	started := time.Now()
	_, err := u.Upload(context.Background(), KindFile, file, WithTimeout(50*time.Millisecond))
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.Len(t, srv.recorded(), 1)
}

func TestSendStreamOneChunkInFlight(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	srv := newUploadServer(t, func(n int, w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		writeJSON(w, http.StatusOK, `{"token":"abc"}`)
	})
	u := newTestUploader(t, Config{ChunkSize: 2}, &fakeURLs{endpoint: &Endpoint{URL: srv.URL}})
	file := &FileStream{FileName: "a.bin", Reader: strings.NewReader("0123456789"), ContentLength: 10}

	_, err := u.Upload(context.Background(), KindFile, file)
	require.NoError(t, err)
	assert.Len(t, srv.recorded(), 5)
	assert.Equal(t, int32(1), maxInFlight.Load())
}

// stallingReader returns data, then waits before reporting EOF.
type stallingReader struct {
	data  []byte
	stall time.Duration
}

func (r *stallingReader) Read(p []byte) (int, error) {
	if len(r.data) > 0 {
		n := copy(p, r.data)
		r.data = r.data[n:]
		return n, nil
	}
	time.Sleep(r.stall)
	return 0, io.EOF
}

// blockingFile returns data, then blocks until it is closed.
type blockingFile struct {
	data   []byte
	closed chan struct{}
}

func newBlockingFile(data []byte) *blockingFile {
	return &blockingFile{data: data, closed: make(chan struct{})}
}

func (f *blockingFile) Read(p []byte) (int, error) {
	if len(f.data) > 0 {
		n := copy(p, f.data)
		f.data = f.data[n:]
		return n, nil
	}
	<-f.closed
	return 0, os.ErrClosed
}

func (f *blockingFile) Close() error {
	close(f.closed)
	return nil
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}
