package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/molpadia/molpaupload/internal/domain/entity"
	"github.com/molpadia/molpaupload/internal/domain/repository"
	"github.com/molpadia/molpaupload/internal/httprange"
)

const (
	MaxUploadChunkSize = 64 << 20
	MaxUploadFileSize  = 64 << 20
	// DefaultMinPartSize is the smallest part S3 accepts in a multipart upload.
	DefaultMinPartSize = 5 << 20
)

type controller struct {
	uploads repository.UploadRepository
	storage repository.Storage
	opts    Options
	locks   sync.Map
}

func newController(uploads repository.UploadRepository, storage repository.Storage, opts Options) *controller {
	return &controller{uploads: uploads, storage: storage, opts: opts}
}

// Issue a new upload URL for the requested media kind.
func (c *controller) createUpload(w http.ResponseWriter, r *http.Request) error {
	kind := r.URL.Query().Get("type")
	if !entity.IsMediaKind(kind) {
		return &AppError{http.StatusBadRequest, "Invalid upload type"}
	}
	upload := entity.NewUpload(uuid.NewString(), kind, uuid.NewString())
	if err := c.uploads.Save(upload); err != nil {
		return fmt.Errorf("failed to save upload: %v", err)
	}

	resp := UploadURLResponse{URL: c.publicURL(r) + "/upload/" + upload.Id}
	// Video and audio tokens are known before the upload starts.
	if kind == entity.KindVideo || kind == entity.KindAudio {
		resp.Token = upload.Token
	}
	return replyJSON(w, resp, http.StatusOK)
}

// Get the state of an upload.
func (c *controller) getUpload(w http.ResponseWriter, r *http.Request) error {
	upload, err := c.findUpload(r)
	if err != nil {
		return err
	}
	return replyJSON(w, UploadResponse{
		Id:          upload.Id,
		Kind:        upload.Kind,
		Status:      upload.Status,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
		Size:        upload.Size,
		Received:    upload.NextByte(),
		CreatedAt:   upload.CreatedAt,
	}, http.StatusOK)
}

// Receive a file, either as one Content-Range chunk or as a multipart form.
func (c *controller) uploadFile(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["id"]
	if id == "" {
		return &AppError{http.StatusBadRequest, "upload ID must be required"}
	}
	// Chunks of one upload are applied one at a time.
	v, _ := c.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	upload, err := c.findUpload(r)
	if err != nil {
		return err
	}
	if isFinished(upload) {
		c.locks.Delete(id)
		return &AppError{http.StatusConflict, fmt.Sprintf("upload is already %s", strings.ToLower(upload.Status))}
	}
	defer func() {
		// Later requests to a finished upload are rejected without the lock.
		if isFinished(upload) {
			c.locks.Delete(id)
		}
	}()
	if r.Header.Get("Content-Range") != "" {
		return c.receiveChunk(w, r, upload)
	}
	return c.receiveForm(w, r, upload)
}

func isFinished(upload *entity.Upload) bool {
	return upload.Status == entity.UploadedStatusCompleted || upload.Status == entity.UploadedStatusFailed
}

// Store one chunk of a resumable upload as a multipart part.
func (c *controller) receiveChunk(w http.ResponseWriter, r *http.Request, upload *entity.Upload) error {
	cr, err := httprange.ParseContentRange(r.Header.Get("Content-Range"))
	if err != nil {
		return &AppError{http.StatusBadRequest, fmt.Sprintf("cannot parse Content-Range header: %v", err)}
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadChunkSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &AppError{http.StatusRequestEntityTooLarge, fmt.Sprintf("size must be less than %d bytes", MaxUploadChunkSize)}
		}
		return &AppError{http.StatusBadRequest, fmt.Sprintf("cannot read chunk: %v", err)}
	}
	if int64(len(data)) != cr.Length() {
		return &AppError{http.StatusBadRequest, "invalid length of Content-Range header"}
	}
	if cr.Start != upload.NextByte() {
		return &AppError{http.StatusBadRequest, fmt.Sprintf("chunk must start at byte %d", upload.NextByte())}
	}
	if upload.Progress != nil && cr.Size != upload.Size {
		return &AppError{http.StatusBadRequest, "invalid size of Content-Range header"}
	}
	if !cr.IsLastByte() && cr.Length() < c.opts.MinPartSize {
		return &AppError{http.StatusBadRequest, fmt.Sprintf("size must be at least %d bytes", c.opts.MinPartSize)}
	}

	if upload.Progress == nil {
		upload.FileName = fileName(r.Header.Get("Content-Disposition"))
		upload.ContentType = mimetype.Detect(data).String()
		multipartId, err := c.storage.CreateMultipart(upload.Id, upload.ContentType)
		if err != nil {
			return fmt.Errorf("failed to create multipart upload: %v", err)
		}
		upload.NewProgress(multipartId, cr.Size)
	}
	part, err := c.storage.UploadPart(upload.Id, upload.Progress.Id, data, int64(len(upload.Progress.Parts))+1)
	if err != nil {
		return fmt.Errorf("failed to partial upload: %v", err)
	}
	upload.AddUploadPart(part, cr.End)

	if cr.IsLastByte() {
		if err := c.storage.CompleteMultipart(upload.Id, upload.Progress.Id, upload.Progress.Parts); err != nil {
			upload.SetStatus(entity.UploadedStatusFailed)
			if abortErr := c.storage.AbortMultipart(upload.Id, upload.Progress.Id); abortErr != nil {
				err = fmt.Errorf("%v: abort: %v", err, abortErr)
			}
			if saveErr := c.uploads.Save(upload); saveErr != nil {
				err = fmt.Errorf("%v: save: %v", err, saveErr)
			}
			return fmt.Errorf("failed to complete multipart upload: %v", err)
		}
		upload.SetStatus(entity.UploadedStatusCompleted)
	}
	if err := c.uploads.Save(upload); err != nil {
		return fmt.Errorf("failed to save upload: %v", err)
	}
	return replyJSON(w, result(upload), http.StatusOK)
}

// Store a file sent as the "data" field of a multipart form.
func (c *controller) receiveForm(w http.ResponseWriter, r *http.Request, upload *entity.Upload) error {
	if upload.Progress != nil {
		return &AppError{http.StatusConflict, "upload is in progress as chunks"}
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadFileSize)
	file, header, err := r.FormFile("data")
	if err != nil {
		return &AppError{http.StatusBadRequest, fmt.Sprintf("data field must be required: %v", err)}
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return &AppError{http.StatusBadRequest, fmt.Sprintf("cannot read data field: %v", err)}
	}

	upload.FileName = header.Filename
	upload.ContentType = mimetype.Detect(data).String()
	upload.Size = int64(len(data))
	if err := c.storage.SimpleUpload(upload.Id, upload.ContentType, data); err != nil {
		return fmt.Errorf("failed to upload file: %v", err)
	}
	upload.SetStatus(entity.UploadedStatusCompleted)
	if err := c.uploads.Save(upload); err != nil {
		return fmt.Errorf("failed to save upload: %v", err)
	}
	return replyJSON(w, result(upload), http.StatusOK)
}

func (c *controller) findUpload(r *http.Request) (*entity.Upload, error) {
	id := mux.Vars(r)["id"]
	if id == "" {
		return nil, &AppError{http.StatusBadRequest, "upload ID must be required"}
	}
	upload, err := c.uploads.GetById(id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve upload: %v", err)
	}
	if upload == nil {
		return nil, &AppError{http.StatusNotFound, "upload ID does not exist"}
	}
	return upload, nil
}

func (c *controller) publicURL(r *http.Request) string {
	if c.opts.PublicURL != "" {
		return strings.TrimRight(c.opts.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// Build the payload a client receives for an accepted upload.
func result(upload *entity.Upload) interface{} {
	if upload.Kind == entity.KindImage {
		return PhotosResponse{Photos: map[string]PhotoToken{upload.Id: {Token: upload.Token}}}
	}
	return TokenResponse{Token: upload.Token}
}

// Get the file name declared by a Content-Disposition header.
func fileName(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// Respond the output with JSON format to the client.
func replyJSON(w http.ResponseWriter, data interface{}, code int) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return err
	}
	return nil
}
