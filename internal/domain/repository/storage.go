package repository

import "github.com/molpadia/molpaupload/internal/domain/entity"

type Storage interface {
	// Initiates a multipart upload and return an upload ID from the remote storage.
	CreateMultipart(key, contentType string) (string, error)
	// Mark the multipart upload as completed.
	CompleteMultipart(key, uploadId string, parts []*entity.Part) error
	// Discard the parts of an unfinished multipart upload.
	AbortMultipart(key, uploadId string) error
	// Upload an entire file to the remote storage.
	SimpleUpload(key, contentType string, body []byte) error
	// Upload a file part to the remote storage.
	UploadPart(key, uploadId string, body []byte, partNumber int64) (*entity.Part, error)
}
