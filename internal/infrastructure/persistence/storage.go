package persistence

import (
	"bytes"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/molpadia/molpaupload/internal/domain/entity"
	"golang.org/x/exp/slices"
)

// Storage keeps uploaded media in an AWS S3 bucket.
type Storage struct {
	bucket     string
	s3Uploader *s3manager.Uploader
}

func NewStorage(sess *session.Session, bucket string) *Storage {
	return &Storage{bucket, s3manager.NewUploader(sess)}
}

// Initiates a multipart upload and return an upload ID from remote AWS S3 storage.
func (s *Storage) CreateMultipart(key, contentType string) (string, error) {
	out, err := s.s3Uploader.S3.CreateMultipartUpload(&s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return aws.StringValue(out.UploadId), nil
}

// Mark the multipart upload as completed for the remote AWS S3 storage.
func (s *Storage) CompleteMultipart(key, uploadId string, parts []*entity.Part) error {
	sorted := slices.Clone(parts)
	slices.SortFunc(sorted, func(a, b *entity.Part) int {
		return int(a.PartNumber - b.PartNumber)
	})
	var fileParts []*s3.CompletedPart
	for _, part := range sorted {
		fileParts = append(fileParts, &s3.CompletedPart{
			ETag:       aws.String(part.ETag),
			PartNumber: aws.Int64(part.PartNumber),
		})
	}
	_, err := s.s3Uploader.S3.CompleteMultipartUpload(&s3.CompleteMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		MultipartUpload: &s3.CompletedMultipartUpload{
			Parts: fileParts,
		},
		UploadId: aws.String(uploadId),
	})
	return err
}

// Abort the multipart upload and release its stored parts.
func (s *Storage) AbortMultipart(key, uploadId string) error {
	_, err := s.s3Uploader.S3.AbortMultipartUpload(&s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadId),
	})
	return err
}

// Upload an entire file to remote AWS S3 storage.
func (s *Storage) SimpleUpload(key, contentType string, body []byte) error {
	_, err := s.s3Uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(body),
	})
	return err
}

// Upload a file part to remote AWS S3 storage.
func (s *Storage) UploadPart(key, uploadId string, body []byte, partNumber int64) (*entity.Part, error) {
	out, err := s.s3Uploader.S3.UploadPart(&s3.UploadPartInput{
		Body:          bytes.NewReader(body),
		Bucket:        aws.String(s.bucket),
		ContentLength: aws.Int64(int64(len(body))),
		Key:           aws.String(key),
		PartNumber:    aws.Int64(partNumber),
		UploadId:      aws.String(uploadId),
	})
	if err != nil {
		return nil, err
	}
	return &entity.Part{ETag: aws.StringValue(out.ETag), PartNumber: partNumber}, nil
}
