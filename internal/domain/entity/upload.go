package entity

import "time"

const (
	UploadedStatusCreated   = "CREATED"
	UploadedStatusUploading = "UPLOADING"
	UploadedStatusCompleted = "UPLOADED"
	UploadedStatusFailed    = "FAILED"
)

const (
	KindImage = "image"
	KindVideo = "video"
	KindFile  = "file"
	KindAudio = "audio"
)

// Determine whether the given media kind can be uploaded.
func IsMediaKind(kind string) bool {
	switch kind {
	case KindImage, KindVideo, KindFile, KindAudio:
		return true
	}
	return false
}

// The entity of an upload session issued to a client.
type Upload struct {
	Id          string
	Kind        string
	Token       string
	FileName    string
	ContentType string
	Size        int64
	Status      string
	CreatedAt   time.Time
	Progress    *UploadProgress
}

func NewUpload(id, kind, token string) *Upload {
	return &Upload{
		Id:        id,
		Kind:      kind,
		Token:     token,
		Status:    UploadedStatusCreated,
		CreatedAt: time.Now().UTC(),
	}
}

// Start a multipart upload for a file of the given size.
func (u *Upload) NewProgress(multipartId string, size int64) {
	u.Size = size
	u.Status = UploadedStatusUploading
	u.Progress = &UploadProgress{Id: multipartId, Last: -1}
}

// Add a file part to the upload and move the last received byte forward.
func (u *Upload) AddUploadPart(part *Part, last int64) {
	u.Progress.Parts = append(u.Progress.Parts, part)
	u.Progress.Last = last
}

// Get the offset of the next byte expected from the client.
func (u *Upload) NextByte() int64 {
	if u.Progress == nil {
		return 0
	}
	return u.Progress.Last + 1
}

// Mark the upload status.
func (u *Upload) SetStatus(status string) {
	u.Status = status
}

// The upload progress is used for multipart upload.
type UploadProgress struct {
	Id    string  // The upload identifier in multipart upload.
	Last  int64   // The last byte was uploaded to the storage.
	Parts []*Part // A set of parts in multipart upload.
}

// The part portion of the uploaded data.
type Part struct {
	ETag       string // Entity tag for the uploaded object.
	PartNumber int64  // Part number that identifies the part.
}
