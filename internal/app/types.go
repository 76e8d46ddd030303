package app

import "time"

// UploadURLResponse is returned when a client asks for a new upload destination.
type UploadURLResponse struct {
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type PhotoToken struct {
	Token string `json:"token"`
}

type PhotosResponse struct {
	Photos map[string]PhotoToken `json:"photos"`
}

type UploadResponse struct {
	Id          string    `json:"id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	FileName    string    `json:"fileName,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	Received    int64     `json:"received"`
	CreatedAt   time.Time `json:"createdAt"`
}
