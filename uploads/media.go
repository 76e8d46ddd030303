package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// MediaRequest describes one media upload. Images may carry a URL instead of a
// source, in which case nothing is uploaded.
type MediaRequest struct {
	Source  FileSource
	URL     string
	Timeout time.Duration
}

// MediaToken is the payload returned for video, file and audio uploads.
type MediaToken struct {
	ID    int64  `json:"id,omitempty"`
	Token string `json:"token"`
}

type PhotoToken struct {
	Token string `json:"token"`
}

// ImageResult is either a pass-through URL or the uploaded photo tokens keyed by size.
type ImageResult struct {
	URL    string                `json:"url,omitempty"`
	Photos map[string]PhotoToken `json:"photos,omitempty"`
}

// Image uploads an image, or passes its URL through untouched.
func (u *Uploader) Image(ctx context.Context, req MediaRequest) (*ImageResult, error) {
	if req.URL != "" {
		return &ImageResult{URL: req.URL}, nil
	}
	raw, _, err := u.uploadSource(ctx, KindImage, req)
	if err != nil {
		return nil, err
	}
	var res ImageResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &TransferError{Op: "decode image result", Err: err}
	}
	return &res, nil
}

func (u *Uploader) Video(ctx context.Context, req MediaRequest) (*MediaToken, error) {
	return u.uploadToken(ctx, KindVideo, req)
}

func (u *Uploader) File(ctx context.Context, req MediaRequest) (*MediaToken, error) {
	return u.uploadToken(ctx, KindFile, req)
}

func (u *Uploader) Audio(ctx context.Context, req MediaRequest) (*MediaToken, error) {
	return u.uploadToken(ctx, KindAudio, req)
}

func (u *Uploader) uploadToken(ctx context.Context, kind MediaKind, req MediaRequest) (*MediaToken, error) {
	raw, ep, err := u.uploadSource(ctx, kind, req)
	if err != nil {
		return nil, err
	}
	var res MediaToken
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &TransferError{Op: "decode " + string(kind) + " result", Err: err}
	}
	// Video and audio tokens are issued with the upload URL.
	if res.Token == "" {
		res.Token = ep.Token
	}
	return &res, nil
}

func (u *Uploader) uploadSource(ctx context.Context, kind MediaKind, req MediaRequest) (json.RawMessage, *Endpoint, error) {
	if req.Source.kind == 0 {
		return nil, nil, &IOError{Op: "upload " + string(kind), Err: errors.New("no source given")}
	}
	file, err := Normalize(req.Source)
	if err != nil {
		return nil, nil, err
	}
	var opts []CallOption
	if req.Timeout > 0 {
		opts = append(opts, WithTimeout(req.Timeout))
	}
	return u.upload(ctx, kind, file, opts...)
}
