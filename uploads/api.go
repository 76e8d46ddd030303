package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// MediaKind is the platform category that selects the upload endpoint and the shape
// of the result payload.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindFile  MediaKind = "file"
	KindAudio MediaKind = "audio"
)

func ParseMediaKind(s string) (MediaKind, error) {
	switch k := MediaKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindImage, KindVideo, KindFile, KindAudio:
		return k, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}

// Endpoint is a single-use upload destination issued by the platform.
type Endpoint struct {
	URL string `json:"url"`
	// Token is issued up front for video and audio.
	Token string `json:"token,omitempty"`
}

// URLProvider negotiates upload destinations with the platform.
type URLProvider interface {
	GetUploadURL(ctx context.Context, kind MediaKind) (*Endpoint, error)
}

// APIClient requests upload URLs from the platform API.
type APIClient struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

func NewAPIClient(httpClient *http.Client, cfg Config) *APIClient {
	return &APIClient{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
	}
}

// GetUploadURL asks the platform for an upload URL for the given media kind.
func (c *APIClient) GetUploadURL(ctx context.Context, kind MediaKind) (*Endpoint, error) {
	endpoint := c.baseURL + "/uploads?" + url.Values{"type": {string(kind)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, &TransferError{Op: "build upload url request", Err: err}
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", c.accessToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransferError{Op: "request upload url", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransferError{Op: "read upload url response", Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &UploadError{Status: resp.StatusCode, Body: body}
	}

	var ep Endpoint
	if err := json.Unmarshal(body, &ep); err != nil {
		return nil, &TransferError{Op: "parse upload url response", Err: err}
	}
	if ep.URL == "" {
		return nil, &TransferError{Op: "parse upload url response", Err: errors.New("no url in response")}
	}
	return &ep, nil
}
