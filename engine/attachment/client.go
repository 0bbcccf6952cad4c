package attachment

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
)

// File is a staged artifact in the remote file store.
type File struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	MIME string `json:"mime,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// Client stages files against an object-storage style files API so a flow can
// reference them from its seeded history.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL, apiKey string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey)
	return &Client{http: http}
}

// Create uploads the file at path with its detected MIME type and returns the
// staged file handle.
func (c *Client) Create(ctx context.Context, path string) (*File, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect mime type of %s: %w", path, err)
	}
	staged := &File{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", path).
		SetFormData(map[string]string{
			"name": filepath.Base(path),
			"mime": mtype.String(),
		}).
		SetResult(staged).
		Post("/files")
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("upload of %s rejected: %s", path, resp.Status())
	}
	if staged.ID == "" {
		return nil, fmt.Errorf("upload of %s returned no file id", path)
	}
	if staged.Name == "" {
		staged.Name = filepath.Base(path)
	}
	if staged.MIME == "" {
		staged.MIME = mtype.String()
	}
	return staged, nil
}

// Delete removes a staged file. Callers treat failures as best-effort cleanup
// and only log them.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/files/" + id)
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", id, err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete of file %s rejected: %s", id, resp.Status())
	}
	return nil
}
