package gdrive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
)

// MimeTypeFolder is the Drive MIME type for folders.
const MimeTypeFolder = "application/vnd.google-apps.folder"

// MaxDataFileSize bounds data file downloads (5MB).
const MaxDataFileSize = 5 * 1024 * 1024

// Ensure Client implements the interface.
var _ driven.RemoteStorageClient = (*Client)(nil)

// Client is the Google Drive implementation of the remote storage port.
type Client struct {
	svc     *drive.Service
	limiter *RateLimiter
}

// NewClient creates a Drive client over the given token source.
func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Client{
		svc:     svc,
		limiter: NewRateLimiter(),
	}, nil
}

// NewClientWithService wraps an existing Drive service, used in tests.
func NewClientWithService(svc *drive.Service) *Client {
	return &Client{
		svc:     svc,
		limiter: NewRateLimiter(),
	}
}

// ListFiles returns the files matching the query.
func (c *Client) ListFiles(ctx context.Context, q driven.RemoteQuery) ([]driven.RemoteObject, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	call := c.svc.Files.List().
		Q(buildQuery(q)).
		Fields("files(id, name, mimeType, webViewLink)").
		PageSize(100).
		Context(ctx)

	res, err := call.Do()
	if err != nil {
		return nil, WrapError(err)
	}

	objects := make([]driven.RemoteObject, 0, len(res.Files))
	for _, f := range res.Files {
		objects = append(objects, driven.RemoteObject{
			ID:       f.Id,
			Name:     f.Name,
			MimeType: f.MimeType,
			WebLink:  f.WebViewLink,
		})
	}
	return objects, nil
}

// CreateFolder creates a folder under parentID (account root when empty).
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*driven.RemoteObject, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	meta := &drive.File{
		Name:     name,
		MimeType: MimeTypeFolder,
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	created, err := c.svc.Files.Create(meta).
		Fields("id, name, mimeType, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, WrapError(err)
	}

	return &driven.RemoteObject{
		ID:       created.Id,
		Name:     created.Name,
		MimeType: created.MimeType,
		WebLink:  created.WebViewLink,
	}, nil
}

// CreateFile creates a file with the given content under parentID.
func (c *Client) CreateFile(ctx context.Context, name, parentID string, content []byte, mimeType string) (*driven.RemoteObject, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	meta := &drive.File{
		Name:     name,
		MimeType: mimeType,
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	created, err := c.svc.Files.Create(meta).
		Media(bytes.NewReader(content)).
		Fields("id, name, mimeType, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, WrapError(err)
	}

	return &driven.RemoteObject{
		ID:       created.Id,
		Name:     created.Name,
		MimeType: created.MimeType,
		WebLink:  created.WebViewLink,
	}, nil
}

// ReadFile downloads a file's content.
func (c *Client) ReadFile(ctx context.Context, fileID string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, WrapError(err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, MaxDataFileSize))
	if err != nil {
		return nil, fmt.Errorf("read file content: %w", err)
	}
	return data, nil
}

// UpdateFile overwrites a file's content, keeping its metadata.
func (c *Client) UpdateFile(ctx context.Context, fileID string, content []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.svc.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(content)).
		Context(ctx).
		Do()
	if err != nil {
		return WrapError(err)
	}
	return nil
}

// About performs a minimal authenticated call, used as the token health
// probe.
func (c *Client) About(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.svc.About.Get().Fields("user").Context(ctx).Do()
	if err != nil {
		return WrapError(err)
	}
	return nil
}

// buildQuery renders a RemoteQuery as a Drive search expression.
func buildQuery(q driven.RemoteQuery) string {
	terms := []string{fmt.Sprintf("name = '%s'", escapeQueryValue(q.Name))}

	if q.ParentID != "" {
		terms = append(terms, fmt.Sprintf("'%s' in parents", escapeQueryValue(q.ParentID)))
	} else {
		terms = append(terms, "'root' in parents")
	}
	if q.FoldersOnly {
		terms = append(terms, fmt.Sprintf("mimeType = '%s'", MimeTypeFolder))
	}
	if !q.IncludeTrashed {
		terms = append(terms, "trashed = false")
	}

	return strings.Join(terms, " and ")
}

// escapeQueryValue escapes single quotes and backslashes for Drive
// query strings.
func escapeQueryValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}
