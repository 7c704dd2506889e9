package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
	"sync/atomic"

	"github.com/rogerio-castellano/openbarcode/internal/imageurl"
	"github.com/rogerio-castellano/openbarcode/internal/models"
	"go.uber.org/zap"
)

const imagesPath = "/api/v1/images"

// Images wraps the image storage endpoints. It tracks whether an upload is in
// flight and the message of the last failure, for display next to the
// gallery.
type Images struct {
	client    *Client
	uploading atomic.Bool

	mu      sync.Mutex
	lastErr string
}

func NewImages(c *Client) *Images {
	return &Images{client: c}
}

// Uploading reports whether an Upload call is in progress.
func (im *Images) Uploading() bool {
	return im.uploading.Load()
}

// Err returns the message of the most recent failure, or "".
func (im *Images) Err() string {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.lastErr
}

func (im *Images) setErr(msg string) {
	im.mu.Lock()
	im.lastErr = msg
	im.mu.Unlock()
}

// Upload sends r as the multipart field "file" and returns the stored
// object's metadata.
func (im *Images) Upload(ctx context.Context, filename, contentType string, r io.Reader) (*models.UploadedImage, error) {
	im.uploading.Store(true)
	defer im.uploading.Store(false)
	im.setErr("")

	body, formType, err := multipartFile(filename, contentType, r)
	if err != nil {
		im.setErr(err.Error())
		return nil, err
	}

	resp, err := im.client.do(ctx, http.MethodPost, imagesPath+"/", body, formType)
	if err != nil {
		im.setErr(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		err := errorFromResponse(resp, "Failed to upload image")
		im.setErr(err.Error())
		return nil, err
	}

	var uploaded models.UploadedImage
	if err := decodeBody(resp, &uploaded); err != nil {
		im.setErr(err.Error())
		return nil, err
	}
	im.client.log.Info("image uploaded", zap.String("etag", uploaded.ETag), zap.Int64("size", uploaded.Size))
	return &uploaded, nil
}

// URL returns the download URL for etag.
func (im *Images) URL(etag string) string {
	return imageurl.DownloadURL(im.client.baseURL, etag)
}

// Delete removes the image stored under etag. Failures are reduced to false;
// the reason is available from Err.
func (im *Images) Delete(ctx context.Context, etag string) bool {
	resp, err := im.client.do(ctx, http.MethodDelete, imagesPath+"/"+etag, nil, "")
	if err != nil {
		im.setErr(err.Error())
		return false
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		im.setErr(errorFromResponse(resp, "Failed to delete image").Error())
		return false
	}
	return true
}

func multipartFile(filename, contentType string, r io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to build upload: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
