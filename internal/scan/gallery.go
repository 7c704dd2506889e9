package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rogerio-castellano/openbarcode/internal/imageurl"
	"github.com/rogerio-castellano/openbarcode/internal/models"
)

const (
	MaxImages    = 5
	MaxImageSize = 5 << 20
)

var (
	ErrTooManyImages     = fmt.Errorf("at most %d images per product", MaxImages)
	ErrImageTooLarge     = errors.New("image exceeds 5MB")
	ErrNotAnImage        = errors.New("file is not an image")
	ErrImageIndex        = errors.New("image index out of range")
	ErrImageDeleteFailed = errors.New("failed to delete image")
)

// ImageStore uploads and deletes image objects. *catalog.Images satisfies it.
type ImageStore interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (*models.UploadedImage, error)
	URL(etag string) string
	Delete(ctx context.Context, etag string) bool
	Err() string
}

// ImageTarget holds the ordered image list being edited.
type ImageTarget interface {
	Images() []string
	SetImages(urls []string) error
}

// Gallery manages the images of the product being edited.
type Gallery struct {
	store    ImageStore
	target   ImageTarget
	notifier Notifier
}

func NewGallery(store ImageStore, target ImageTarget, n Notifier) *Gallery {
	if n == nil {
		n = discardNotifier{}
	}
	return &Gallery{store: store, target: target, notifier: n}
}

// URLs returns the current image list.
func (g *Gallery) URLs() []string {
	return g.target.Images()
}

// Add checks, uploads and appends one image. The content type is detected
// from the bytes, not taken from the file name.
func (g *Gallery) Add(ctx context.Context, name string, r io.Reader) (string, error) {
	urls := g.target.Images()
	if len(urls) >= MaxImages {
		g.notify(LevelWarning, "Limit Reached", fmt.Sprintf("You can add up to %d images.", MaxImages))
		return "", ErrTooManyImages
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		g.notify(LevelError, "Error", "Could not read the image.")
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageSize {
		g.notify(LevelWarning, "File Too Large", "The image must be at most 5MB.")
		return "", ErrImageTooLarge
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		g.notify(LevelWarning, "Invalid File", "Please select an image file.")
		return "", ErrNotAnImage
	}

	uploaded, err := g.store.Upload(ctx, name, mtype.String(), bytes.NewReader(data))
	if err != nil {
		g.notify(LevelError, "Error", err.Error())
		return "", err
	}

	url := g.store.URL(uploaded.ETag)
	if err := g.target.SetImages(append(urls, url)); err != nil {
		return "", err
	}
	return url, nil
}

// Remove drops the image at index. Images that were never stored (no ETag in
// the URL) are removed locally; stored ones are deleted first and kept when
// the delete fails.
func (g *Gallery) Remove(ctx context.Context, index int) error {
	urls := g.target.Images()
	if index < 0 || index >= len(urls) {
		return ErrImageIndex
	}

	if etag, ok := imageurl.ExtractETag(urls[index]); ok {
		if !g.store.Delete(ctx, etag) {
			g.notify(LevelError, "Error", "Failed to delete image.")
			return fmt.Errorf("%w: %s", ErrImageDeleteFailed, g.store.Err())
		}
	}

	kept := make([]string, 0, len(urls)-1)
	kept = append(kept, urls[:index]...)
	kept = append(kept, urls[index+1:]...)
	return g.target.SetImages(kept)
}

func (g *Gallery) notify(level Level, title, message string) {
	g.notifier.Notify(Notice{Level: level, Title: title, Message: message})
}
