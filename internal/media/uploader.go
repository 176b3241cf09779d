package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
)

// MaxImageSize is the largest accepted upload (10 MB).
const MaxImageSize = 10 << 20

var (
	ErrNotConfigured = errors.New("media uploads are not configured")
	ErrEmptyImage    = errors.New("uploaded file is empty")
	ErrImageTooLarge = fmt.Errorf("image exceeds %d byte limit", MaxImageSize)
	ErrNotAnImage    = errors.New("only image files are allowed")
)

// UploadResult describes a stored image on the media host.
type UploadResult struct {
	URL      string
	PublicID string
	Width    int
	Height   int
	Format   string
}

// Uploader stores product images on a media host.
type Uploader interface {
	Upload(ctx context.Context, image io.Reader) (*UploadResult, error)
}

// ValidateImage checks an uploaded file's size and declared content type
// before it is sent to the media host.
func ValidateImage(header *multipart.FileHeader) error {
	if header == nil || header.Size == 0 {
		return ErrEmptyImage
	}
	if header.Size > MaxImageSize {
		return ErrImageTooLarge
	}
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		return ErrNotAnImage
	}
	return nil
}
