package media

import (
	"context"
	"fmt"
	"io"

	"threadline/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// uploadTransformation downsizes images to a 1200px width with automatic
// quality on the host side.
const uploadTransformation = "w_1200,q_auto"

type cloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryUploader builds an Uploader backed by Cloudinary. It returns
// ErrNotConfigured when credentials are absent so callers can degrade
// gracefully instead of failing at startup.
func NewCloudinaryUploader(cfg config.CloudinaryConfig) (Uploader, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrNotConfigured
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &cloudinaryUploader{cld: cld, folder: cfg.Folder}, nil
}

func (u *cloudinaryUploader) Upload(ctx context.Context, image io.Reader) (*UploadResult, error) {
	result, err := u.cld.Upload.Upload(ctx, image, uploader.UploadParams{
		Folder:         u.folder,
		PublicID:       uuid.NewString(),
		Transformation: uploadTransformation,
		AllowedFormats: api.CldAPIArray{"jpg", "jpeg", "png", "webp"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("failed to upload image: %s", result.Error.Message)
	}

	return &UploadResult{
		URL:      result.SecureURL,
		PublicID: result.PublicID,
		Width:    result.Width,
		Height:   result.Height,
		Format:   result.Format,
	}, nil
}
