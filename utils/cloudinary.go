package utils

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const campaignImageFolder = "campaigns"

// CloudinaryImages hosts campaign images in one Cloudinary folder.
type CloudinaryImages struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryImages(cloudName, apiKey, apiSecret string) (*CloudinaryImages, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	return &CloudinaryImages{cld: cld, folder: campaignImageFolder}, nil
}

// Upload stores the image and returns its secure URL.
func (s *CloudinaryImages) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:           s.folder,
		FilenameOverride: filename,
	})
	if err != nil {
		return "", fmt.Errorf("upload error: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload error: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// Delete destroys an image by its URL. URLs not hosted on Cloudinary are
// ignored, since campaigns may also reference external images.
func (s *CloudinaryImages) Delete(ctx context.Context, imageURL string) error {
	publicID, ok := PublicIDFromURL(imageURL)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

// PublicIDFromURL extracts the Cloudinary public ID from a delivery URL.
//
//	https://res.cloudinary.com/demo/image/upload/v1234567890/campaigns/abc123.jpg
//	-> campaigns/abc123
func PublicIDFromURL(imageURL string) (string, bool) {
	u, err := url.Parse(imageURL)
	if err != nil || !strings.HasSuffix(u.Host, "cloudinary.com") {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	upload := -1
	for i, p := range parts {
		if p == "upload" {
			upload = i
			break
		}
	}
	if upload < 0 || upload == len(parts)-1 {
		return "", false
	}
	rest := parts[upload+1:]
	if isVersion(rest[0]) && len(rest) > 1 {
		rest = rest[1:]
	}
	joined := path.Join(rest...)
	return strings.TrimSuffix(joined, path.Ext(joined)), true
}

func isVersion(seg string) bool {
	if len(seg) < 2 || seg[0] != 'v' {
		return false
	}
	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
