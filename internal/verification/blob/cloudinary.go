package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore uploads documents to a Cloudinary folder.
type CloudinaryStore struct {
	cld    *cld.Cloudinary
	folder string
}

// NewCloudinary builds a client from a cloudinary:// URL.
func NewCloudinary(url, folder string) (*CloudinaryStore, error) {
	client, err := cld.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("create cloudinary client: %w", err)
	}
	return &CloudinaryStore{cld: client, folder: folder}, nil
}

// Put uploads data and returns its secure URL. Resource type is detected by
// Cloudinary so PDFs and office documents land as raw files.
func (s *CloudinaryStore) Put(ctx context.Context, owner, name, _ string, data []byte) (string, error) {
	key := ObjectKey(owner, name)
	publicID := strings.TrimSuffix(key, path.Ext(key))

	res, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicID,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload %s: %s", name, res.Error.Message)
	}
	return res.SecureURL, nil
}
