package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/Cue77/medilink/models"
	storage_go "github.com/supabase-community/storage-go"
)

// AttachmentService uploads chat attachments to the public storage bucket and
// hands back the retrieval URL for the message row. Upload is the only
// storage concern of the core; rendering and download stay with the UI.
type AttachmentService struct {
	storage *storage_go.Client
	bucket  string
}

func NewAttachmentService(storage *storage_go.Client, bucket string) *AttachmentService {
	return &AttachmentService{storage: storage, bucket: bucket}
}

// Upload stores the file under <userID>/<unix-nano><ext> and returns the
// public URL plus the attachment kind ("image" or "file").
func (s *AttachmentService) Upload(ctx context.Context, userID, filename, contentType string, data io.Reader) (*models.Attachment, error) {
	ext := path.Ext(filename)
	objectPath := fmt.Sprintf("%s/%d%s", userID, time.Now().UnixNano(), ext)

	_, err := s.storage.UploadFile(s.bucket, objectPath, data, storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	kind := "file"
	if strings.HasPrefix(contentType, "image/") {
		kind = "image"
	}

	public := s.storage.GetPublicUrl(s.bucket, objectPath)
	return &models.Attachment{URL: public.SignedURL, Kind: kind}, nil
}
