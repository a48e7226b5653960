package ports

import (
	"context"

	"github.com/renato0307/conduit/internal/domain"
)

// ImageUploader uploads queued attachments for a project
type ImageUploader interface {
	Upload(ctx context.Context, projectName string, files []domain.Attachment) ([]domain.UploadedImage, error)
}
