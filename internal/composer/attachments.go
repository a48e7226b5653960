package composer

import (
	"fmt"
	"maps"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
)

// Attachment limits
const (
	MaxAttachmentSize = 5 * 1024 * 1024
	MaxAttachments    = 5
)

// AddFiles queues image files for upload at submit time. Non-images are
// skipped; oversize files and files past the limit get a per-name error.
func (c *Composer) AddFiles(files []domain.Attachment) {
	for _, f := range files {
		if !strings.HasPrefix(f.MimeType, "image/") {
			logging.Logger.Debug("Skipping non-image attachment", "name", f.Name, "mime_type", f.MimeType)
			continue
		}
		size := max(f.Size, int64(len(f.Data)))
		if size > MaxAttachmentSize {
			c.imageErrors[f.Name] = "File too large (max 5MB)"
			continue
		}
		if len(c.attachments) >= MaxAttachments {
			c.imageErrors[f.Name] = fmt.Sprintf("Maximum %d images allowed", MaxAttachments)
			continue
		}
		delete(c.imageErrors, f.Name)
		f.Size = size
		c.attachments = append(c.attachments, f)
	}
	c.changed()
}

// RemoveAttachment drops the queued attachment at index i
func (c *Composer) RemoveAttachment(i int) {
	if i < 0 || i >= len(c.attachments) {
		return
	}
	c.attachments = slices.Delete(c.attachments, i, i+1)
	c.changed()
}

// Attachments returns the queued attachments
func (c *Composer) Attachments() []domain.Attachment {
	return slices.Clone(c.attachments)
}

// ImageErrors returns the per-file validation errors
func (c *Composer) ImageErrors() map[string]string {
	return maps.Clone(c.imageErrors)
}

// ReadAttachment loads a file from disk as an attachment. The MIME type comes
// from the extension, falling back to content sniffing.
func ReadAttachment(path string) (domain.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("failed to read attachment: %w", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	return domain.Attachment{
		Data:     data,
		MimeType: mimeType,
		Name:     filepath.Base(path),
		Size:     int64(len(data)),
	}, nil
}

// ReadImages loads each path with ReadAttachment and fails on the first file
// that cannot be read or is not an image
func ReadImages(paths []string) ([]domain.Attachment, error) {
	files := make([]domain.Attachment, 0, len(paths))
	for _, p := range paths {
		f, err := ReadAttachment(p)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(f.MimeType, "image/") {
			return nil, fmt.Errorf("%s: %w (%s)", f.Name, domain.ErrNotAnImage, f.MimeType)
		}
		files = append(files, f)
	}
	return files, nil
}
