package classify

import (
	"fmt"
	"path"
	"strings"

	"driveport/internal/domain"
	"driveport/internal/policy"
	driveport_errors "driveport/pkg/errors"
)

const megabyte = 1024 * 1024

// Classifier validates inbound files against the type policy. It is
// pure: the session's accepted count is only needed to number
// generated image names.
type Classifier struct {
	table          *policy.Table
	videoTransport float64 // MB the transport can hand over for native videos
}

func New(table *policy.Table, videoTransportCapMB float64) *Classifier {
	return &Classifier{table: table, videoTransport: videoTransportCapMB}
}

// sanitizeName strips any path components from a client-supplied
// filename. The name becomes part of the scratch path and the remote
// key, so it must never escape its folder.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}

// Evaluate returns the accepted file, or a non-nil rejection. Exactly
// one of the two carries meaning.
func (c *Classifier) Evaluate(fd domain.FileDescriptor, acceptedCount int) (domain.PendingFile, *domain.UnsupportedFile) {
	name := sanitizeName(fd.Name)
	sizeMB := float64(fd.SizeBytes) / megabyte

	var category *policy.Category
	if fd.Kind == domain.KindPhoto && name == "" {
		// Photos arrive without a filename; number them by position.
		category = c.table.ByName(policy.CategoryImage)
		name = fmt.Sprintf("image_%d.jpg", acceptedCount+1)
	} else {
		category = c.table.Classify(fd.ContentType, strings.ToLower(path.Ext(name)))
	}

	if name == "" {
		name = "file"
	}

	// Transport limitation, not storage policy: native-slot videos the
	// transport cannot hand over have to arrive as a link instead.
	if fd.Kind == domain.KindVideo && c.videoTransport > 0 && sizeMB > c.videoTransport {
		return domain.PendingFile{}, &domain.UnsupportedFile{
			Name:   name,
			Reason: fmt.Sprintf("видео больше %s, пришлите ссылку на файл", policy.FormatSize(c.videoTransport)),
			Err:    driveport_errors.ErrTooLargeForTransport,
		}
	}

	if category == nil {
		return domain.PendingFile{}, &domain.UnsupportedFile{
			Name:   name,
			Reason: "Неподдерживаемый формат",
			Err:    driveport_errors.ErrUnsupportedFormat,
		}
	}

	if sizeMB > category.MaxSizeMB {
		return domain.PendingFile{}, &domain.UnsupportedFile{
			Name:   name,
			Reason: fmt.Sprintf("превышен размер %s", policy.FormatSize(category.MaxSizeMB)),
			Err:    driveport_errors.ErrTooLarge,
		}
	}

	return domain.PendingFile{
		Ref:      fd.Ref,
		Name:     name,
		Category: category.Name,
		SizeMB:   sizeMB,
	}, nil
}
