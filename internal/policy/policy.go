package policy

import (
	"fmt"
	"strings"
)

// PublicationExt is the proprietary publication extension. It always
// classifies as its own category, even when the transport declares a
// generic content type like application/octet-stream.
const PublicationExt = ".jwpub"

const (
	CategoryImage       = "image"
	CategoryDocument    = "document"
	CategorySpreadsheet = "spreadsheet"
	CategoryVideo       = "video"
	CategoryAudio       = "audio"
	CategoryPublication = "jwpub"
)

type Category struct {
	Name         string
	ContentTypes []string
	Extensions   []string
	MaxSizeMB    float64
	Description  string
}

func (c Category) matches(contentType, ext string) bool {
	for _, ct := range c.ContentTypes {
		if ct == contentType {
			return true
		}
	}
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Table is the immutable classification policy. Declaration order is
// the matching order.
type Table struct {
	categories []Category
	byName     map[string]*Category
}

func New(categories []Category) *Table {
	t := &Table{
		categories: categories,
		byName:     make(map[string]*Category, len(categories)),
	}
	for i := range t.categories {
		t.byName[t.categories[i].Name] = &t.categories[i]
	}
	return t
}

// Default mirrors the production category table.
func Default() *Table {
	return New([]Category{
		{
			Name:         CategoryImage,
			ContentTypes: []string{"image/jpeg", "image/png", "image/gif"},
			Extensions:   []string{".jpg", ".jpeg", ".png", ".gif"},
			MaxSizeMB:    5,
			Description:  "Изображения",
		},
		{
			Name: CategoryDocument,
			ContentTypes: []string{
				"application/pdf",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			},
			Extensions:  []string{".pdf", ".doc", ".docx"},
			MaxSizeMB:   10,
			Description: "Документы",
		},
		{
			Name: CategorySpreadsheet,
			ContentTypes: []string{
				"application/vnd.ms-excel",
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			},
			Extensions:  []string{".xls", ".xlsx"},
			MaxSizeMB:   5,
			Description: "Таблицы",
		},
		{
			Name:         CategoryVideo,
			ContentTypes: []string{"video/mp4", "video/quicktime", "video/x-msvideo", "video/x-matroska"},
			Extensions:   []string{".mp4", ".mov", ".avi", ".mkv"},
			MaxSizeMB:    100,
			Description:  "Видео",
		},
		{
			Name:         CategoryAudio,
			ContentTypes: []string{"audio/mpeg", "audio/mp4", "audio/ogg", "audio/x-wav"},
			Extensions:   []string{".mp3", ".m4a", ".ogg", ".wav"},
			MaxSizeMB:    50,
			Description:  "Аудио",
		},
		{
			Name:         CategoryPublication,
			ContentTypes: []string{"application/jwpub", "application/octet-stream"},
			Extensions:   []string{PublicationExt},
			MaxSizeMB:    5,
			Description:  "JWPUB публикации",
		},
	})
}

// Classify returns the first matching category, or nil when the input
// is unsupported. The publication extension wins unconditionally so a
// generic octet-stream content type cannot shadow it.
func (t *Table) Classify(contentType, ext string) *Category {
	ext = strings.ToLower(ext)
	if ext == PublicationExt {
		if c, ok := t.byName[CategoryPublication]; ok {
			return c
		}
	}
	for i := range t.categories {
		if t.categories[i].matches(contentType, ext) {
			return &t.categories[i]
		}
	}
	return nil
}

func (t *Table) ByName(name string) *Category {
	return t.byName[name]
}

// MaxSizeMB returns the largest category ceiling. Used to size the
// transport fetch guard.
func (t *Table) MaxSizeMB() float64 {
	var max float64
	for _, c := range t.categories {
		if c.MaxSizeMB > max {
			max = c.MaxSizeMB
		}
	}
	return max
}

// AllowedDescription renders the bullet list of supported types for
// the welcome message.
func (t *Table) AllowedDescription() string {
	lines := make([]string, 0, len(t.categories))
	for _, c := range t.categories {
		lines = append(lines, fmt.Sprintf("• %s (%s) - до %s",
			c.Description, strings.Join(c.Extensions, ", "), FormatSize(c.MaxSizeMB)))
	}
	return strings.Join(lines, "\n")
}

// FormatSize renders a size in МБ, switching to ГБ at 1024.
func FormatSize(sizeMB float64) string {
	if sizeMB >= 1024 {
		return fmt.Sprintf("%.1f ГБ", sizeMB/1024)
	}
	return fmt.Sprintf("%.1f МБ", sizeMB)
}
