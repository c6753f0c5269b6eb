package domain

import (
	"time"
)

// FileKind is the slot the chat transport delivered a file through.
type FileKind string

const (
	KindPhoto    FileKind = "photo"
	KindVideo    FileKind = "video"
	KindDocument FileKind = "document"
	KindAudio    FileKind = "audio"
	KindVoice    FileKind = "voice"
)

// FileDescriptor describes an inbound file before classification.
type FileDescriptor struct {
	Ref         string // transient reference, fetchable once before expiry
	Name        string
	ContentType string
	SizeBytes   int64
	Kind        FileKind
}

// PendingFile is an accepted file waiting in a session batch.
type PendingFile struct {
	Ref      string
	Name     string // destination name, unique within the session
	Category string
	SizeMB   float64
}

// UnsupportedFile is a rejected file kept for the final report.
// Reason is the user-facing text; Err carries the sentinel.
type UnsupportedFile struct {
	Name   string
	Reason string
	Err    error
}

// Comment is a text note uploaded as comment_<n>.txt alongside the files.
type Comment struct {
	Filename  string
	Content   string
	Timestamp time.Time
}

// Batch is one upload pass: files first, then comments, in arrival order.
type Batch struct {
	Files    []PendingFile
	Comments []Comment
}

func (b Batch) Total() int {
	return len(b.Files) + len(b.Comments)
}

func (b Batch) Empty() bool {
	return b.Total() == 0
}

// UploadResult is the outcome of one batch run. FailedAt names the item
// the run stopped at; items in Uploaded stay uploaded either way.
type UploadResult struct {
	Uploaded []string
	FailedAt string
}

func (r UploadResult) Failed() bool {
	return r.FailedAt != ""
}

// AuditEntry is one row of the statistics sheet.
type AuditEntry struct {
	Timestamp  time.Time
	UserID     string
	FolderPath string
	FileNames  []string
}
