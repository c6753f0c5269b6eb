package session

import (
	"fmt"
	"sync"
	"time"

	"driveport/internal/domain"
)

// Store keeps one Session per user. All access goes through Do, which
// holds the per-user lock for the whole callback: intake and a full
// upload pass for the same user can never interleave.
type Store struct {
	mu             sync.Mutex
	sessions       map[string]*Session
	promptInterval time.Duration
}

func NewStore(promptInterval time.Duration) *Store {
	return &Store{
		sessions:       make(map[string]*Session),
		promptInterval: promptInterval,
	}
}

// Do runs fn with the user's session locked, creating it on first use.
func (s *Store) Do(userID string, fn func(*Session)) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{promptInterval: s.promptInterval}
		s.sessions[userID] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	fn(sess)
}

// Session is the mutable batch state of one user. Not safe for use
// outside Store.Do.
type Session struct {
	mu             sync.Mutex
	promptInterval time.Duration

	files       []domain.PendingFile
	unsupported []domain.UnsupportedFile
	comments    []domain.Comment
	commentSeq  int
	lastPrompt  time.Time
}

// AddFile appends a pending file unless its destination name is taken.
// First write wins; a duplicate is dropped silently.
func (s *Session) AddFile(f domain.PendingFile) bool {
	for _, existing := range s.files {
		if existing.Name == f.Name {
			return false
		}
	}
	s.files = append(s.files, f)
	return true
}

func (s *Session) AddUnsupported(f domain.UnsupportedFile) {
	s.unsupported = append(s.unsupported, f)
}

// AddComment records a text note. Comments are never deduplicated.
// Names come from a monotonic counter, not the slice length: after a
// partial run drops consumed comments, new ones must not reuse the
// name of a comment still pending.
func (s *Session) AddComment(text string, now time.Time) domain.Comment {
	s.commentSeq++
	c := domain.Comment{
		Filename:  fmt.Sprintf("comment_%d.txt", s.commentSeq),
		Content:   text,
		Timestamp: now,
	}
	s.comments = append(s.comments, c)
	return c
}

// ShouldPrompt reports whether the destination prompt may be shown and
// stamps the time when it may. Rapid multi-file sends collapse into a
// single prompt per interval.
func (s *Session) ShouldPrompt(now time.Time) bool {
	if !s.lastPrompt.IsZero() && now.Sub(s.lastPrompt) < s.promptInterval {
		return false
	}
	s.lastPrompt = now
	return true
}

func (s *Session) FileCount() int {
	return len(s.files)
}

func (s *Session) HasUploadable() bool {
	return len(s.files) > 0 || len(s.comments) > 0
}

// Batch snapshots the upload order: files first, then comments.
func (s *Session) Batch() domain.Batch {
	b := domain.Batch{
		Files:    make([]domain.PendingFile, len(s.files)),
		Comments: make([]domain.Comment, len(s.comments)),
	}
	copy(b.Files, s.files)
	copy(b.Comments, s.comments)
	return b
}

func (s *Session) Unsupported() []domain.UnsupportedFile {
	out := make([]domain.UnsupportedFile, len(s.unsupported))
	copy(out, s.unsupported)
	return out
}

// DropUploaded removes items consumed by a partial run, leaving the
// rest for a retry.
func (s *Session) DropUploaded(names []string) {
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	files := s.files[:0]
	for _, f := range s.files {
		if !taken[f.Name] {
			files = append(files, f)
		}
	}
	s.files = files
	comments := s.comments[:0]
	for _, c := range s.comments {
		if !taken[c.Filename] {
			comments = append(comments, c)
		}
	}
	s.comments = comments
}

// Reset clears all three sequences and restarts comment numbering.
func (s *Session) Reset() {
	s.files = nil
	s.unsupported = nil
	s.comments = nil
	s.commentSeq = 0
}
