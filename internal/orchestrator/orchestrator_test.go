package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"driveport/internal/domain"
	"driveport/internal/drive/drivetest"
	driveport_errors "driveport/pkg/errors"
	"driveport/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapFetcher struct {
	content map[string]string // ref -> bytes
}

func (f *mapFetcher) Fetch(_ context.Context, ref, destPath string) error {
	content, ok := f.content[ref]
	if !ok {
		return fmt.Errorf("%w: reference expired", driveport_errors.ErrTransfer)
	}
	return os.WriteFile(destPath, []byte(content), 0o644)
}

func newOrchestrator(t *testing.T, gw *drivetest.Gateway, fetcher *mapFetcher) *Orchestrator {
	t.Helper()
	return New(gw, fetcher, t.TempDir(), logger.NewNop())
}

func batchOf(refs []string, comments []string) domain.Batch {
	b := domain.Batch{}
	for i, ref := range refs {
		b.Files = append(b.Files, domain.PendingFile{
			Ref:  ref,
			Name: fmt.Sprintf("file_%d.jpg", i+1),
		})
	}
	for i, c := range comments {
		b.Comments = append(b.Comments, domain.Comment{
			Filename:  fmt.Sprintf("comment_%d.txt", i+1),
			Content:   c,
			Timestamp: time.Now(),
		})
	}
	return b
}

func TestRunUploadsFilesThenComments(t *testing.T) {
	gw := drivetest.New()
	fetcher := &mapFetcher{content: map[string]string{"r1": "one", "r2": "two"}}
	o := newOrchestrator(t, gw, fetcher)

	var updates []string
	result, err := o.Run(context.Background(), batchOf([]string{"r1", "r2"}, []string{"привет"}), "dest", func(s string) {
		updates = append(updates, s)
	})

	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, []string{"file_1.jpg", "file_2.jpg", "comment_1.txt"}, result.Uploaded)

	objects := gw.Objects("dest")
	require.Len(t, objects, 3)
	assert.Equal(t, "one", objects["file_1.jpg"].Content)
	assert.Equal(t, "привет", objects["comment_1.txt"].Content)

	// One start and one completion update per item.
	require.Len(t, updates, 6)
	assert.Contains(t, updates[0], "file_1.jpg")
	assert.Contains(t, updates[1], "33%")
	assert.Contains(t, updates[2], "file_2.jpg")
	assert.Contains(t, updates[3], "66%")
	assert.Contains(t, updates[4], "comment_1.txt")
	assert.Contains(t, updates[5], "100%")
}

func TestRunProgressBarHalfAndFullSteps(t *testing.T) {
	gw := drivetest.New()
	fetcher := &mapFetcher{content: map[string]string{"r1": "a", "r2": "b"}}
	o := newOrchestrator(t, gw, fetcher)

	var updates []string
	_, err := o.Run(context.Background(), batchOf([]string{"r1", "r2"}, nil), "dest", func(s string) {
		updates = append(updates, s)
	})
	require.NoError(t, err)
	require.Len(t, updates, 4)

	filled := func(s string) int { return strings.Count(s, "▓") }
	// width 10, total 2: half steps at 2 and 7, full steps at 5 and 10.
	assert.Equal(t, 2, filled(updates[0]))
	assert.Equal(t, 5, filled(updates[1]))
	assert.Equal(t, 7, filled(updates[2]))
	assert.Equal(t, 10, filled(updates[3]))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	gw := drivetest.New()
	// r2 is missing: its transient reference has expired.
	fetcher := &mapFetcher{content: map[string]string{"r1": "a", "r3": "c"}}
	o := newOrchestrator(t, gw, fetcher)

	result, err := o.Run(context.Background(), batchOf([]string{"r1", "r2", "r3"}, nil), "dest", func(string) {})

	require.ErrorIs(t, err, driveport_errors.ErrTransfer)
	assert.Equal(t, []string{"file_1.jpg"}, result.Uploaded)
	assert.Equal(t, "file_2.jpg", result.FailedAt)

	// Item 3 was never attempted and item 1 stays uploaded.
	objects := gw.Objects("dest")
	require.Len(t, objects, 1)
	assert.Equal(t, "a", objects["file_1.jpg"].Content)
}

func TestRunUploadFailureNamesItem(t *testing.T) {
	gw := drivetest.New()
	gw.FailPutNamed = "file_2.jpg"
	fetcher := &mapFetcher{content: map[string]string{"r1": "a", "r2": "b"}}
	o := newOrchestrator(t, gw, fetcher)

	result, err := o.Run(context.Background(), batchOf([]string{"r1", "r2"}, nil), "dest", func(string) {})

	require.ErrorIs(t, err, driveport_errors.ErrTransfer)
	assert.Contains(t, err.Error(), "file_2.jpg")
	assert.Equal(t, "file_2.jpg", result.FailedAt)
}

func TestRunOverwritesSameNameInPlace(t *testing.T) {
	gw := drivetest.New()
	fetcher := &mapFetcher{content: map[string]string{"r1": "old", "r2": "new"}}
	o := newOrchestrator(t, gw, fetcher)

	batch := domain.Batch{Files: []domain.PendingFile{{Ref: "r1", Name: "report.pdf"}}}
	_, err := o.Run(context.Background(), batch, "dest", func(string) {})
	require.NoError(t, err)

	batch.Files[0].Ref = "r2"
	_, err = o.Run(context.Background(), batch, "dest", func(string) {})
	require.NoError(t, err)

	objects := gw.Objects("dest")
	require.Len(t, objects, 1)
	assert.Equal(t, "new", objects["report.pdf"].Content)
	assert.Equal(t, 2, objects["report.pdf"].Writes)
}

func TestRunEmptyBatch(t *testing.T) {
	gw := drivetest.New()
	o := newOrchestrator(t, gw, &mapFetcher{})

	calls := 0
	result, err := o.Run(context.Background(), domain.Batch{}, "dest", func(string) { calls++ })
	require.ErrorIs(t, err, driveport_errors.ErrEmptyBatch)
	assert.Empty(t, result.Uploaded)
	assert.Zero(t, calls)
}

func TestRunRemovesScratchFiles(t *testing.T) {
	gw := drivetest.New()
	fetcher := &mapFetcher{content: map[string]string{"r1": "a"}}
	scratch := t.TempDir()
	o := New(gw, fetcher, scratch, logger.NewNop())

	_, err := o.Run(context.Background(), batchOf([]string{"r1"}, []string{"note"}), "dest", func(string) {})
	require.NoError(t, err)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
