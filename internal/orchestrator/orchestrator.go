package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"driveport/internal/domain"
	"driveport/internal/drive"
	"driveport/internal/transport"
	driveport_errors "driveport/pkg/errors"
	"driveport/pkg/logger"
)

const defaultBarWidth = 10

// ProgressFunc receives the status line to render, edited in place.
type ProgressFunc func(text string)

// Orchestrator drives one batch through download, idempotent upload
// and progress reporting. Strictly sequential: the progress contract
// and stop-on-first-failure semantics rule out parallel fan-out.
type Orchestrator struct {
	gw         drive.Gateway
	fetcher    transport.Fetcher
	scratchDir string
	log        *logger.Logger
	barWidth   int
}

func New(gw drive.Gateway, fetcher transport.Fetcher, scratchDir string, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		gw:         gw,
		fetcher:    fetcher,
		scratchDir: scratchDir,
		log:        log,
		barWidth:   defaultBarWidth,
	}
}

type item struct {
	name        string
	materialize func(ctx context.Context, path string) error
}

// Run uploads the batch into folderID: files first, then comments, in
// arrival order. It stops at the first failure; already uploaded items
// are never rolled back.
func (o *Orchestrator) Run(ctx context.Context, batch domain.Batch, folderID string, progress ProgressFunc) (domain.UploadResult, error) {
	items := make([]item, 0, batch.Total())
	for _, f := range batch.Files {
		ref := f.Ref
		items = append(items, item{
			name: f.Name,
			materialize: func(ctx context.Context, path string) error {
				return o.fetcher.Fetch(ctx, ref, path)
			},
		})
	}
	for _, c := range batch.Comments {
		content := c.Content
		items = append(items, item{
			name: c.Filename,
			materialize: func(_ context.Context, path string) error {
				return os.WriteFile(path, []byte(content), 0o644)
			},
		})
	}

	result := domain.UploadResult{}
	total := len(items)
	if total == 0 {
		return result, driveport_errors.ErrEmptyBatch
	}

	if err := os.MkdirAll(o.scratchDir, 0o755); err != nil {
		return result, fmt.Errorf("%w: scratch dir: %v", driveport_errors.ErrTransfer, err)
	}

	for i, it := range items {
		step := i + 1
		progress(o.renderStart(step, total, it.name))

		scratch := filepath.Join(o.scratchDir, it.name)
		if err := it.materialize(ctx, scratch); err != nil {
			o.log.Errorf("materialize %s: %v", it.name, err)
			result.FailedAt = it.name
			return result, fmt.Errorf("%w: %s: %v", driveport_errors.ErrTransfer, it.name, err)
		}

		if _, err := o.gw.Put(ctx, scratch, folderID, it.name); err != nil {
			o.log.Errorf("upload %s: %v", it.name, err)
			_ = os.Remove(scratch)
			result.FailedAt = it.name
			return result, fmt.Errorf("%w: %s: %v", driveport_errors.ErrTransfer, it.name, err)
		}

		if err := os.Remove(scratch); err != nil {
			o.log.Warnf("remove scratch %s: %v", scratch, err)
		}
		result.Uploaded = append(result.Uploaded, it.name)
		progress(o.renderDone(step, total))
	}

	return result, nil
}

// renderStart shows the half step: the item counts as in flight.
func (o *Orchestrator) renderStart(step, total int, name string) string {
	filled := o.barWidth * (2*step - 1) / (2 * total)
	return fmt.Sprintf("%s Загружаю %s (%d/%d)…", bar(filled, o.barWidth), name, step, total)
}

// renderDone shows the full step with the exact completed percentage.
func (o *Orchestrator) renderDone(step, total int) string {
	filled := o.barWidth * step / total
	return fmt.Sprintf("%s %d%% (%d/%d)", bar(filled, o.barWidth), 100*step/total, step, total)
}

func bar(filled, width int) string {
	return strings.Repeat("▓", filled) + strings.Repeat("░", width-filled)
}
