package audit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"driveport/internal/domain"
	"driveport/internal/drive"
	driveport_errors "driveport/pkg/errors"
	"driveport/pkg/logger"
)

// Statistics rows are stamped with the same +3h offset as the dated
// folders.
const clockOffset = 3 * time.Hour

const timestampLayout = "2006-01-02 15:04:05"

// SheetHeader is the fixed five-column header of the statistics sheet.
var SheetHeader = []string{"Дата", "ID пользователя", "Папка загрузки", "Имена файлов", "Количество файлов"}

// Recorder appends one statistics row per completed batch. Recording
// is best-effort: a failure is logged and must never invalidate an
// upload already reported to the user.
type Recorder struct {
	gw         drive.Gateway
	log        *logger.Logger
	folderName string
	fileName   string
	now        func() time.Time
}

func New(gw drive.Gateway, folderName, fileName string, log *logger.Logger) *Recorder {
	return &Recorder{
		gw:         gw,
		log:        log,
		folderName: folderName,
		fileName:   fileName,
		now:        time.Now,
	}
}

// WithClock overrides the clock. Used in tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record appends one row under the root's statistics folder, creating
// the folder and the sheet with its header on first use.
func (r *Recorder) Record(ctx context.Context, rootID, userID, folderPath string, uploaded []string) {
	if err := r.record(ctx, rootID, userID, folderPath, uploaded); err != nil {
		r.log.Errorf("statistics entry for %s failed: %v", userID, err)
	}
}

func (r *Recorder) record(ctx context.Context, rootID, userID, folderPath string, uploaded []string) error {
	folderID, err := r.gw.FindFolder(ctx, rootID, r.folderName)
	if errors.Is(err, driveport_errors.ErrNotFound) {
		folderID, err = r.gw.CreateFolder(ctx, rootID, r.folderName)
	}
	if err != nil {
		return err
	}

	sheetID, err := r.gw.EnsureSheet(ctx, folderID, r.fileName, SheetHeader)
	if err != nil {
		return err
	}

	entry := domain.AuditEntry{
		Timestamp:  r.now().Add(clockOffset),
		UserID:     userID,
		FolderPath: folderPath,
		FileNames:  uploaded,
	}
	return r.gw.AppendRow(ctx, sheetID, row(entry))
}

// row renders an entry in the sheet's column order.
func row(e domain.AuditEntry) []string {
	return []string{
		e.Timestamp.Format(timestampLayout),
		e.UserID,
		e.FolderPath,
		strings.Join(e.FileNames, ", "),
		strconv.Itoa(len(e.FileNames)),
	}
}
