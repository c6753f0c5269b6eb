// Package bot is the chat-facing engine: it accumulates a batch per
// user session, prompts for a destination and drives the upload.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"driveport/internal/audit"
	"driveport/internal/classify"
	"driveport/internal/orchestrator"
	"driveport/internal/policy"
	"driveport/internal/resolver"
	"driveport/internal/session"
	"driveport/internal/transport"
	driveport_errors "driveport/pkg/errors"
	"driveport/pkg/logger"
)

type Handler struct {
	log        *logger.Logger
	table      *policy.Table
	classifier *classify.Classifier
	sessions   *session.Store
	resolver   *resolver.Resolver
	uploader   *orchestrator.Orchestrator
	auditor    *audit.Recorder
	messenger  transport.Messenger

	rootName     string
	useAllowList bool
	allowed      map[string]bool
	now          func() time.Time
}

type Deps struct {
	Log       *logger.Logger
	Table     *policy.Table
	Classify  *classify.Classifier
	Sessions  *session.Store
	Resolver  *resolver.Resolver
	Uploader  *orchestrator.Orchestrator
	Auditor   *audit.Recorder
	Messenger transport.Messenger

	RootName     string
	UseAllowList bool
	AllowedUsers []string
}

func New(deps Deps) *Handler {
	allowed := make(map[string]bool, len(deps.AllowedUsers))
	for _, id := range deps.AllowedUsers {
		allowed[id] = true
	}
	return &Handler{
		log:          deps.Log,
		table:        deps.Table,
		classifier:   deps.Classify,
		sessions:     deps.Sessions,
		resolver:     deps.Resolver,
		uploader:     deps.Uploader,
		auditor:      deps.Auditor,
		messenger:    deps.Messenger,
		rootName:     deps.RootName,
		useAllowList: deps.UseAllowList,
		allowed:      allowed,
		now:          time.Now,
	}
}

// WithClock overrides the clock. Used in tests.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// HandleInbound processes one chat event end to end. Safe to call
// concurrently; events for the same user serialize on the session.
func (h *Handler) HandleInbound(ctx context.Context, in transport.Inbound) {
	if h.useAllowList && !h.allowed[in.UserID] {
		h.send(ctx, in.UserID, "У вас нет прав для загрузки файлов.")
		return
	}

	if in.Select != "" {
		h.handleSelection(ctx, in.UserID, in.Select)
		return
	}

	text := strings.TrimSpace(in.Text)
	if in.File == nil && text == "/start" {
		h.send(ctx, in.UserID, h.welcome())
		return
	}

	h.sessions.Do(in.UserID, func(s *session.Session) {
		if in.File == nil {
			if text == "" {
				return
			}
			s.AddComment(text, h.now())
			h.send(ctx, in.UserID, "Комментарий сохранён. Теперь отправьте файл или выберите папку.")
			return
		}

		// A caption travels with its file as a separate comment.
		if text != "" {
			s.AddComment(text, h.now())
		}

		file, rejected := h.classifier.Evaluate(*in.File, s.FileCount())
		if rejected != nil {
			s.AddUnsupported(*rejected)
			h.send(ctx, in.UserID, fmt.Sprintf("Файл %s не принят: %s.", rejected.Name, rejected.Reason))
			return
		}

		s.AddFile(file)
		h.send(ctx, in.UserID, fmt.Sprintf("Файл %s сохранён. Теперь выберите папку для загрузки.", file.Name))

		if s.ShouldPrompt(h.now()) {
			h.sendDestinationPrompt(ctx, in.UserID)
		}
	})
}

func (h *Handler) handleSelection(ctx context.Context, userID, destination string) {
	h.sessions.Do(userID, func(s *session.Session) {
		if !s.HasUploadable() {
			if rejects := s.Unsupported(); len(rejects) > 0 {
				h.send(ctx, userID, rejectedOnlyMessage(rejects))
				s.Reset()
				return
			}
			h.send(ctx, userID, "Нет файлов или комментариев для загрузки.")
			return
		}

		msgID, err := h.messenger.Send(ctx, userID, "Начинаю загрузку…")
		if err != nil {
			h.log.Errorf("send to %s: %v", userID, err)
			return
		}

		res, err := h.resolver.Resolve(ctx, destination)
		if err != nil {
			// The session survives: the same batch can be retried
			// against another destination.
			switch {
			case errors.Is(err, driveport_errors.ErrRootNotFound):
				h.edit(ctx, userID, msgID, fmt.Sprintf("Ошибка: папка %q не найдена в хранилище.", h.rootName))
			case errors.Is(err, driveport_errors.ErrDestinationGone):
				h.edit(ctx, userID, msgID, "Ошибка: выбранная папка не найдена.")
			default:
				h.log.Errorf("resolve %q for %s: %v", destination, userID, err)
				h.edit(ctx, userID, msgID, "Произошла ошибка при выборе папки.")
			}
			return
		}

		batch := s.Batch()
		result, err := h.uploader.Run(ctx, batch, res.DatedID, func(text string) {
			h.edit(ctx, userID, msgID, text)
		})
		if err != nil {
			h.log.Errorf("batch for %s failed at %s: %v", userID, result.FailedAt, err)
			s.DropUploaded(result.Uploaded)
			h.edit(ctx, userID, msgID, fmt.Sprintf("Ошибка при загрузке файла %s.", result.FailedAt))
			return
		}

		h.auditor.Record(ctx, res.RootID, userID, res.Path(), result.Uploaded)
		h.edit(ctx, userID, msgID, successMessage(res.Path(), result.Uploaded, len(batch.Comments), s.Unsupported()))
		s.Reset()
	})
}

func (h *Handler) sendDestinationPrompt(ctx context.Context, userID string) {
	_, folders, err := h.resolver.Destinations(ctx)
	if err != nil {
		if errors.Is(err, driveport_errors.ErrRootNotFound) {
			h.send(ctx, userID, fmt.Sprintf("Ошибка: папка %q не найдена в хранилище.", h.rootName))
			return
		}
		h.log.Errorf("list destinations for %s: %v", userID, err)
		h.send(ctx, userID, "Произошла ошибка при получении списка папок.")
		return
	}

	buttons := make([]transport.Button, 0, len(folders))
	for _, f := range folders {
		// Selection travels by name, never by a forgeable identifier.
		buttons = append(buttons, transport.Button{Label: f.Name, Data: f.Name})
	}
	if _, err := h.messenger.SendButtons(ctx, userID, "Выберите папку для загрузки:", buttons); err != nil {
		h.log.Errorf("send buttons to %s: %v", userID, err)
	}
}

func (h *Handler) welcome() string {
	return "Привет!\nЯ бот для загрузки файлов в облачное хранилище.\n" +
		"Умею загружать следующие типы файлов:\n\n" +
		h.table.AllowedDescription() +
		"\n\nПришлите мне файлы, и я помогу загрузить их в нужную папку."
}

func (h *Handler) send(ctx context.Context, userID, text string) {
	if _, err := h.messenger.Send(ctx, userID, text); err != nil {
		h.log.Errorf("send to %s: %v", userID, err)
	}
}

func (h *Handler) edit(ctx context.Context, userID, messageID, text string) {
	if err := h.messenger.Edit(ctx, userID, messageID, text); err != nil {
		h.log.Errorf("edit %s for %s: %v", messageID, userID, err)
	}
}
