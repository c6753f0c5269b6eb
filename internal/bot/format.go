package bot

import (
	"fmt"
	"strings"

	"driveport/internal/domain"
)

// FilesWord picks the Russian plural form for a file count.
func FilesWord(count int) string {
	return pluralize(count, "файл", "файла", "файлов")
}

// CommentsWord picks the Russian plural form for a comment count.
func CommentsWord(count int) string {
	return pluralize(count, "комментарий", "комментария", "комментариев")
}

func pluralize(count int, one, few, many string) string {
	if rem := count % 100; rem >= 11 && rem <= 14 {
		return many
	}
	switch count % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	default:
		return many
	}
}

func successMessage(path string, uploaded []string, commentCount int, rejects []domain.UnsupportedFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Успешно загружено %d %s!\nПапка: %s", len(uploaded), FilesWord(len(uploaded)), path)
	if commentCount > 0 {
		fmt.Fprintf(&b, "\nИз них %d %s", commentCount, CommentsWord(commentCount))
	}
	if len(uploaded) > 0 {
		b.WriteString("\n\nЗагруженные файлы:")
		for _, name := range uploaded {
			fmt.Fprintf(&b, "\n• %s", name)
		}
	}
	appendRejects(&b, rejects)
	return b.String()
}

func rejectedOnlyMessage(rejects []domain.UnsupportedFile) string {
	var b strings.Builder
	b.WriteString("Не удалось принять файлы:")
	for _, r := range rejects {
		fmt.Fprintf(&b, "\n• %s (%s)", r.Name, r.Reason)
	}
	return b.String()
}

func appendRejects(b *strings.Builder, rejects []domain.UnsupportedFile) {
	if len(rejects) == 0 {
		return
	}
	b.WriteString("\n\nНеподдерживаемые файлы:")
	for _, r := range rejects {
		fmt.Fprintf(b, "\n• %s (%s)", r.Name, r.Reason)
	}
}
