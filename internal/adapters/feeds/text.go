package feeds

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gapwatch/internal/domain"
)

// HTMLToText извлекает текст из HTML-фрагмента описания.
func HTMLToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseSpaces(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseSpaces(s)
	}
	doc.Find("script, style").Remove()
	return collapseSpaces(doc.Text())
}

// DeduplicateByURL удаляет заголовки с одинаковыми ссылками, сохраняя первый.
func DeduplicateByURL(stories []domain.Story) []domain.Story {
	seen := make(map[string]struct{})
	out := make([]domain.Story, 0, len(stories))
	for _, s := range stories {
		key := s.Link
		if key == "" {
			out = append(out, s)
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
