package gaps

import (
	"fmt"
	"html"
	"strings"

	"gapwatch/internal/domain"
)

const maxOtherLinks = 3

// FormatRankedGaps формирует HTML-сводку верхних групп для отправки в Telegram.
func FormatRankedGaps(list domain.RankedGapList, limit int) string {
	groups := list.Top(limit)
	if len(groups) == 0 {
		return "🕳 <b>Пробелов в покрытии не найдено</b>\nВсе заметки изданий есть в эталонном списке."
	}

	var sections []string
	header := "🕳 <b>Пробелы в покрытии</b>"
	if stats := formatStats(list); stats != "" {
		header += "\n" + stats
	}
	sections = append(sections, header)

	for idx, group := range groups {
		sections = append(sections, formatGroup(idx+1, group))
	}
	return strings.TrimSpace(strings.Join(sections, "\n\n"))
}

// FormatMembership формирует ответ на проверку заголовка.
func FormatMembership(title string, gap bool) string {
	quoted := "«" + escapeHTML(strings.TrimSpace(title)) + "»"
	if gap {
		return "🕳 " + quoted + " — входит в верхние пробелы покрытия."
	}
	return "✅ " + quoted + " — не относится к верхним пробелам."
}

func formatStats(list domain.RankedGapList) string {
	if list.ReferenceCount == 0 && list.OutletStoryCount == 0 {
		return ""
	}
	line := fmt.Sprintf("Эталон: %d · заметок изданий: %d · пропущено: %d · групп: %d",
		list.ReferenceCount, list.OutletStoryCount, list.GapCount, len(list.Groups))
	if !list.BuiltAt.IsZero() {
		line += " · " + list.BuiltAt.Format("02.01 15:04 MST")
	}
	return "<i>" + escapeHTML(line) + "</i>"
}

func formatGroup(rank int, group domain.GapGroup) string {
	var builder strings.Builder
	title := escapeHTML(group.Title)
	if link := strings.TrimSpace(group.Link); link != "" {
		title = fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(link), title)
	}
	builder.WriteString(fmt.Sprintf("%d. %s", rank, title))
	builder.WriteString(fmt.Sprintf("\n📰 %s · изданий: %d · заметок: %d",
		escapeHTML(strings.Join(group.Publishers, ", ")), group.BuzzScore(), group.RelevanceScore()))

	others := otherLinks(group)
	for _, story := range others {
		label := escapeHTML(CleanTitle(story.Title))
		builder.WriteString(fmt.Sprintf("\n• <a href=\"%s\">%s</a>", html.EscapeString(story.Link), label))
	}
	return builder.String()
}

func otherLinks(group domain.GapGroup) []domain.Story {
	var out []domain.Story
	for _, story := range group.Stories {
		link := strings.TrimSpace(story.Link)
		if link == "" || link == group.Link {
			continue
		}
		out = append(out, story)
		if len(out) == maxOtherLinks {
			break
		}
	}
	return out
}

func escapeHTML(s string) string {
	return html.EscapeString(s)
}
