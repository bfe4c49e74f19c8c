package telegram

import (
	"strings"
	"unicode/utf8"
)

const messageLimit = 4096

// SplitMessage делит HTML-текст на части не длиннее лимита Telegram.
// Граница ищется между абзацами, затем между строками; HTML-тег не разрывается.
func SplitMessage(text string) []string {
	return splitText(strings.TrimSpace(text), messageLimit)
}

type segment struct {
	sep  string
	text string
}

func splitText(text string, limit int) []string {
	if text == "" {
		return nil
	}
	var (
		parts   []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if chunk := strings.Trim(current.String(), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		current.Reset()
		size = 0
	}
	for _, seg := range segments(text, limit) {
		n := utf8.RuneCountInString(seg.text)
		sep := seg.sep
		if size > 0 && size+len(sep)+n > limit {
			flush()
		}
		if size == 0 {
			sep = ""
		}
		current.WriteString(sep)
		current.WriteString(seg.text)
		size += len(sep) + n
	}
	flush()
	return parts
}

// segments режет текст на абзацы; абзацы длиннее лимита режутся по строкам, строки по словам.
func segments(text string, limit int) []segment {
	var out []segment
	for i, block := range strings.Split(text, "\n\n") {
		sep := "\n\n"
		if i == 0 {
			sep = ""
		}
		if utf8.RuneCountInString(block) <= limit {
			out = append(out, segment{sep: sep, text: block})
			continue
		}
		for j, line := range strings.Split(block, "\n") {
			pieces := cutLine(line, limit)
			if j == 0 {
				pieces[0].sep = sep
			} else {
				pieces[0].sep = "\n"
			}
			out = append(out, pieces...)
		}
	}
	return out
}

// cutLine режет строку на куски не длиннее limit, не разрывая теги и по возможности слова.
// Разделитель первого куска заполняет вызывающий.
func cutLine(line string, limit int) []segment {
	runes := []rune(line)
	pieces := []segment{{}}
	for len(runes) > limit {
		cut, next := tagSafeCut(runes, limit), ""
		if space := lastIndex(runes[:cut], ' '); space > cut/2 && !insideTag(runes[:space]) {
			cut, next = space, " "
		}
		pieces[len(pieces)-1].text = string(runes[:cut])
		runes = runes[cut+len(next):]
		pieces = append(pieces, segment{sep: next})
	}
	pieces[len(pieces)-1].text = string(runes)
	return pieces
}

// tagSafeCut возвращает позицию разреза не дальше limit, если это не попадает внутрь тега.
// Тег, начинающийся с первой позиции, целиком остаётся в куске.
func tagSafeCut(runes []rune, limit int) int {
	window := runes[:limit]
	open := lastIndex(window, '<')
	if open <= lastIndex(window, '>') {
		return limit
	}
	if open > 0 {
		return open
	}
	for i := limit; i < len(runes); i++ {
		if runes[i] == '>' {
			return i + 1
		}
	}
	return limit
}

func insideTag(runes []rune) bool {
	return lastIndex(runes, '<') > lastIndex(runes, '>')
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
