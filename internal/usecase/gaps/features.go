package gaps

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	keywordStripRe = regexp.MustCompile(`[^\p{L}\p{N}\s'-]`)
	numericRe      = regexp.MustCompile(`(?i)\$?\d[\d,.]*(?:\s?(?:billion|million|trillion|percent|%))?`)
	wordStripRe    = regexp.MustCompile(`[^\p{L}'-]`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

var stopWords = toSet(
	"the", "and", "for", "are", "but", "not", "you", "all", "any", "can", "had", "her", "was", "one",
	"our", "out", "has", "have", "his", "him", "how", "its", "may", "new", "now", "see", "way", "who",
	"did", "get", "got", "let", "say", "says", "said", "she", "too", "use", "will", "with", "from",
	"this", "that", "they", "them", "their", "there", "these", "those", "been", "were", "what", "when",
	"where", "which", "while", "into", "than", "then", "about", "after", "before", "over", "under",
	"more", "most", "some", "such", "only", "other", "also", "just", "could", "would", "should",
	"being", "does", "here", "your", "amid", "why", "per", "via", "off", "onto", "upon", "like",
	"report", "reports", "according",
)

var genericCapitalized = toSet(
	"the", "and", "but", "for", "nor", "yet", "with", "from", "into", "onto", "over", "under",
	"after", "before", "about", "amid", "than", "this", "that", "these", "those", "why", "how",
	"what", "when", "where", "who", "will", "are", "was", "were", "has", "have",
	"live", "updates", "update", "monday", "tuesday", "wednesday", "thursday", "friday",
)

// Features содержит признаки заголовка, по которым сравниваются сюжеты.
type Features struct {
	Keywords []string
	Entities []string
}

// Comparable сообщает, можно ли сравнивать заголовок с другими.
func (f Features) Comparable() bool {
	return len(f.Keywords) > 0
}

// FeaturesOf извлекает признаки из очищенного заголовка.
func FeaturesOf(cleanTitle string) Features {
	return Features{Keywords: Keywords(cleanTitle), Entities: Entities(cleanTitle)}
}

// Keywords возвращает значимые слова заголовка в исходном порядке, с повторами.
func Keywords(title string) []string {
	text := keywordStripRe.ReplaceAllString(strings.ToLower(title), "")
	var out []string
	for _, token := range strings.Fields(text) {
		if utf8.RuneCountInString(token) <= 2 {
			continue
		}
		if _, skip := stopWords[token]; skip {
			continue
		}
		out = append(out, token)
	}
	return out
}

// Entities возвращает числовые величины и слова с заглавной буквы, с повторами.
func Entities(title string) []string {
	var out []string
	for _, match := range numericRe.FindAllString(title, -1) {
		out = append(out, spaceRe.ReplaceAllString(strings.ToLower(match), ""))
	}
	for _, word := range strings.Fields(title) {
		token := wordStripRe.ReplaceAllString(word, "")
		if utf8.RuneCountInString(token) <= 2 {
			continue
		}
		first, _ := utf8.DecodeRuneInString(token)
		if !unicode.IsUpper(first) {
			continue
		}
		lower := strings.ToLower(token)
		if _, skip := genericCapitalized[lower]; skip {
			continue
		}
		out = append(out, lower)
	}
	return out
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
