package gaps

import (
	"regexp"
	"strings"
)

var (
	publisherSuffixRe = regexp.MustCompile(`(?i)\s*[-–—|:]\s*(?:the\s+)?(?:washington\s+post|new\s+york\s+times|wall\s+street\s+journal|nytimes|nyt|wsj|wapo)\s*$`)
	sectionPrefixRe   = regexp.MustCompile(`(?i)^\s*(?:opinion|editorial|analysis|commentary)\s*[:|]\s*`)
	opinionRe         = regexp.MustCompile(`(?i)^\s*(?:opinion|editorial|commentary|analysis|letters to the editor|review)(?:[:|\-–—]|\s)`)
)

var roundupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:dow|s&p(?:\s*500)?|nasdaq|stocks?)\b.*\b(?:close[sd]?|end(?:s|ed)?|finish(?:es|ed)?)\s+(?:higher|lower|flat|mixed|up|down|at\s+(?:a\s+)?record)\b`),
	regexp.MustCompile(`(?i)\bmarkets?\s+wrap\b`),
	regexp.MustCompile(`(?i)\bbriefing:`),
	regexp.MustCompile(`(?i)\bstocks to watch\b`),
	regexp.MustCompile(`(?i)\bwhat to watch\b`),
	regexp.MustCompile(`(?i)\bwhat(?:'s|’s|\s+is)\s+happening\b`),
	regexp.MustCompile(`(?i)\bmorning\s+(?:brief|briefing|digest|report)\b`),
	regexp.MustCompile(`(?i)\blive\s+updates?\b`),
	regexp.MustCompile(`(?i)\bstock\s+market\s+(?:news|today)\b`),
	regexp.MustCompile(`(?i)\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)(?:'s|’s)?\s+recap\b`),
}

// CleanTitle убирает подпись издания в конце заголовка и рубрику в начале.
func CleanTitle(title string) string {
	cleaned := publisherSuffixRe.ReplaceAllString(title, "")
	cleaned = sectionPrefixRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// IsOpinion сообщает, начинается ли заголовок с колоночной рубрики.
func IsOpinion(title string) bool {
	return opinionRe.MatchString(title)
}

// IsRoundup сообщает, является ли заголовок регулярной подборкой, а не отдельным сюжетом.
func IsRoundup(title string) bool {
	for _, re := range roundupPatterns {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// Eligible сообщает, участвует ли заголовок в сопоставлении.
func Eligible(title string) bool {
	return !IsOpinion(title) && !IsRoundup(title)
}
