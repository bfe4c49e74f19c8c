package gaps

import "strings"

type publisherRule struct {
	tag     string
	needles []string
}

var publisherRules = []publisherRule{
	{tag: "NYT", needles: []string{"nyt", "new york times"}},
	{tag: "WSJ", needles: []string{"wsj", "wall street"}},
	{tag: "WaPo", needles: []string{"wash", "wapo"}},
}

// CanonicalPublisher приводит подпись источника к короткому тегу издания.
// Если подпись пустая, используется fallback; неизвестные подписи возвращаются как есть.
func CanonicalPublisher(label, fallback string) string {
	if strings.TrimSpace(label) == "" {
		label = fallback
	}
	lower := strings.ToLower(label)
	for _, rule := range publisherRules {
		for _, needle := range rule.needles {
			if strings.Contains(lower, needle) {
				return rule.tag
			}
		}
	}
	return label
}
