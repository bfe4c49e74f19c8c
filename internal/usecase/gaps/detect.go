package gaps

import "gapwatch/internal/domain"

// Candidate описывает заголовок издания, подготовленный к сопоставлению.
type Candidate struct {
	Story     domain.Story
	Title     string
	Publisher string
	Features
}

// Detection содержит результат поиска пробелов.
type Detection struct {
	Gaps       []Candidate
	Considered int
	Eligible   int
}

// PrepareCandidate очищает заголовок и извлекает признаки.
// Возвращает false для колонок, подборок и заголовков без значимых слов.
func PrepareCandidate(story domain.Story, fallbackPublisher string) (Candidate, bool) {
	if !Eligible(story.Title) {
		return Candidate{}, false
	}
	title := CleanTitle(story.Title)
	features := FeaturesOf(title)
	if !features.Comparable() {
		return Candidate{}, false
	}
	return Candidate{
		Story:     story,
		Title:     title,
		Publisher: CanonicalPublisher(story.Source, fallbackPublisher),
		Features:  features,
	}, true
}

// ReferenceFeatures готовит признаки эталонного списка, пропуская пустые заголовки.
func ReferenceFeatures(reference []domain.Story) []Features {
	out := make([]Features, 0, len(reference))
	for _, story := range reference {
		f := FeaturesOf(CleanTitle(story.Title))
		if !f.Comparable() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// DetectGaps возвращает заголовки включённых изданий, которых нет в эталонном списке.
// Порядок результата повторяет порядок изданий и их заголовков.
func DetectGaps(reference []domain.Story, outlets []domain.OutletStories) Detection {
	refs := ReferenceFeatures(reference)
	var result Detection
	for _, entry := range outlets {
		if !entry.Outlet.Enabled {
			continue
		}
		fallback := entry.Outlet.Name
		if fallback == "" {
			fallback = entry.Outlet.ID
		}
		for _, story := range entry.Stories {
			result.Considered++
			candidate, ok := PrepareCandidate(story, fallback)
			if !ok {
				continue
			}
			result.Eligible++
			if covered(candidate.Features, refs) {
				continue
			}
			result.Gaps = append(result.Gaps, candidate)
		}
	}
	return result
}

func covered(candidate Features, refs []Features) bool {
	for _, ref := range refs {
		if MatchFeatures(candidate, ref) {
			return true
		}
	}
	return false
}
