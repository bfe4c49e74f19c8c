package gaps

import "gapwatch/internal/domain"

// GroupGaps жадно объединяет пробелы в группы за один проход.
// Признаки группы берутся у первого заголовка и больше не меняются,
// поэтому результат зависит от порядка входа.
func GroupGaps(gaps []Candidate) []domain.GapGroup {
	groups := make([]domain.GapGroup, 0)
	for _, gap := range gaps {
		idx := -1
		for i := range groups {
			if Match(gap.Keywords, gap.Entities, groups[i].Keywords, groups[i].Entities) {
				idx = i
				break
			}
		}
		if idx < 0 {
			groups = append(groups, domain.GapGroup{
				Title:       gap.Title,
				Link:        gap.Story.Link,
				Description: gap.Story.Description,
				Keywords:    gap.Keywords,
				Entities:    gap.Entities,
				Publishers:  []string{gap.Publisher},
				Stories:     []domain.Story{gap.Story},
			})
			continue
		}
		group := &groups[idx]
		group.Stories = append(group.Stories, gap.Story)
		if !group.HasPublisher(gap.Publisher) {
			group.Publishers = append(group.Publishers, gap.Publisher)
		}
	}
	return groups
}
