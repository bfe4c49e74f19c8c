package gaps

const (
	entityTierMin      = 2
	mixedTierKeywords  = 2
	keywordTierMin     = 3
	keywordTierDensity = 0.3
)

// Match решает, описывают ли два набора признаков один и тот же сюжет.
// Пересечение считается по элементам первого набора, поэтому при повторах
// в списках результат может зависеть от порядка аргументов.
func Match(kw1, ent1, kw2, ent2 []string) bool {
	entOverlap := overlapCount(ent1, ent2)
	if entOverlap >= entityTierMin {
		return true
	}
	kwOverlap := overlapCount(kw1, kw2)
	if entOverlap >= 1 && kwOverlap >= mixedTierKeywords {
		return true
	}
	shorter := min(len(kw1), len(kw2))
	if shorter == 0 || kwOverlap < keywordTierMin {
		return false
	}
	return float64(kwOverlap)/float64(shorter) >= keywordTierDensity
}

// MatchFeatures сравнивает кандидата с эталонным набором признаков.
func MatchFeatures(candidate, reference Features) bool {
	return Match(candidate.Keywords, candidate.Entities, reference.Keywords, reference.Entities)
}

func overlapCount(first, second []string) int {
	if len(first) == 0 || len(second) == 0 {
		return 0
	}
	present := make(map[string]struct{}, len(second))
	for _, s := range second {
		present[s] = struct{}{}
	}
	count := 0
	for _, f := range first {
		if _, ok := present[f]; ok {
			count++
		}
	}
	return count
}
