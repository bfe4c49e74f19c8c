package gaps

import (
	"time"

	"gapwatch/internal/domain"
)

// Compute выполняет полный пересчёт: поиск пробелов, группировку и ранжирование.
func Compute(reference []domain.Story, outlets []domain.OutletStories, builtAt time.Time) domain.RankedGapList {
	detection := DetectGaps(reference, outlets)
	groups := Rank(GroupGaps(detection.Gaps))
	return domain.RankedGapList{
		Groups:           groups,
		BuiltAt:          builtAt,
		ReferenceCount:   len(reference),
		OutletStoryCount: detection.Considered,
		EligibleCount:    detection.Eligible,
		GapCount:         len(detection.Gaps),
	}
}
