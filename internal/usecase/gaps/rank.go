package gaps

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"gapwatch/internal/domain"
)

// MembershipTopN ограничивает число групп, по которым отмечаются заголовки.
const MembershipTopN = 10

// Rank упорядочивает группы по числу изданий, затем по числу заголовков.
// При равенстве сохраняется порядок создания групп.
func Rank(groups []domain.GapGroup) []domain.GapGroup {
	ranked := make([]domain.GapGroup, len(groups))
	copy(ranked, groups)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].BuzzScore() != ranked[j].BuzzScore() {
			return ranked[i].BuzzScore() > ranked[j].BuzzScore()
		}
		return ranked[i].RelevanceScore() > ranked[j].RelevanceScore()
	})
	return ranked
}

// IsGap сообщает, относится ли произвольный заголовок к одной из переданных групп.
func IsGap(title string, groups []domain.GapGroup) bool {
	features := FeaturesOf(CleanTitle(title))
	if !features.Comparable() {
		return false
	}
	for _, g := range groups {
		if Match(features.Keywords, features.Entities, g.Keywords, g.Entities) {
			return true
		}
	}
	return false
}

// IsMember проверяет заголовок по верхним MembershipTopN группам списка.
func IsMember(title string, list domain.RankedGapList) bool {
	return IsGap(title, list.Top(MembershipTopN))
}

// Fingerprint возвращает отпечаток набора групп по их заголовкам и порядку.
func Fingerprint(groups []domain.GapGroup) string {
	h := sha256.New()
	for _, g := range groups {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(g.Title))))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
