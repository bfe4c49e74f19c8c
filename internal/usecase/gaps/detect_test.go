package gaps

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gapwatch/internal/domain"
)

func outletWith(id, name string, enabled bool, titles ...string) domain.OutletStories {
	stories := make([]domain.Story, 0, len(titles))
	for _, title := range titles {
		stories = append(stories, domain.Story{Title: title, Link: "https://example.com/" + id + "/" + title, FeedID: id})
	}
	return domain.OutletStories{Outlet: domain.Outlet{ID: id, Name: name, Enabled: enabled}, Stories: stories}
}

func TestDetectGapsEmptyReferenceReturnsEveryEligibleStory(t *testing.T) {
	outlets := []domain.OutletStories{
		outletWith("nyt", "New York Times", true,
			"Fed Slashes Interest Rates",
			"Opinion: The Case for Rate Cuts",
			"Live updates: Storm hits the coast",
			"A to Z",
		),
		outletWith("wsj", "Wall Street Journal", true, "Senate Passes Budget Bill"),
	}

	detection := DetectGaps(nil, outlets)

	require.Equal(t, 5, detection.Considered)
	require.Equal(t, 2, detection.Eligible)
	require.Len(t, detection.Gaps, 2)
	require.Equal(t, "Fed Slashes Interest Rates", detection.Gaps[0].Title)
	require.Equal(t, "NYT", detection.Gaps[0].Publisher)
	require.Equal(t, "Senate Passes Budget Bill", detection.Gaps[1].Title)
	require.Equal(t, "WSJ", detection.Gaps[1].Publisher)
}

func TestDetectGapsSkipsCoveredStories(t *testing.T) {
	reference := []domain.Story{
		{Title: "Fed Slashes Interest Rates"},
		{Title: ""},
	}
	outlets := []domain.OutletStories{
		outletWith("wsj", "Wall Street Journal", true,
			"Fed slashes interest rates by half a point - WSJ",
			"Local Team Wins Championship",
		),
	}

	detection := DetectGaps(reference, outlets)

	require.Len(t, detection.Gaps, 1)
	require.Equal(t, "Local Team Wins Championship", detection.Gaps[0].Title)
}

func TestDetectGapsIgnoresDisabledOutlets(t *testing.T) {
	outlets := []domain.OutletStories{
		outletWith("nyt", "New York Times", false, "Fed Slashes Interest Rates"),
		outletWith("bbc", "BBC News", true, "Local Team Wins Championship"),
	}

	detection := DetectGaps(nil, outlets)

	require.Len(t, detection.Gaps, 1)
	require.Equal(t, "BBC News", detection.Gaps[0].Publisher)
	require.Equal(t, 1, detection.Considered)
}

func TestPrepareCandidateUsesSourceLabelFirst(t *testing.T) {
	story := domain.Story{Title: "Markets Rally on Jobs Data - The Washington Post", Source: "The Washington Post"}
	c, ok := PrepareCandidate(story, "Some Outlet")
	require.True(t, ok)
	require.Equal(t, "WaPo", c.Publisher)
	require.Equal(t, "Markets Rally on Jobs Data", c.Title)
	require.Equal(t, []string{"markets", "rally", "jobs", "data"}, c.Keywords)

	_, ok = PrepareCandidate(domain.Story{Title: "Editorial: Fund the schools"}, "x")
	require.False(t, ok)
}
