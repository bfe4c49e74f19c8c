package gaps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanTitle(t *testing.T) {
	cases := []struct{ in, want string }{
		{in: "Fed Cuts Rates - The New York Times", want: "Fed Cuts Rates"},
		{in: "Markets Rally | WSJ", want: "Markets Rally"},
		{in: "Senate Passes Budget — Washington Post", want: "Senate Passes Budget"},
		{in: "Opinion: The Case for Rate Cuts", want: "The Case for Rate Cuts"},
		{in: "Analysis | Why the Deal Matters - The Washington Post", want: "Why the Deal Matters"},
		{in: "  Plain title  ", want: "Plain title"},
		{in: "New York Times Buys Wordle", want: "New York Times Buys Wordle"},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CleanTitle(tc.in), "CleanTitle(%q)", tc.in)
	}
}

func TestIsOpinion(t *testing.T) {
	require.True(t, IsOpinion("Opinion: The Case for Rate Cuts"))
	require.True(t, IsOpinion("OPINION | Rates are too high"))
	require.True(t, IsOpinion("Editorial: Fix the budget"))
	require.True(t, IsOpinion("Letters to the editor: On housing"))
	require.True(t, IsOpinion("Review: A quiet thriller"))
	require.True(t, IsOpinion("analysis - what the vote means"))

	require.False(t, IsOpinion("The Opinionated Chef"))
	require.False(t, IsOpinion("Opinionated Chef Opens Bistro"))
	require.False(t, IsOpinion("Reviewing the Budget Process"))
	require.False(t, IsOpinion(""))
}

func TestIsRoundup(t *testing.T) {
	roundups := []string{
		"Dow closes higher as tech rallies",
		"Stocks end lower after jobs report",
		"S&P 500 finishes flat ahead of Fed decision",
		"Dow closed at a record after rate cut",
		"Markets wrap: Treasuries slide",
		"Evening Briefing: What you missed",
		"Stocks to watch this week",
		"What to watch in Washington",
		"What's happening in tech today",
		"What is happening with the weather",
		"Morning digest for April 4",
		"Live updates: Storm hits the coast",
		"Stock market today: Nasdaq slips",
		"Friday recap: the week in review",
	}
	for _, title := range roundups {
		require.True(t, IsRoundup(title), "ожидали подборку: %q", title)
	}

	stories := []string{
		"Fed Slashes Interest Rates",
		"Local Team Wins Championship",
		"Apple Buys Startup for $500 Million",
		"Nasdaq ends listing of Chinese firm",
		"Stocks slide as strike ends at Boeing plant",
	}
	for _, title := range stories {
		require.False(t, IsRoundup(title), "ожидали отдельный сюжет: %q", title)
		require.True(t, Eligible(title))
	}
}
