package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gapwatch/internal/adapters/reference"
	"gapwatch/internal/domain"
)

const storiesJSON = `{
  "nyt": [
    {"title": "Fed cuts interest rates again amid inflation worries", "link": "https://nyt.example/fed"},
    {"title": "Opinion: The Fed is wrong", "link": "https://nyt.example/op"}
  ],
  "wsj": [
    {"title": "Fed cuts interest rates as inflation cools", "link": "https://wsj.example/fed"}
  ],
  "wapo": [
    {"title": "Senate passes sweeping border security bill", "link": "https://wapo.example/border"}
  ]
}`

func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	snapshot := domain.ReferenceSnapshot{
		CachedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Stories: []domain.Story{
			{Title: "Senate passes sweeping border security bill", Topic: "top"},
			{Title: "Local team wins championship", Topic: "top"},
		},
	}
	data, err := reference.Encode(snapshot)
	require.NoError(t, err)
	refPath := filepath.Join(dir, "reference.json")
	require.NoError(t, os.WriteFile(refPath, data, 0o600))
	storiesPath := filepath.Join(dir, "stories.json")
	require.NoError(t, os.WriteFile(storiesPath, []byte(storiesJSON), 0o600))
	return refPath, storiesPath
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestRankJSON(t *testing.T) {
	refPath, storiesPath := writeFixtures(t)
	output := run(t, "rank", "--reference", refPath, "--stories", storiesPath, "--json")

	var result rankOutput
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	require.Equal(t, 2, result.ReferenceCount)
	require.Equal(t, 4, result.OutletStoryCount)
	require.Equal(t, 2, result.GapCount)
	require.Len(t, result.Groups, 1)
	require.Equal(t, []string{"NYT", "WSJ"}, result.Groups[0].Publishers)
}

func TestRankText(t *testing.T) {
	refPath, storiesPath := writeFixtures(t)
	output := run(t, "rank", "--reference", refPath, "--stories", storiesPath)
	require.Contains(t, output, "Fed cuts interest rates again amid inflation worries")
	require.Contains(t, output, "[2/2]")
}

func TestCheck(t *testing.T) {
	refPath, storiesPath := writeFixtures(t)
	output := run(t, "check", "--reference", refPath, "--stories", storiesPath, "Fed", "cuts", "interest", "rates", "again")
	require.True(t, strings.HasPrefix(output, "gap:"), output)

	output = run(t, "check", "--reference", refPath, "--stories", storiesPath, "Local team wins championship")
	require.True(t, strings.HasPrefix(output, "covered:"), output)
}

func TestRankRequiresReference(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"rank"})
	require.Error(t, cmd.Execute())
}

func TestFeatures(t *testing.T) {
	output := run(t, "features", "Opinion: Fed cuts $25 billion - The New York Times")
	require.Contains(t, output, "opinion:  true")
	require.Contains(t, output, "eligible: false")
	require.Contains(t, output, "clean:    Fed cuts $25 billion\n")
}

func TestVersion(t *testing.T) {
	require.Contains(t, run(t, "version"), "gapctl dev")
}
