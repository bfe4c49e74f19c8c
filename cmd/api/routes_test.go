package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"gapwatch/internal/domain"
	httpinfra "gapwatch/internal/infra/http"
	"gapwatch/internal/usecase/gaps"
	"gapwatch/internal/usecase/outlets"
)

type staticSource struct {
	reference []domain.Story
	stories   map[string][]domain.Story
}

func (s staticSource) Reference(context.Context) ([]domain.Story, error) {
	if len(s.reference) == 0 {
		return nil, domain.ErrEmptySnapshot
	}
	return s.reference, nil
}

func (s staticSource) OutletStories(_ context.Context, list []domain.Outlet) ([]domain.OutletStories, error) {
	out := make([]domain.OutletStories, 0, len(list))
	for _, o := range list {
		out = append(out, domain.OutletStories{Outlet: o, Stories: s.stories[o.ID]})
	}
	return out, nil
}

const testToken = "secret"

func newTestServer(t *testing.T, source gaps.StorySource) (*httptest.Server, *gaps.Service) {
	t.Helper()
	registry, err := outlets.NewService([]domain.Outlet{
		{ID: "nyt", Name: "New York Times", Enabled: true, Feeds: []domain.Feed{{Label: "Home", URL: "https://example.com/nyt.xml"}}},
		{ID: "wsj", Name: "Wall Street Journal", Enabled: true, Feeds: []domain.Feed{{Label: "Home", URL: "https://example.com/wsj.xml"}}},
	})
	require.NoError(t, err)
	session := gaps.NewService(source, registry, zerolog.Nop(), 10)
	session.SetHighlight(true)
	registry.OnChange(session.Invalidate)

	srv := httpinfra.NewServer(zerolog.Nop())
	(&api{gaps: session, outlets: registry, log: zerolog.Nop()}).routes(srv.Router, testToken)
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)
	return ts, session
}

func testSource() staticSource {
	return staticSource{
		reference: []domain.Story{
			{Title: "Senate passes sweeping border security bill", Link: "https://example.com/border"},
			{Title: "Local team wins championship", Link: "https://example.com/team"},
		},
		stories: map[string][]domain.Story{
			"nyt": {{Title: "Fed cuts interest rates again amid inflation worries", Link: "https://nyt.example/fed"}},
			"wsj": {{Title: "Fed cuts interest rates as inflation cools", Link: "https://wsj.example/fed"}},
		},
	}
}

func do(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestListGaps(t *testing.T) {
	ts, _ := newTestServer(t, testSource())

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/gaps", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body gapsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 2, body.ReferenceCount)
	require.Equal(t, 2, body.GapCount)
	require.Len(t, body.Groups, 1)
	require.Equal(t, 2, body.Groups[0].BuzzScore)
	require.ElementsMatch(t, []string{"NYT", "WSJ"}, body.Groups[0].Publishers)
}

func TestListGapsRejectsBadLimit(t *testing.T) {
	ts, _ := newTestServer(t, testSource())
	resp := do(t, http.MethodGet, ts.URL+"/api/v1/gaps?limit=abc", "", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListGapsWithoutReference(t *testing.T) {
	ts, _ := newTestServer(t, staticSource{})
	resp := do(t, http.MethodGet, ts.URL+"/api/v1/gaps", "", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMembership(t *testing.T) {
	ts, _ := newTestServer(t, testSource())

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/gaps/membership?title=Fed+cuts+interest+rates+again+amid+inflation+worries", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, true, body["gap"])

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/gaps/membership", "", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminRoutes(t *testing.T) {
	ts, session := newTestServer(t, testSource())

	resp := do(t, http.MethodPut, ts.URL+"/api/v1/settings/highlight", "", `{"enabled":false}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.True(t, session.HighlightEnabled())

	resp = do(t, http.MethodPut, ts.URL+"/api/v1/settings/highlight", testToken, `{"enabled":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, session.HighlightEnabled())

	resp = do(t, http.MethodPut, ts.URL+"/api/v1/settings/highlight", testToken, `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/v1/gaps/refresh", testToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, cached := session.Cached()
	require.True(t, cached)
}

func TestToggleOutletInvalidatesCache(t *testing.T) {
	ts, session := newTestServer(t, testSource())

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/gaps", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, cached := session.Cached()
	require.True(t, cached)

	resp = do(t, http.MethodPut, ts.URL+"/api/v1/outlets/wsj", testToken, `{"enabled":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, cached = session.Cached()
	require.False(t, cached)

	list, err := session.Ranked(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, list.GapCount)

	resp = do(t, http.MethodPut, ts.URL+"/api/v1/outlets/bbc", testToken, `{"enabled":true}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type revisionCounter struct {
	rev int64
}

func (c *revisionCounter) Revision(context.Context) (int64, error) { return c.rev, nil }

func (c *revisionCounter) BumpRevision(context.Context) (int64, error) {
	c.rev++
	return c.rev, nil
}

func TestGapsFollowDataRevision(t *testing.T) {
	source := testSource()
	ts, session := newTestServer(t, source)
	revisions := &revisionCounter{}
	session.UseRevisions(revisions)

	var body gapsResponse
	resp := do(t, http.MethodGet, ts.URL+"/api/v1/gaps", "", "")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Groups, 1)

	source.stories["nyt"] = append(source.stories["nyt"], domain.Story{Title: "NASA Mars Rover Finds Ancient Lake Bed", Link: "https://nyt.example/mars"})
	_, err := revisions.BumpRevision(context.Background())
	require.NoError(t, err)

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/gaps", "", "")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Groups, 2)
	require.Equal(t, 3, body.GapCount)

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/gaps/membership?title=Mars+Rover+Finds+Ancient+Lake+Bed", "", "")
	var membership map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&membership))
	require.Equal(t, true, membership["gap"])
}
