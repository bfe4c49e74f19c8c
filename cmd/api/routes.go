package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"gapwatch/internal/domain"
	httpinfra "gapwatch/internal/infra/http"
	"gapwatch/internal/usecase/gaps"
	"gapwatch/internal/usecase/outlets"
)

type storyResponse struct {
	Title     string `json:"title"`
	Link      string `json:"link,omitempty"`
	Source    string `json:"source,omitempty"`
	Published string `json:"published,omitempty"`
}

type groupResponse struct {
	Title          string          `json:"title"`
	Link           string          `json:"link,omitempty"`
	Description    string          `json:"description,omitempty"`
	Publishers     []string        `json:"publishers"`
	BuzzScore      int             `json:"buzz_score"`
	RelevanceScore int             `json:"relevance_score"`
	Stories        []storyResponse `json:"stories"`
}

type gapsResponse struct {
	BuiltAt          time.Time       `json:"built_at"`
	ReferenceCount   int             `json:"reference_count"`
	OutletStoryCount int             `json:"outlet_story_count"`
	EligibleCount    int             `json:"eligible_count"`
	GapCount         int             `json:"gap_count"`
	Groups           []groupResponse `json:"groups"`
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

type api struct {
	gaps    *gaps.Service
	outlets *outlets.Service
	log     zerolog.Logger
}

// routes регистрирует эндпоинты /api/v1.
func (a *api) routes(r chi.Router, adminToken string) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/gaps", a.listGaps)
		r.Get("/gaps/membership", a.membership)
		r.Get("/outlets", a.listOutlets)

		r.Group(func(admin chi.Router) {
			admin.Use(httpinfra.AdminTokenMiddleware(adminToken))
			admin.Post("/gaps/refresh", a.refresh)
			admin.Put("/outlets/{id}", a.toggleOutlet)
			admin.Put("/settings/highlight", a.setHighlight)
		})
	})
}

func (a *api) listGaps(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpinfra.WriteError(w, http.StatusBadRequest, fmt.Errorf("некорректный limit %q", raw))
			return
		}
		limit = n
	}
	list, err := a.gaps.Ranked(r.Context())
	if err != nil {
		a.writeBuildError(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, toGapsResponse(list, limit))
}

func (a *api) membership(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		httpinfra.WriteError(w, http.StatusBadRequest, errors.New("параметр title обязателен"))
		return
	}
	gap, err := a.gaps.IsGapTitle(r.Context(), title)
	if err != nil {
		a.writeBuildError(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{
		"title":     title,
		"gap":       gap,
		"highlight": a.gaps.HighlightEnabled(),
	})
}

func (a *api) refresh(w http.ResponseWriter, r *http.Request) {
	a.gaps.Invalidate()
	list, err := a.gaps.Rebuild(r.Context())
	if err != nil {
		a.writeBuildError(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, toGapsResponse(list, -1))
}

func (a *api) listOutlets(w http.ResponseWriter, r *http.Request) {
	list, err := a.outlets.List(r.Context())
	if err != nil {
		a.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: таблица изданий недоступна")
		httpinfra.WriteError(w, http.StatusServiceUnavailable, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, list)
}

func (a *api) toggleOutlet(w http.ResponseWriter, r *http.Request) {
	enabled, ok := decodeToggle(w, r)
	if !ok {
		return
	}
	outlet, err := a.outlets.SetEnabled(r.Context(), chi.URLParam(r, "id"), enabled)
	if err != nil {
		if errors.Is(err, domain.ErrOutletNotFound) {
			httpinfra.WriteError(w, http.StatusNotFound, err)
			return
		}
		a.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: флаг издания не сохранён")
		httpinfra.WriteError(w, http.StatusServiceUnavailable, err)
		return
	}
	a.log.Info().Str("outlet", outlet.ID).Bool("enabled", outlet.Enabled).Str("request_id", httpinfra.RequestID(r)).Msg("api: изменён статус издания")
	httpinfra.WriteJSON(w, http.StatusOK, outlet)
}

func (a *api) setHighlight(w http.ResponseWriter, r *http.Request) {
	enabled, ok := decodeToggle(w, r)
	if !ok {
		return
	}
	a.gaps.SetHighlight(enabled)
	httpinfra.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": a.gaps.HighlightEnabled()})
}

func decodeToggle(w http.ResponseWriter, r *http.Request) (bool, bool) {
	defer r.Body.Close()
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		httpinfra.WriteError(w, http.StatusBadRequest, errors.New(`ожидается {"enabled": true|false}`))
		return false, false
	}
	return *req.Enabled, true
}

func (a *api) writeBuildError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrEmptySnapshot) {
		httpinfra.WriteError(w, http.StatusServiceUnavailable, err)
		return
	}
	a.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: не удалось построить список пробелов")
	httpinfra.WriteError(w, http.StatusInternalServerError, errors.New("внутренняя ошибка"))
}

// toGapsResponse переводит список в JSON; limit <= 0 означает все группы.
func toGapsResponse(list domain.RankedGapList, limit int) gapsResponse {
	groups := list.Top(limit)
	resp := gapsResponse{
		BuiltAt:          list.BuiltAt,
		ReferenceCount:   list.ReferenceCount,
		OutletStoryCount: list.OutletStoryCount,
		EligibleCount:    list.EligibleCount,
		GapCount:         list.GapCount,
		Groups:           make([]groupResponse, 0, len(groups)),
	}
	for _, g := range groups {
		item := groupResponse{
			Title:          g.Title,
			Link:           g.Link,
			Description:    g.Description,
			Publishers:     g.Publishers,
			BuzzScore:      g.BuzzScore(),
			RelevanceScore: g.RelevanceScore(),
			Stories:        make([]storyResponse, 0, len(g.Stories)),
		}
		for _, s := range g.Stories {
			story := storyResponse{Title: s.Title, Link: s.Link, Source: s.Source, Published: s.PublishedRaw}
			if s.HasPublished() {
				story.Published = s.Published.UTC().Format(time.RFC3339)
			}
			item.Stories = append(item.Stories, story)
		}
		resp.Groups = append(resp.Groups, item)
	}
	return resp
}
