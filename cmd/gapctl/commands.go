package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gapwatch/internal/adapters/feeds"
	"gapwatch/internal/adapters/reference"
	"gapwatch/internal/domain"
	"gapwatch/internal/infra/config"
	applog "gapwatch/internal/infra/log"
	"gapwatch/internal/usecase/gaps"
	"gapwatch/internal/usecase/outlets"
)

type sourceFlags struct {
	reference string
	outlets   string
	stories   string
	timeout   time.Duration
	verbose   bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.reference, "reference", "", "путь или URL снимка эталонного списка (обязательно)")
	cmd.Flags().StringVar(&f.outlets, "outlets", "", "YAML с таблицей изданий (по умолчанию встроенная)")
	cmd.Flags().StringVar(&f.stories, "stories", "", "JSON с заголовками изданий вместо загрузки лент")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 20*time.Second, "таймаут загрузки лент и эталона")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "подробный лог в stderr")
	_ = cmd.MarkFlagRequired("reference")
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "gapctl",
		Short:         "Поиск пробелов в новостном покрытии",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.AddCommand(newRankCmd(), newCheckCmd(), newFeaturesCmd(), newVersionCmd())
	return root
}

func newRankCmd() *cobra.Command {
	var (
		src    sourceFlags
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Построить ранжированный список пробелов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := src.build(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(toRankOutput(list, limit))
			}
			printRanked(cmd.OutOrStdout(), list, limit)
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", gaps.MembershipTopN, "сколько групп вывести (0 — все)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "вывести в JSON")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "check <заголовок>",
		Short: "Проверить, входит ли заголовок в верхние пробелы",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			list, err := src.build(cmd.Context())
			if err != nil {
				return err
			}
			if gaps.IsMember(title, list) {
				fmt.Fprintf(cmd.OutOrStdout(), "gap: «%s» входит в верхние %d пробелов\n", title, gaps.MembershipTopN)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "covered: «%s» не относится к верхним пробелам\n", title)
			return nil
		},
	}
	src.register(cmd)
	return cmd
}

func newFeaturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features <заголовок>",
		Short: "Показать очищенный заголовок и извлечённые признаки",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			clean := gaps.CleanTitle(title)
			f := gaps.FeaturesOf(clean)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "clean:    %s\n", clean)
			fmt.Fprintf(w, "opinion:  %t\n", gaps.IsOpinion(title))
			fmt.Fprintf(w, "roundup:  %t\n", gaps.IsRoundup(title))
			fmt.Fprintf(w, "eligible: %t\n", gaps.Eligible(title))
			fmt.Fprintf(w, "keywords: %s\n", strings.Join(f.Keywords, ", "))
			fmt.Fprintf(w, "entities: %s\n", strings.Join(f.Entities, ", "))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gapctl %s (commit: %s)\n", version, commit)
		},
	}
}

// build загружает эталон и заголовки изданий и пересчитывает список.
func (f *sourceFlags) build(ctx context.Context) (domain.RankedGapList, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := zerolog.Nop()
	if f.verbose {
		logger = applog.NewLogger("dev", "gapctl").Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	outletList, err := config.LoadOutlets(f.outlets)
	if err != nil {
		return domain.RankedGapList{}, fmt.Errorf("издания: %w", err)
	}
	registry, err := outlets.NewService(outletList)
	if err != nil {
		return domain.RankedGapList{}, fmt.Errorf("издания: %w", err)
	}

	snapshot, err := reference.NewLoader(f.timeout, logger).Load(ctx, f.reference)
	if err != nil {
		return domain.RankedGapList{}, fmt.Errorf("эталонный список: %w", err)
	}

	var fetcher domain.FeedFetcher = feeds.NewRSSFetcher(f.timeout, logger)
	if f.stories != "" {
		fetcher, err = loadStoriesFile(f.stories)
		if err != nil {
			return domain.RankedGapList{}, err
		}
	}

	source := gaps.NewLiveSource(snapshot, fetcher, logger)
	return gaps.NewService(source, registry, logger, gaps.MembershipTopN).Rebuild(ctx)
}

// fileFetcher отдаёт заголовки изданий из заранее сохранённого JSON.
type fileFetcher map[string][]domain.Story

func (f fileFetcher) Fetch(_ context.Context, outlet domain.Outlet) ([]domain.Story, error) {
	return f[outlet.ID], nil
}

type storyFile struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

func loadStoriesFile(path string) (fileFetcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("заголовки изданий: %w", err)
	}
	var raw map[string][]storyFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("заголовки изданий: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("заголовки изданий: файл пуст")
	}
	out := make(fileFetcher, len(raw))
	for id, items := range raw {
		id = strings.ToLower(strings.TrimSpace(id))
		for _, item := range items {
			out[id] = append(out[id], domain.Story{
				Title:       item.Title,
				Link:        item.Link,
				Description: item.Description,
				Source:      item.Source,
				FeedID:      id,
			})
		}
	}
	return out, nil
}

type rankOutput struct {
	ReferenceCount   int           `json:"reference_count"`
	OutletStoryCount int           `json:"outlet_story_count"`
	EligibleCount    int           `json:"eligible_count"`
	GapCount         int           `json:"gap_count"`
	Groups           []groupOutput `json:"groups"`
}

type groupOutput struct {
	Title          string   `json:"title"`
	Link           string   `json:"link,omitempty"`
	Publishers     []string `json:"publishers"`
	BuzzScore      int      `json:"buzz_score"`
	RelevanceScore int      `json:"relevance_score"`
	Keywords       []string `json:"keywords"`
	Entities       []string `json:"entities"`
}

func toRankOutput(list domain.RankedGapList, limit int) rankOutput {
	groups := list.Top(limit)
	out := rankOutput{
		ReferenceCount:   list.ReferenceCount,
		OutletStoryCount: list.OutletStoryCount,
		EligibleCount:    list.EligibleCount,
		GapCount:         list.GapCount,
		Groups:           make([]groupOutput, 0, len(groups)),
	}
	for _, g := range groups {
		out.Groups = append(out.Groups, groupOutput{
			Title:          g.Title,
			Link:           g.Link,
			Publishers:     g.Publishers,
			BuzzScore:      g.BuzzScore(),
			RelevanceScore: g.RelevanceScore(),
			Keywords:       g.Keywords,
			Entities:       g.Entities,
		})
	}
	return out
}

func printRanked(w io.Writer, list domain.RankedGapList, limit int) {
	fmt.Fprintf(w, "эталон: %d, заголовков изданий: %d, пропущено: %d, групп: %d\n",
		list.ReferenceCount, list.OutletStoryCount, list.GapCount, len(list.Groups))
	groups := list.Top(limit)
	if len(groups) == 0 {
		fmt.Fprintln(w, "пробелов в покрытии не найдено")
		return
	}
	for i, g := range groups {
		fmt.Fprintf(w, "%2d. [%d/%d] %s (%s)\n", i+1, g.BuzzScore(), g.RelevanceScore(), g.Title, strings.Join(g.Publishers, ", "))
		if g.Link != "" {
			fmt.Fprintf(w, "    %s\n", g.Link)
		}
	}
}
