package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelcm/pse-data-bridge/internal/bridge"
)

type app struct {
	out  io.Writer
	open func(ctx context.Context) (*bridge.Service, func() error, error)

	svc   *bridge.Service
	close func() error
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "bridgectl",
		Short:         "Run content/keyword bridge operations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			a.svc, a.close = svc, closeFn
			return nil
		},
	}
	root.AddCommand(
		a.contentCommand(),
		a.matchCommand(),
		a.aggregateCommand(),
		a.correlateCommand(),
		a.rankCommand(),
		a.mapCommand(),
		a.analyzeCommand(),
		a.healthCommand(),
		a.seedCommand(),
	)
	return root
}

// shutdown releases whatever PersistentPreRunE opened. Cobra skips post-run
// hooks when a command fails, so callers run it after Execute returns.
func (a *app) shutdown() error {
	if a.close == nil {
		return nil
	}
	closeFn := a.close
	a.close = nil
	return closeFn()
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) contentCommand() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "content",
		Short: "List content items by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.ListPublishedContent(cmd.Context(), status, limit)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Content status (default published)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum items to return")
	return cmd
}

func (a *app) matchCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Score published content against keywords and upsert mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.MatchContentToKeywords(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report matches without writing mappings")
	return cmd
}

func (a *app) aggregateCommand() *cobra.Command {
	var start, end, entityType string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Sum performance metrics over a date window",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.AggregateMetrics(cmd.Context(), start, end, entityType)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "Entity type (default content)")
	return cmd
}

func (a *app) correlateCommand() *cobra.Command {
	var date, source string
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Group one day of revenue by attribution source",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.CorrelateRevenue(cmd.Context(), date, source)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day, YYYY-MM-DD")
	cmd.Flags().StringVar(&source, "source", "", "Attribution source (default all)")
	return cmd
}

func (a *app) rankCommand() *cobra.Command {
	var (
		minROI float64
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank mapped content by ROI",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := bridge.RankParams{Limit: limit}
			if cmd.Flags().Changed("min-roi") {
				p.MinROI = &minROI
			}
			res, err := a.svc.RankHighValueContent(cmd.Context(), p)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	cmd.Flags().Float64Var(&minROI, "min-roi", 100, "Minimum ROI percentage")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum items to return")
	return cmd
}

func (a *app) mapCommand() *cobra.Command {
	var (
		in    bridge.UpsertMappingInput
		score int
	)
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Create or update a manual content mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("score") {
				in.MatchScore = &score
			}
			res, err := a.svc.UpsertMapping(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	cmd.Flags().StringVar(&in.ContentID, "content", "", "Content id")
	cmd.Flags().StringVar(&in.MappingType, "type", "", "Mapping type")
	cmd.Flags().StringVar(&in.CampaignID, "campaign", "", "Campaign id")
	cmd.Flags().IntVar(&score, "score", 0, "Match score 0-100")
	return cmd
}

func (a *app) analyzeCommand() *cobra.Command {
	var (
		in       bridge.AnalyzeInput
		keywords string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Assess campaign potential of a content item",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keywords != "" {
				in.Keywords = strings.Split(keywords, ",")
			}
			res, err := a.svc.AnalyzeContent(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.print(res)
		},
	}
	cmd.Flags().StringVar(&in.ContentID, "content-id", "", "Blog content id to analyze")
	cmd.Flags().StringVar(&in.Content, "text", "", "Raw text to analyze instead of a stored item")
	cmd.Flags().StringVar(&keywords, "keywords", "", "Comma-separated target keywords")
	return cmd
}

func (a *app) healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe tables and the completion service",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep := a.svc.HealthCheck(cmd.Context())
			if err := a.print(rep); err != nil {
				return err
			}
			if !rep.Healthy {
				return fmt.Errorf("unhealthy")
			}
			return nil
		},
	}
}

func (a *app) seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.json>",
		Short: "Load a JSON fixture of records into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			fx, err := bridge.ReadFixture(f)
			if err != nil {
				return err
			}
			if err := a.svc.Repo().Load(cmd.Context(), fx); err != nil {
				return err
			}
			return a.print(map[string]int{"loaded": fx.Count()})
		},
	}
}
