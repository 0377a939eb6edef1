package analytics

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/angelcm/pse-data-bridge/internal/models"
)

const (
	DefaultMinROI      = 100.0
	DefaultRankLimit   = 20
	DefaultLookupLimit = 30
)

// MetricsLookup returns the most recent metric records of one content item,
// at most limit of them.
type MetricsLookup func(ctx context.Context, contentID string, limit int) ([]models.MetricRecord, error)

type RankOptions struct {
	MinROI      float64
	Limit       int
	LookupLimit int
	Concurrency int
}

func DefaultRankOptions() RankOptions {
	return RankOptions{
		MinROI:      DefaultMinROI,
		Limit:       DefaultRankLimit,
		LookupLimit: DefaultLookupLimit,
		Concurrency: DefaultConcurrency,
	}
}

type LookupFailure struct {
	ContentID string `json:"contentId"`
	Err       error  `json:"-"`
	Message   string `json:"error"`
}

type Ranking struct {
	MinROI   float64             `json:"minROI"`
	Count    int                 `json:"count"`
	Items    []models.ContentROI `json:"items"`
	Failures []LookupFailure     `json:"failures,omitempty"`
}

// Rank computes ROI per distinct mapped content item and returns those at or
// above MinROI, best first. Items without metrics are skipped; lookup errors
// are reported per item.
func Rank(ctx context.Context, mappings []models.Mapping, lookup MetricsLookup, opts RankOptions) Ranking {
	if opts.Limit <= 0 {
		opts.Limit = DefaultRankLimit
	}
	if opts.LookupLimit <= 0 {
		opts.LookupLimit = DefaultLookupLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	ids := distinctContent(mappings)
	type slot struct {
		recs []models.MetricRecord
		err  error
	}
	slots := make([]slot, len(ids))

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				slots[i].err = err
				return nil
			}
			slots[i].recs, slots[i].err = lookup(ctx, id, opts.LookupLimit)
			return nil
		})
	}
	_ = g.Wait()

	out := Ranking{MinROI: opts.MinROI, Items: []models.ContentROI{}}
	for i, id := range ids {
		s := slots[i]
		if s.err != nil {
			out.Failures = append(out.Failures, LookupFailure{ContentID: id, Err: s.err, Message: s.err.Error()})
			continue
		}
		if len(s.recs) == 0 {
			continue
		}
		var revenue, cost float64
		var clicks int
		for _, r := range s.recs {
			revenue += maxf(r.Revenue)
			cost += maxf(r.Cost)
			clicks += max0(r.Clicks)
		}
		v := roi(revenue, cost)
		if v < opts.MinROI {
			continue
		}
		out.Items = append(out.Items, models.ContentROI{ContentID: id, ROI: v, Revenue: revenue, Cost: cost, Clicks: clicks})
	}

	sort.SliceStable(out.Items, func(i, j int) bool { return out.Items[i].ROI > out.Items[j].ROI })
	out.Count = len(out.Items)
	if len(out.Items) > opts.Limit {
		out.Items = out.Items[:opts.Limit]
	}
	for i := range out.Items {
		out.Items[i].ROI = round2(out.Items[i].ROI)
	}
	return out
}

func distinctContent(mappings []models.Mapping) []string {
	seen := make(map[string]struct{}, len(mappings))
	ids := make([]string, 0, len(mappings))
	for _, m := range mappings {
		if m.ContentID == "" {
			continue
		}
		if _, ok := seen[m.ContentID]; ok {
			continue
		}
		seen[m.ContentID] = struct{}{}
		ids = append(ids, m.ContentID)
	}
	return ids
}
