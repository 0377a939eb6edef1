package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelcm/pse-data-bridge/internal/models"
)

const (
	DefaultThreshold    = 70
	DefaultPreviewLimit = 10
	DefaultConcurrency  = 8
)

// MappingSink persists accepted matches.
type MappingSink interface {
	PutMapping(ctx context.Context, m models.Mapping) error
}

type Candidate struct {
	ContentID  string `json:"contentId"`
	KeywordID  string `json:"keywordId"`
	MatchScore int    `json:"matchScore"`
	Content    string `json:"content"`
	Keyword    string `json:"keyword"`
}

func (c Candidate) MappingID() string { return models.MappingID(c.ContentID, c.KeywordID) }

type MatchFailure struct {
	MappingID string `json:"mappingId"`
	Err       error  `json:"-"`
	Message   string `json:"error"`
}

type MatchResult struct {
	Candidates []Candidate
	Preview    []Candidate
	Persisted  []string
	Failures   []MatchFailure
}

type Matcher struct {
	Threshold    int
	PreviewLimit int
	Concurrency  int
	Now          func() time.Time
}

func NewMatcher() Matcher {
	return Matcher{
		Threshold:    DefaultThreshold,
		PreviewLimit: DefaultPreviewLimit,
		Concurrency:  DefaultConcurrency,
		Now:          time.Now,
	}
}

// Match scores every content/keyword pair and keeps those scoring strictly
// above the threshold. A nil sink is a dry run: nothing is written. Write
// failures are reported per mapping and never abort the batch.
func (m Matcher) Match(ctx context.Context, contents []models.ContentItem, keywords []models.Keyword, sink MappingSink) (MatchResult, error) {
	var res MatchResult
	for _, c := range contents {
		for _, k := range keywords {
			s, err := Score(c, k)
			if err != nil {
				return MatchResult{}, err
			}
			if s > m.Threshold {
				res.Candidates = append(res.Candidates, Candidate{
					ContentID:  c.ContentID,
					KeywordID:  k.KeywordID,
					MatchScore: s,
					Content:    c.Title,
					Keyword:    k.Keyword,
				})
			}
		}
	}
	res.Preview = res.Candidates[:min(len(res.Candidates), m.previewLimit())]
	if sink == nil || len(res.Candidates) == 0 {
		return res, nil
	}

	now := m.now().UTC().Format(time.RFC3339)
	errs := make([]error, len(res.Candidates))
	var g errgroup.Group
	g.SetLimit(m.concurrency())
	for i, cand := range res.Candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = sink.PutMapping(ctx, models.Mapping{
				MappingID:  cand.MappingID(),
				ContentID:  cand.ContentID,
				KeywordID:  cand.KeywordID,
				MatchScore: cand.MatchScore,
				Status:     models.MappingActive,
				CreatedAt:  now,
			})
			return nil
		})
	}
	_ = g.Wait()

	for i, cand := range res.Candidates {
		if errs[i] != nil {
			res.Failures = append(res.Failures, MatchFailure{MappingID: cand.MappingID(), Err: errs[i], Message: errs[i].Error()})
			continue
		}
		res.Persisted = append(res.Persisted, cand.MappingID())
	}
	return res, nil
}

func (m Matcher) previewLimit() int {
	if m.PreviewLimit <= 0 {
		return DefaultPreviewLimit
	}
	return m.PreviewLimit
}

func (m Matcher) concurrency() int {
	if m.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return m.Concurrency
}

func (m Matcher) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// SinkFunc adapts a plain function to MappingSink.
type SinkFunc func(ctx context.Context, m models.Mapping) error

func (f SinkFunc) PutMapping(ctx context.Context, m models.Mapping) error { return f(ctx, m) }
