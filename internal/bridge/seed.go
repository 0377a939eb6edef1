package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/angelcm/pse-data-bridge/internal/models"
)

// Fixture is a bulk load of records, one list per table.
type Fixture struct {
	Content     []models.ContentItem   `json:"content"`
	BlogContent []models.ContentItem   `json:"blogContent"`
	Keywords    []models.Keyword       `json:"keywords"`
	Mappings    []models.Mapping       `json:"mappings"`
	Metrics     []models.MetricRecord  `json:"metrics"`
	Revenue     []models.RevenueRecord `json:"revenue"`
}

func ReadFixture(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("fixture: %w", err)
	}
	return f, nil
}

func (f Fixture) Count() int {
	return len(f.Content) + len(f.BlogContent) + len(f.Keywords) + len(f.Mappings) + len(f.Metrics) + len(f.Revenue)
}

// Load writes every record of f, stopping at the first failure.
func (r *Repo) Load(ctx context.Context, f Fixture) error {
	for _, c := range f.Content {
		if err := r.PutContent(ctx, c); err != nil {
			return err
		}
	}
	for _, c := range f.BlogContent {
		if err := r.PutBlogContent(ctx, c); err != nil {
			return err
		}
	}
	for _, k := range f.Keywords {
		if err := r.PutKeyword(ctx, k); err != nil {
			return err
		}
	}
	for _, m := range f.Mappings {
		if err := r.PutMapping(ctx, m); err != nil {
			return err
		}
	}
	for _, m := range f.Metrics {
		if err := r.PutMetric(ctx, m); err != nil {
			return err
		}
	}
	for _, rec := range f.Revenue {
		if err := r.PutRevenue(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
