package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelcm/pse-data-bridge/internal/models"
)

func lookupFrom(data map[string][]models.MetricRecord, fail map[string]error) MetricsLookup {
	return func(_ context.Context, id string, limit int) ([]models.MetricRecord, error) {
		if err := fail[id]; err != nil {
			return nil, err
		}
		recs := data[id]
		if len(recs) > limit {
			recs = recs[:limit]
		}
		return recs, nil
	}
}

func TestRankBoundaryIsInclusive(t *testing.T) {
	data := map[string][]models.MetricRecord{
		"exact":  {{Revenue: 200, Cost: 100}},
		"almost": {{Revenue: 199.99, Cost: 100}},
	}
	mappings := []models.Mapping{{ContentID: "almost"}, {ContentID: "exact"}}

	r := Rank(context.Background(), mappings, lookupFrom(data, nil), DefaultRankOptions())
	require.Len(t, r.Items, 1)
	assert.Equal(t, "exact", r.Items[0].ContentID)
	assert.Equal(t, 100.0, r.Items[0].ROI)
	assert.Equal(t, 1, r.Count)
}

func TestRankSortsDedupsAndTruncates(t *testing.T) {
	data := map[string][]models.MetricRecord{
		"a": {{Revenue: 300, Cost: 100, Clicks: 3}},
		"b": {{Revenue: 500, Cost: 100}, {Revenue: 100, Cost: 100, Clicks: 7}},
		"c": {{Revenue: 300, Cost: 100}},
		"d": {},
		"e": {{Revenue: 10, Cost: 0}},
	}
	mappings := []models.Mapping{
		{ContentID: "a"}, {ContentID: "b"}, {ContentID: "a"},
		{ContentID: "c"}, {ContentID: "d"}, {ContentID: "e"},
	}
	opts := DefaultRankOptions()
	opts.Limit = 2

	r := Rank(context.Background(), mappings, lookupFrom(data, nil), opts)
	assert.Equal(t, 3, r.Count)
	require.Len(t, r.Items, 2)
	assert.Equal(t, "a", r.Items[0].ContentID)
	assert.Equal(t, 200.0, r.Items[0].ROI)
	assert.Equal(t, "b", r.Items[1].ContentID)
	assert.Equal(t, 200.0, r.Items[1].ROI)
	assert.Equal(t, 7, r.Items[1].Clicks)
}

func TestRankIsolatesLookupFailures(t *testing.T) {
	data := map[string][]models.MetricRecord{"ok": {{Revenue: 400, Cost: 100}}}
	fail := map[string]error{"bad": errors.New("timeout")}
	mappings := []models.Mapping{{ContentID: "bad"}, {ContentID: "ok"}}

	r := Rank(context.Background(), mappings, lookupFrom(data, fail), DefaultRankOptions())
	require.Len(t, r.Items, 1)
	assert.Equal(t, "ok", r.Items[0].ContentID)
	require.Len(t, r.Failures, 1)
	assert.Equal(t, "bad", r.Failures[0].ContentID)
}

func TestRankPassesLookupLimit(t *testing.T) {
	var got int
	lookup := func(_ context.Context, _ string, limit int) ([]models.MetricRecord, error) {
		got = limit
		return nil, nil
	}
	r := Rank(context.Background(), []models.Mapping{{ContentID: "x"}}, lookup, RankOptions{MinROI: 0})
	assert.Equal(t, DefaultLookupLimit, got)
	assert.Zero(t, r.Count)
	assert.NotNil(t, r.Items)
}

func TestRankBoundsInFlightLookups(t *testing.T) {
	var inFlight, peak atomic.Int32
	lookup := func(_ context.Context, id string, _ int) ([]models.MetricRecord, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return []models.MetricRecord{{Revenue: 300, Cost: 100}}, nil
	}
	var mappings []models.Mapping
	for i := range 24 {
		mappings = append(mappings, models.Mapping{ContentID: fmt.Sprintf("c%02d", i)})
	}
	opts := DefaultRankOptions()
	opts.Concurrency = 3
	opts.Limit = 50

	r := Rank(context.Background(), mappings, lookup, opts)
	assert.Equal(t, 24, r.Count)
	assert.Empty(t, r.Failures)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Positive(t, peak.Load())
}
