package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelcm/pse-data-bridge/internal/apperr"
	"github.com/angelcm/pse-data-bridge/internal/models"
)

type recordingSink struct {
	mu     sync.Mutex
	puts   map[string]models.Mapping
	calls  int
	failOn map[string]bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{puts: map[string]models.Mapping{}, failOn: map[string]bool{}}
}

func (s *recordingSink) PutMapping(_ context.Context, m models.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn[m.MappingID] {
		return errors.New("throttled")
	}
	s.puts[m.MappingID] = m
	return nil
}

func fixedMatcher() Matcher {
	m := NewMatcher()
	m.Now = func() time.Time { return time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

var (
	shoes   = models.ContentItem{ContentID: "c1", Title: "Best Running Shoes 2024", Category: "sport"}
	garden  = models.ContentItem{ContentID: "c2", Title: "Garden hose buying guide", Category: "home"}
	kwShoes = models.Keyword{KeywordID: "k1", Keyword: "running shoes", Category: "sport"}
	kwHose  = models.Keyword{KeywordID: "k2", Keyword: "garden hose", Category: "Home"}
	kwTax   = models.Keyword{KeywordID: "k3", Keyword: "tax return"}
)

func TestMatchThresholdIsStrict(t *testing.T) {
	// "Best Running Shoes 2024" vs "running shoes" scores exactly 70.
	m := fixedMatcher()
	res, err := m.Match(context.Background(), []models.ContentItem{{ContentID: "c", Title: "Best Running Shoes 2024"}}, []models.Keyword{{KeywordID: "k", Keyword: "running shoes"}}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)

	m.Threshold = 69
	res, err = m.Match(context.Background(), []models.ContentItem{{ContentID: "c", Title: "Best Running Shoes 2024"}}, []models.Keyword{{KeywordID: "k", Keyword: "running shoes"}}, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, 70, res.Candidates[0].MatchScore)
}

func TestMatchPersistsAccepted(t *testing.T) {
	sink := newRecordingSink()
	res, err := fixedMatcher().Match(context.Background(), []models.ContentItem{shoes, garden}, []models.Keyword{kwShoes, kwHose, kwTax}, sink)
	require.NoError(t, err)

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "c1", res.Candidates[0].ContentID)
	assert.Equal(t, 90, res.Candidates[0].MatchScore)
	assert.Equal(t, "c2", res.Candidates[1].ContentID)
	assert.Equal(t, 90, res.Candidates[1].MatchScore)

	assert.Equal(t, []string{"c1-k1", "c2-k2"}, res.Persisted)
	assert.Empty(t, res.Failures)

	got := sink.puts["c1-k1"]
	assert.Equal(t, models.MappingActive, got.Status)
	assert.Equal(t, "2025-08-01T12:00:00Z", got.CreatedAt)
}

func TestMatchDryRunHasNoWritesAndSameMatches(t *testing.T) {
	contents := []models.ContentItem{shoes, garden}
	keywords := []models.Keyword{kwShoes, kwHose, kwTax}

	dry, err := fixedMatcher().Match(context.Background(), contents, keywords, nil)
	require.NoError(t, err)

	sink := newRecordingSink()
	wet, err := fixedMatcher().Match(context.Background(), contents, keywords, sink)
	require.NoError(t, err)

	assert.Equal(t, wet.Preview, dry.Preview)
	assert.Equal(t, wet.Candidates, dry.Candidates)
	assert.Empty(t, dry.Persisted)
	assert.Equal(t, 2, sink.calls)
}

func TestMatchIdempotentAcrossRuns(t *testing.T) {
	sink := newRecordingSink()
	for i := 0; i < 2; i++ {
		_, err := fixedMatcher().Match(context.Background(), []models.ContentItem{shoes, garden}, []models.Keyword{kwShoes, kwHose}, sink)
		require.NoError(t, err)
	}
	assert.Len(t, sink.puts, 2)
	assert.Equal(t, 4, sink.calls)
}

func TestMatchReportsPartialFailures(t *testing.T) {
	sink := newRecordingSink()
	sink.failOn["c1-k1"] = true

	res, err := fixedMatcher().Match(context.Background(), []models.ContentItem{shoes, garden}, []models.Keyword{kwShoes, kwHose}, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"c2-k2"}, res.Persisted)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "c1-k1", res.Failures[0].MappingID)
	assert.Equal(t, "throttled", res.Failures[0].Message)
}

func TestMatchEmptyInputs(t *testing.T) {
	sink := newRecordingSink()
	res, err := fixedMatcher().Match(context.Background(), nil, []models.Keyword{kwShoes}, sink)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Empty(t, res.Preview)

	res, err = fixedMatcher().Match(context.Background(), []models.ContentItem{shoes}, nil, sink)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Zero(t, sink.calls)
}

func TestMatchPreviewBounded(t *testing.T) {
	var contents []models.ContentItem
	for i := 0; i < 15; i++ {
		c := shoes
		c.ContentID = string(rune('a' + i))
		contents = append(contents, c)
	}
	res, err := fixedMatcher().Match(context.Background(), contents, []models.Keyword{kwShoes}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 15)
	assert.Len(t, res.Preview, 10)
	assert.Equal(t, "a", res.Preview[0].ContentID)
}

func TestMatchValidationFailsBeforeWrites(t *testing.T) {
	sink := newRecordingSink()
	bad := models.ContentItem{ContentID: "broken"}
	_, err := fixedMatcher().Match(context.Background(), []models.ContentItem{shoes, bad}, []models.Keyword{kwShoes}, sink)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Zero(t, sink.calls)
}

func TestMatchCancelledContextFailsEachWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := newRecordingSink()

	res, err := fixedMatcher().Match(ctx, []models.ContentItem{shoes, garden}, []models.Keyword{kwShoes, kwHose}, sink)
	require.NoError(t, err)
	assert.Len(t, res.Failures, 2)
	assert.Empty(t, res.Persisted)
	assert.Zero(t, sink.calls)
}

func TestMatchBoundsInFlightWrites(t *testing.T) {
	var inFlight, peak atomic.Int32
	sink := SinkFunc(func(context.Context, models.Mapping) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	var contents []models.ContentItem
	for i := range 24 {
		contents = append(contents, models.ContentItem{ContentID: fmt.Sprintf("c%02d", i), Title: "Garden hose buying guide", Category: "home"})
	}
	m := fixedMatcher()
	m.Concurrency = 2

	res, err := m.Match(context.Background(), contents, []models.Keyword{kwHose}, sink)
	require.NoError(t, err)
	assert.Len(t, res.Persisted, 24)
	assert.Empty(t, res.Failures)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Positive(t, peak.Load())
}
