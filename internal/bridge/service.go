// Package bridge runs the bridge operations: it reads records from the
// document store, hands them to the analytics core and writes mappings back.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/angelcm/pse-data-bridge/internal/analysis"
	"github.com/angelcm/pse-data-bridge/internal/analytics"
	"github.com/angelcm/pse-data-bridge/internal/apperr"
	"github.com/angelcm/pse-data-bridge/internal/config"
	"github.com/angelcm/pse-data-bridge/internal/events"
	"github.com/angelcm/pse-data-bridge/internal/models"
	"github.com/angelcm/pse-data-bridge/internal/observability"
	"github.com/angelcm/pse-data-bridge/internal/store"
)

const (
	DefaultListLimit  = 100
	MaxListLimit      = 1000
	DefaultEntityType = "content"
)

type Service struct {
	repo         *Repo
	tables       config.Tables
	log          *slog.Logger
	matcher      analytics.Matcher
	concurrency  int
	storeTimeout time.Duration
	completer    analysis.Completer
	maxTokens    int
	pub          events.Publisher
	obs          *observability.Metrics
	now          func() time.Time
	env          map[string]string
}

type Option func(*Service)

func WithCompleter(c analysis.Completer) Option { return func(s *Service) { s.completer = c } }
func WithPublisher(p events.Publisher) Option   { return func(s *Service) { s.pub = p } }
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.obs = m }
}
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(st store.Store, log *slog.Logger, cfg config.Config, opts ...Option) *Service {
	s := &Service{
		tables:       cfg.Tables,
		log:          log,
		matcher:      analytics.NewMatcher(),
		concurrency:  cfg.Concurrency,
		storeTimeout: cfg.StoreTimeout,
		maxTokens:    cfg.Completion.MaxTokens,
		pub:          events.Nop{},
		now:          time.Now,
		env: map[string]string{
			"region":          cfg.Region,
			"storeDriver":     cfg.StoreDriver,
			"completionModel": cfg.Completion.Model,
		},
	}
	for _, o := range opts {
		o(s)
	}
	if s.obs != nil {
		st = store.Instrument(st, s.obs)
	}
	s.repo = NewRepo(st, cfg.Tables)
	s.matcher.Threshold = cfg.MatchThreshold
	s.matcher.Concurrency = cfg.Concurrency
	s.matcher.Now = s.now
	return s
}

func (s *Service) Repo() *Repo { return s.repo }

// withTimeout bounds a single store call; one slow read fails only itself.
func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *Service) observe(op string, err error) {
	if s.obs == nil {
		return
	}
	kind := ""
	if err != nil {
		kind = string(apperr.KindOf(err))
	}
	s.obs.ObserveOperation(op, kind)
}

type ContentList struct {
	Count int                  `json:"count"`
	Items []models.ContentItem `json:"items"`
}

func (s *Service) ListPublishedContent(ctx context.Context, status string, limit int) (res ContentList, err error) {
	defer func() { s.observe("listPublishedContent", err) }()
	if status == "" {
		status = models.StatusPublished
	}
	if limit < 0 {
		return ContentList{}, apperr.Validation("listPublishedContent", "limit must not be negative")
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	items, err := s.repo.ContentByStatus(ctx, status, limit)
	if err != nil {
		return ContentList{}, err
	}
	return ContentList{Count: len(items), Items: items}, nil
}

type MatchReport struct {
	DryRun       bool                     `json:"dryRun"`
	ContentCount int                      `json:"contentCount"`
	KeywordCount int                      `json:"keywordCount"`
	MatchesFound int                      `json:"matchesFound"`
	Persisted    int                      `json:"persisted"`
	Failures     []analytics.MatchFailure `json:"failures,omitempty"`
	Matches      []analytics.Candidate    `json:"matches"`
}

// MatchContentToKeywords scores every published content item against every
// keyword. Unless dryRun is set, accepted matches are upserted as mappings.
func (s *Service) MatchContentToKeywords(ctx context.Context, dryRun bool) (rep MatchReport, err error) {
	defer func() { s.observe("matchContentToKeywords", err) }()

	contents, err := s.repo.ContentByStatus(ctx, models.StatusPublished, 0)
	if err != nil {
		return MatchReport{}, err
	}
	keywords, err := s.repo.Keywords(ctx)
	if err != nil {
		return MatchReport{}, err
	}

	var sink analytics.MappingSink
	if !dryRun {
		sink = analytics.SinkFunc(func(ctx context.Context, m models.Mapping) error {
			cctx, cancel := s.withTimeout(ctx)
			defer cancel()
			if err := s.repo.PutMapping(cctx, m); err != nil {
				return err
			}
			s.publish(ctx, "match", m)
			return nil
		})
	}

	res, err := s.matcher.Match(ctx, contents, keywords, sink)
	if err != nil {
		return MatchReport{}, err
	}

	rep = MatchReport{
		DryRun:       dryRun,
		ContentCount: len(contents),
		KeywordCount: len(keywords),
		MatchesFound: len(res.Candidates),
		Persisted:    len(res.Persisted),
		Failures:     res.Failures,
		Matches:      res.Preview,
	}
	if rep.Matches == nil {
		rep.Matches = []analytics.Candidate{}
	}
	if s.obs != nil {
		s.obs.MatchesFound.Add(float64(rep.MatchesFound))
		s.obs.MappingFailures.Add(float64(len(rep.Failures)))
	}
	s.log.Info("match run",
		slog.Bool("dry_run", dryRun),
		slog.Int("contents", rep.ContentCount),
		slog.Int("keywords", rep.KeywordCount),
		slog.Int("matches", rep.MatchesFound),
		slog.Int("failures", len(rep.Failures)))
	for _, f := range rep.Failures {
		s.log.Warn("mapping write failed", slog.String("mapping_id", f.MappingID), slog.String("err", f.Message))
	}
	return rep, nil
}

func (s *Service) AggregateMetrics(ctx context.Context, start, end, entityType string) (agg analytics.Aggregation, err error) {
	defer func() { s.observe("aggregateMetrics", err) }()
	w := analytics.Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return analytics.Aggregation{}, err
	}
	if entityType == "" {
		entityType = DefaultEntityType
	}
	recs, err := s.repo.MetricsByType(ctx, entityType, start, end)
	if err != nil {
		return analytics.Aggregation{}, err
	}
	return analytics.Aggregate(recs, w)
}

func (s *Service) CorrelateRevenue(ctx context.Context, date, source string) (c analytics.Correlation, err error) {
	defer func() { s.observe("correlateRevenue", err) }()
	if date == "" {
		return analytics.Correlation{}, apperr.Validation("correlateRevenue", "date is required")
	}
	if _, perr := time.Parse(models.DateLayout, date); perr != nil {
		return analytics.Correlation{}, apperr.Validation("correlateRevenue", "bad date %q", date)
	}
	recs, err := s.repo.RevenueOn(ctx, date)
	if err != nil {
		return analytics.Correlation{}, err
	}
	return analytics.Correlate(recs, date, source)
}

type RankParams struct {
	MinROI *float64
	Limit  int
}

func (s *Service) RankHighValueContent(ctx context.Context, p RankParams) (r analytics.Ranking, err error) {
	defer func() { s.observe("rankHighValueContent", err) }()
	opts := analytics.DefaultRankOptions()
	if p.MinROI != nil {
		opts.MinROI = *p.MinROI
	}
	if p.Limit < 0 {
		return analytics.Ranking{}, apperr.Validation("rankHighValueContent", "limit must not be negative")
	}
	if p.Limit > 0 {
		opts.Limit = p.Limit
	}
	opts.Concurrency = s.concurrency

	mappings, err := s.repo.Mappings(ctx)
	if err != nil {
		return analytics.Ranking{}, err
	}
	lookup := func(ctx context.Context, id string, limit int) ([]models.MetricRecord, error) {
		cctx, cancel := s.withTimeout(ctx)
		defer cancel()
		return s.repo.RecentMetrics(cctx, id, limit)
	}
	r = analytics.Rank(ctx, mappings, lookup, opts)
	for _, f := range r.Failures {
		s.log.Warn("metrics lookup failed", slog.String("content_id", f.ContentID), slog.String("err", f.Message))
	}
	return r, nil
}

type UpsertMappingInput struct {
	ContentID   string `json:"contentId"`
	MappingType string `json:"mappingType"`
	CampaignID  string `json:"campaignId,omitempty"`
	MatchScore  *int   `json:"matchScore,omitempty"`
}

type MappingResult struct {
	Mapping models.Mapping `json:"mapping"`
}

// UpsertMapping records a manual content mapping. The identifier derives from
// the content and campaign, so repeating the call updates the same record.
func (s *Service) UpsertMapping(ctx context.Context, in UpsertMappingInput) (res MappingResult, err error) {
	defer func() { s.observe("upsertMapping", err) }()
	if in.ContentID == "" || in.MappingType == "" {
		return MappingResult{}, apperr.Validation("upsertMapping", "contentId and mappingType are required")
	}
	score := 0
	if in.MatchScore != nil {
		score = *in.MatchScore
	}
	if score < 0 || score > 100 {
		return MappingResult{}, apperr.Validation("upsertMapping", "matchScore %d outside 0-100", score)
	}
	ref := in.CampaignID
	if ref == "" {
		ref = models.ManualRef
	}

	now := s.now().UTC().Format(time.RFC3339)
	m := models.Mapping{
		MappingID:   models.MappingID(in.ContentID, ref),
		ContentID:   in.ContentID,
		CampaignID:  in.CampaignID,
		MappingType: in.MappingType,
		MatchScore:  score,
		Status:      models.MappingActive,
		UpdatedAt:   now,
	}
	prev, err := s.repo.Mapping(ctx, m.MappingID)
	switch {
	case err == nil:
		m.CreatedAt = prev.CreatedAt
		m.KeywordID = prev.KeywordID
	case apperr.Is(err, apperr.KindNotFound):
		m.CreatedAt = now
	default:
		return MappingResult{}, err
	}
	if err := s.repo.PutMapping(ctx, m); err != nil {
		return MappingResult{}, err
	}
	s.publish(ctx, "manual", m)
	return MappingResult{Mapping: m}, nil
}

func (s *Service) publish(ctx context.Context, trigger string, m models.Mapping) {
	if err := s.pub.MappingUpserted(ctx, trigger, m); err != nil {
		s.log.Warn("publish mapping event", slog.String("mapping_id", m.MappingID), slog.String("err", err.Error()))
	}
}

type AnalyzeInput struct {
	ContentID string   `json:"contentId,omitempty"`
	Content   string   `json:"content,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
}

type AnalysisReport struct {
	ContentID string          `json:"contentId,omitempty"`
	Analysis  analysis.Result `json:"analysis"`
	Timestamp string          `json:"timestamp"`
}

var errNoCompleter = errors.New("completion service not configured")

// AnalyzeContent asks the completion service to assess campaign potential.
// An unparseable answer is reported inside the result, not as an error.
func (s *Service) AnalyzeContent(ctx context.Context, in AnalyzeInput) (rep AnalysisReport, err error) {
	defer func() { s.observe("analyzeContentForCampaigns", err) }()
	if in.ContentID == "" && in.Content == "" {
		return AnalysisReport{}, apperr.Validation("analyzeContent", "either contentId or content is required")
	}
	if s.completer == nil {
		return AnalysisReport{}, apperr.Dependency("analyzeContent", errNoCompleter)
	}
	text := in.Content
	if text == "" {
		item, err := s.repo.BlogContent(ctx, in.ContentID)
		if err != nil {
			return AnalysisReport{}, err
		}
		text = item.Body
	}

	out, err := s.completer.Complete(ctx, analysis.BuildPrompt(text, in.Keywords), s.maxTokens)
	if err != nil {
		return AnalysisReport{}, apperr.Dependency("analyzeContent", err)
	}
	res := analysis.Decode(out)
	if res.Status == analysis.StatusParseError {
		s.log.Warn("analysis not parseable", slog.String("content_id", in.ContentID), slog.String("err", res.Error))
	}
	return AnalysisReport{
		ContentID: in.ContentID,
		Analysis:  res,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}, nil
}

type HealthChecks struct {
	Store      bool            `json:"store"`
	Completion bool            `json:"completion"`
	Tables     map[string]bool `json:"tables"`
}

type HealthReport struct {
	Healthy     bool              `json:"healthy"`
	Checks      HealthChecks      `json:"checks"`
	Environment map[string]string `json:"environment"`
	Timestamp   string            `json:"timestamp"`
}

// HealthCheck probes every table and, when configured, the completion
// service. An unconfigured completion service does not make the bridge
// unhealthy.
func (s *Service) HealthCheck(ctx context.Context) HealthReport {
	rep := HealthReport{
		Checks:      HealthChecks{Tables: map[string]bool{}},
		Environment: s.env,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
	}
	rep.Checks.Store = true
	for _, t := range s.tables.All() {
		cctx, cancel := s.withTimeout(ctx)
		err := s.repo.Probe(cctx, t)
		cancel()
		rep.Checks.Tables[t] = err == nil
		if err != nil {
			rep.Checks.Store = false
			s.log.Error("table probe failed", slog.String("table", t), slog.String("err", err.Error()))
		}
	}

	completionOK := true
	if s.completer != nil {
		cctx, cancel := s.withTimeout(ctx)
		_, err := s.completer.Complete(cctx, "test", 10)
		cancel()
		rep.Checks.Completion = err == nil
		completionOK = err == nil
		if err != nil {
			s.log.Error("completion probe failed", slog.String("err", err.Error()))
		}
	}
	rep.Healthy = rep.Checks.Store && completionOK
	return rep
}
