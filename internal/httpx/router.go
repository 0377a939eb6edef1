package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelcm/pse-data-bridge/internal/apperr"
	"github.com/angelcm/pse-data-bridge/internal/bridge"
	"github.com/angelcm/pse-data-bridge/internal/utils"
)

type api struct {
	svc *bridge.Service
	log *slog.Logger
}

func NewRouter(log *slog.Logger, svc *bridge.Service, gatherer prometheus.Gatherer) http.Handler {
	a := &api{svc: svc, log: log}
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", a.ready)
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	mux.Post("/operations", a.dispatch)

	mux.Get("/content", a.listContent)
	mux.Get("/content/high-value", a.rankContent)
	mux.Post("/content/analyze", a.analyze)
	mux.Post("/matches/sync", a.syncMatches)
	mux.Put("/mappings", a.upsertMapping)
	mux.Get("/performance/aggregate", a.aggregate)
	mux.Get("/revenue/correlate", a.correlate)

	return mux
}

func (a *api) ready(w http.ResponseWriter, r *http.Request) {
	rep := a.svc.HealthCheck(r.Context())
	status := http.StatusOK
	if !rep.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, envelope{Success: true, Data: rep})
}

func (a *api) listContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.svc.ListPublishedContent(r.Context(), q.Get("status"), limit)
	a.respond(w, r, res, err)
}

func (a *api) syncMatches(w http.ResponseWriter, r *http.Request) {
	dryRun := false
	if v := r.URL.Query().Get("dryRun"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			a.fail(w, r, apperr.Validation("matchContentToKeywords", "bad dryRun %q", v))
			return
		}
		dryRun = b
	}
	res, err := a.svc.MatchContentToKeywords(r.Context(), dryRun)
	a.respond(w, r, res, err)
}

func (a *api) aggregate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := a.svc.AggregateMetrics(r.Context(), q.Get("startDate"), q.Get("endDate"), q.Get("entityType"))
	a.respond(w, r, res, err)
}

func (a *api) correlate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := a.svc.CorrelateRevenue(r.Context(), q.Get("date"), q.Get("source"))
	a.respond(w, r, res, err)
}

func (a *api) rankContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var p bridge.RankParams
	if v := q.Get("minROI"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			a.fail(w, r, apperr.Validation("rankHighValueContent", "bad minROI %q", v))
			return
		}
		p.MinROI = &f
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	p.Limit = limit
	res, err := a.svc.RankHighValueContent(r.Context(), p)
	a.respond(w, r, res, err)
}

func (a *api) upsertMapping(w http.ResponseWriter, r *http.Request) {
	var in bridge.UpsertMappingInput
	if err := decodeBody(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.svc.UpsertMapping(r.Context(), in)
	a.respond(w, r, res, err)
}

func (a *api) analyze(w http.ResponseWriter, r *http.Request) {
	var in bridge.AnalyzeInput
	if err := decodeBody(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.svc.AnalyzeContent(r.Context(), in)
	a.respond(w, r, res, err)
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

func (a *api) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: v})
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status >= 500 {
		a.log.Error("request failed", slog.String("rid", utils.RID(r.Context())), slog.String("kind", string(kind)), slog.String("err", msg))
		if kind == apperr.KindInternal {
			msg = "internal server error"
		}
	}
	writeJSON(w, status, envelope{Error: &errorBody{Kind: kind, Message: msg}})
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("params", "bad %s %q", name, v)
	}
	return n, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return apperr.Validation("body", "request body too large")
		}
		return apperr.Validation("body", "invalid JSON body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
