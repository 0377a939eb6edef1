package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/angelcm/pse-data-bridge/internal/apperr"
	"github.com/angelcm/pse-data-bridge/internal/bridge"
)

type operationRequest struct {
	Operation  string          `json:"operation"`
	Parameters json.RawMessage `json:"parameters"`
}

type listParams struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

type matchParams struct {
	DryRun bool `json:"dryRun"`
}

type aggregateParams struct {
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	EntityType string `json:"entityType"`
}

type correlateParams struct {
	Date   string `json:"date"`
	Source string `json:"source"`
}

type rankParams struct {
	MinROI *float64 `json:"minROI"`
	Limit  int      `json:"limit"`
}

// dispatch serves the single-endpoint form: {"operation": ..., "parameters": {...}}.
func (a *api) dispatch(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.Operation == "" {
		a.fail(w, r, apperr.Validation("dispatch", "operation is required"))
		return
	}
	ctx := r.Context()

	var (
		res any
		err error
	)
	switch req.Operation {
	case "listPublishedContent", "getPublishedContent":
		var p listParams
		if err = params(req.Parameters, &p); err == nil {
			res, err = a.svc.ListPublishedContent(ctx, p.Status, p.Limit)
		}
	case "matchContentToKeywords", "syncContentToKeywords":
		var p matchParams
		if err = params(req.Parameters, &p); err == nil {
			res, err = a.svc.MatchContentToKeywords(ctx, p.DryRun)
		}
	case "aggregateMetrics", "getPerformanceMetrics":
		var p aggregateParams
		if err = params(req.Parameters, &p); err == nil {
			res, err = a.svc.AggregateMetrics(ctx, p.StartDate, p.EndDate, p.EntityType)
		}
	case "correlateRevenue", "correlateRevenueData":
		var p correlateParams
		if err = params(req.Parameters, &p); err == nil {
			res, err = a.svc.CorrelateRevenue(ctx, p.Date, p.Source)
		}
	case "rankHighValueContent", "findHighValueContent":
		var p rankParams
		if err = params(req.Parameters, &p); err == nil {
			res, err = a.svc.RankHighValueContent(ctx, bridge.RankParams{MinROI: p.MinROI, Limit: p.Limit})
		}
	case "upsertMapping", "updateContentMapping":
		var p bridge.UpsertMappingInput
		if err = params(req.Parameters, &p); err == nil {
			res, err = a.svc.UpsertMapping(ctx, p)
		}
	case "analyzeContentForCampaigns":
		var p bridge.AnalyzeInput
		if err = params(req.Parameters, &p); err == nil {
			res, err = a.svc.AnalyzeContent(ctx, p)
		}
	case "healthCheck":
		res = a.svc.HealthCheck(ctx)
	default:
		err = apperr.Validation("dispatch", "unknown operation: %s", req.Operation)
	}
	a.respond(w, r, res, err)
}

func params(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.Validation("dispatch", "invalid parameters: %v", err)
	}
	return nil
}
