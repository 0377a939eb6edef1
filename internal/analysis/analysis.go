// Package analysis asks a text-completion service for the campaign potential
// of a piece of content and decodes the structured part of its answer.
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelcm/pse-data-bridge/internal/apperr"
)

const maxPromptContent = 2000

type CPCRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type CampaignAnalysis struct {
	CampaignPotential    int             `json:"campaign_potential"`
	SuggestedKeywords    []string        `json:"suggested_keywords"`
	EstimatedCPCRange    CPCRange        `json:"estimated_cpc_range"`
	CampaignType         string          `json:"campaign_type"`
	TargetingSuggestions json.RawMessage `json:"targeting_suggestions,omitempty"`
	AdCopySuggestions    []string        `json:"ad_copy_suggestions"`
}

type Status string

const (
	StatusOK         Status = "ok"
	StatusParseError Status = "parse_error"
)

// Result is either a decoded analysis or a parse failure, never both.
type Result struct {
	Status   Status            `json:"status"`
	Analysis *CampaignAnalysis `json:"analysis,omitempty"`
	Error    string            `json:"error,omitempty"`
	Err      error             `json:"-"`
}

func BuildPrompt(content string, keywords []string) string {
	r := []rune(content)
	if len(r) > maxPromptContent {
		r = r[:maxPromptContent]
	}
	return fmt.Sprintf(`Analyze this content for Google Ads campaign potential:

Content: %s
Keywords: %s

Provide analysis in JSON format with:
1. campaign_potential (0-100 score)
2. suggested_keywords (array of high-CPC keywords)
3. estimated_cpc_range (min and max in GBP)
4. campaign_type (search/display/both)
5. targeting_suggestions (demographics, interests)
6. ad_copy_suggestions (3 headline ideas)`, string(r), strings.Join(keywords, ", "))
}

// Decode extracts the outermost JSON object from text.
func Decode(text string) Result {
	a, err := decode(text)
	if err != nil {
		err = apperr.Parse("analysis", err)
		return Result{Status: StatusParseError, Error: err.Error(), Err: err}
	}
	return Result{Status: StatusOK, Analysis: a}
}

func decode(text string) (*CampaignAnalysis, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, errors.New("no JSON object in response")
	}
	var a CampaignAnalysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	if a.CampaignPotential < 0 || a.CampaignPotential > 100 {
		return nil, fmt.Errorf("campaign_potential %d outside 0-100", a.CampaignPotential)
	}
	return &a, nil
}
