// Package analytics holds the pure computations of the bridge: match scoring,
// metric aggregation, revenue correlation and ROI ranking.
package analytics

import (
	"strings"

	"github.com/angelcm/pse-data-bridge/internal/apperr"
	"github.com/angelcm/pse-data-bridge/internal/models"
)

const (
	titlePoints    = 50
	tokenPoints    = 10
	categoryPoints = 20
	maxScore       = 100
)

// Score rates the topical relevance of a content item for a keyword on a
// 0-100 scale. Matching is case-insensitive.
func Score(c models.ContentItem, k models.Keyword) (int, error) {
	if strings.TrimSpace(c.Title) == "" {
		return 0, apperr.Validation("score", "content %q has no title", c.ContentID)
	}
	phrase := strings.ToLower(k.Keyword)
	if strings.TrimSpace(phrase) == "" {
		return 0, apperr.Validation("score", "keyword %q has no phrase", k.KeywordID)
	}

	title := strings.ToLower(c.Title)
	text := title + " " + strings.ToLower(c.Description)

	score := 0
	if strings.Contains(title, phrase) {
		score += titlePoints
	}
	for _, tok := range strings.Fields(phrase) {
		if strings.Contains(text, tok) {
			score += tokenPoints
		}
	}
	if c.Category != "" && k.Category != "" && strings.EqualFold(c.Category, k.Category) {
		score += categoryPoints
	}
	return min(score, maxScore), nil
}
