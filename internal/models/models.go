package models

import "time"

const (
	StatusDraft     = "draft"
	StatusPublished = "published"

	MappingActive   = "active"
	MappingInactive = "inactive"

	// manual mappings without a campaign share this reference
	ManualRef = "manual"
)

type ContentItem struct {
	ContentID   string `json:"contentId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Status      string `json:"status"`
	Body        string `json:"content,omitempty"`
}

type Keyword struct {
	KeywordID string `json:"keywordId"`
	Keyword   string `json:"keyword"`
	Category  string `json:"category,omitempty"`
}

type Mapping struct {
	MappingID   string `json:"mappingId"`
	ContentID   string `json:"contentId"`
	KeywordID   string `json:"keywordId,omitempty"`
	CampaignID  string `json:"campaignId,omitempty"`
	MappingType string `json:"mappingType,omitempty"`
	MatchScore  int    `json:"matchScore"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// MappingID is the only way mapping identifiers are built, so repeated
// writes for the same pair land on the same record.
func MappingID(contentID, ref string) string { return contentID + "-" + ref }

type MetricRecord struct {
	EntityType  string  `json:"entityType"`
	EntityID    string  `json:"entityId"`
	Date        string  `json:"date"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	Conversions int     `json:"conversions"`
	Revenue     float64 `json:"revenue"`
	Cost        float64 `json:"cost"`
}

type RevenueRecord struct {
	RecordID  string     `json:"recordId"`
	Date      string     `json:"date"`
	Source    string     `json:"source"`
	Revenue   float64    `json:"revenue"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type AggregatedMetrics struct {
	Impressions    int     `json:"impressions"`
	Clicks         int     `json:"clicks"`
	Conversions    int     `json:"conversions"`
	Revenue        float64 `json:"revenue"`
	Cost           float64 `json:"cost"`
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversionRate"`
	ROI            float64 `json:"roi"`
}

type ContentROI struct {
	ContentID string  `json:"contentId"`
	ROI       float64 `json:"roi"`
	Revenue   float64 `json:"revenue"`
	Cost      float64 `json:"cost"`
	Clicks    int     `json:"clicks"`
}

const DateLayout = "2006-01-02"
