package analytics

import (
	"time"

	"github.com/angelcm/pse-data-bridge/internal/apperr"
	"github.com/angelcm/pse-data-bridge/internal/models"
)

type Window struct {
	Start string `json:"startDate"`
	End   string `json:"endDate"`
}

// Validate checks both bounds are present, parse as dates and are ordered.
func (w Window) Validate() error {
	if w.Start == "" || w.End == "" {
		return apperr.Validation("aggregate", "startDate and endDate are required")
	}
	from, err := time.Parse(models.DateLayout, w.Start)
	if err != nil {
		return apperr.Validation("aggregate", "bad startDate %q", w.Start)
	}
	to, err := time.Parse(models.DateLayout, w.End)
	if err != nil {
		return apperr.Validation("aggregate", "bad endDate %q", w.End)
	}
	if from.After(to) {
		return apperr.Validation("aggregate", "startDate %s is after endDate %s", w.Start, w.End)
	}
	return nil
}

// contains compares on the YYYY-MM-DD prefix, which sorts lexically.
func (w Window) contains(date string) bool {
	if len(date) > len(models.DateLayout) {
		date = date[:len(models.DateLayout)]
	}
	return date >= w.Start && date <= w.End
}

type Aggregation struct {
	Period     Window                   `json:"period"`
	Metrics    models.AggregatedMetrics `json:"metrics"`
	DataPoints int                      `json:"dataPoints"`
}

// Aggregate sums the counters of the records falling inside the window and
// derives CTR, conversion rate and ROI.
func Aggregate(records []models.MetricRecord, w Window) (Aggregation, error) {
	if err := w.Validate(); err != nil {
		return Aggregation{}, err
	}
	in := make([]models.MetricRecord, 0, len(records))
	for _, r := range records {
		if w.contains(r.Date) {
			in = append(in, r)
		}
	}
	return Aggregation{Period: w, Metrics: Sum(in), DataPoints: len(in)}, nil
}

// Sum totals raw counters, clamping negatives to zero, and derives ratios.
func Sum(records []models.MetricRecord) models.AggregatedMetrics {
	var m models.AggregatedMetrics
	for _, r := range records {
		m.Impressions += max0(r.Impressions)
		m.Clicks += max0(r.Clicks)
		m.Conversions += max0(r.Conversions)
		m.Revenue += maxf(r.Revenue)
		m.Cost += maxf(r.Cost)
	}
	m.CTR = round2(safeDiv(float64(m.Clicks), float64(m.Impressions)) * 100)
	m.ConversionRate = round2(safeDiv(float64(m.Conversions), float64(m.Clicks)) * 100)
	m.ROI = round2(roi(m.Revenue, m.Cost))
	return m
}
