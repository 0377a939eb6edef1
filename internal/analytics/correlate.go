package analytics

import (
	"github.com/angelcm/pse-data-bridge/internal/apperr"
	"github.com/angelcm/pse-data-bridge/internal/models"
)

const AllSources = "all"

type SourceTotal struct {
	Source       string                 `json:"source"`
	Revenue      float64                `json:"revenue"`
	Transactions int                    `json:"transactions"`
	Items        []models.RevenueRecord `json:"items"`
}

type Correlations struct {
	TopSource        *string `json:"topSource"`
	TopSourceRevenue float64 `json:"topSourceRevenue"`
	AverageRevenue   float64 `json:"averageRevenue"`
	PeakHour         *int    `json:"peakHour"`
}

type Correlation struct {
	Date         string        `json:"date"`
	TotalRevenue float64       `json:"totalRevenue"`
	Sources      []SourceTotal `json:"sources"`
	Correlations Correlations  `json:"correlations"`
}

// Correlate groups one day of revenue records by attribution source.
// Groups keep first-seen order and ties for top source or peak hour go to
// the first one seen.
func Correlate(records []models.RevenueRecord, date, source string) (Correlation, error) {
	if date == "" {
		return Correlation{}, apperr.Validation("correlate", "date is required")
	}
	if source == "" {
		source = AllSources
	}

	out := Correlation{Date: date, Sources: []SourceTotal{}}
	idx := map[string]int{}
	var hourRevenue [24]float64
	hourSeen := -1
	n := 0
	for _, r := range records {
		if source != AllSources && r.Source != source {
			continue
		}
		n++
		rev := maxf(r.Revenue)
		out.TotalRevenue += rev

		i, ok := idx[r.Source]
		if !ok {
			i = len(out.Sources)
			idx[r.Source] = i
			out.Sources = append(out.Sources, SourceTotal{Source: r.Source})
		}
		out.Sources[i].Revenue += rev
		out.Sources[i].Transactions++
		out.Sources[i].Items = append(out.Sources[i].Items, r)

		if r.Timestamp != nil {
			h := r.Timestamp.UTC().Hour()
			hourRevenue[h] += rev
			if hourSeen < 0 || hourRevenue[h] > hourRevenue[hourSeen] {
				hourSeen = h
			}
		}
	}
	if n == 0 {
		return out, nil
	}

	top := 0
	for i, s := range out.Sources {
		if s.Revenue > out.Sources[top].Revenue {
			top = i
		}
	}
	name := out.Sources[top].Source
	out.Correlations.TopSource = &name
	out.Correlations.TopSourceRevenue = out.Sources[top].Revenue
	out.Correlations.AverageRevenue = out.TotalRevenue / float64(n)
	if hourSeen >= 0 {
		out.Correlations.PeakHour = &hourSeen
	}
	return out, nil
}
