package analytics

import "math"

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}

func maxf(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

// roi is (revenue-cost)/cost*100, zero when there is no cost.
func roi(revenue, cost float64) float64 {
	return safeDiv(revenue-cost, cost) * 100
}
