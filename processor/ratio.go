package processor

import (
	"fmt"
	"math"

	"oiflow/config"
)

// RatioConvention controls how the two skew ratios are scaled and rounded.
// Either convention is applied uniformly to both pipelines of a deployment.
type RatioConvention string

const (
	// RatioFraction4 keeps the ratios as plain fractions rounded to 4
	// decimal places. This is the default.
	RatioFraction4 RatioConvention = config.RatioConventionFraction4
	// RatioPercent2 scales the ratios by 100 and rounds to 2 decimal
	// places.
	RatioPercent2 RatioConvention = config.RatioConventionPercent2
)

// ParseRatioConvention validates a convention string from configuration.
func ParseRatioConvention(s string) (RatioConvention, error) {
	switch RatioConvention(s) {
	case RatioFraction4, RatioPercent2:
		return RatioConvention(s), nil
	case "":
		return RatioFraction4, nil
	default:
		return "", fmt.Errorf("unknown ratio convention '%s'", s)
	}
}

func (c RatioConvention) apply(v float64) float64 {
	if c == RatioPercent2 {
		return roundTo(v*100, 2)
	}
	return roundTo(v, 4)
}

// CombinedOIRatio computes (put - call) / min(put, call). A zero minimum
// makes the ratio undefined and returns nil rather than zero.
func CombinedOIRatio(putOI, callOI int64, convention RatioConvention) *float64 {
	minOI := putOI
	if callOI < minOI {
		minOI = callOI
	}
	if minOI == 0 {
		return nil
	}
	v := convention.apply(float64(putOI-callOI) / float64(minOI))
	return &v
}

// CombinedChangeRatio computes (putChange - callChange) / (put + call). A
// zero total OI makes the ratio undefined and returns nil.
func CombinedChangeRatio(putChange, callChange, putOI, callOI int64, convention RatioConvention) *float64 {
	total := putOI + callOI
	if total == 0 {
		return nil
	}
	v := convention.apply(float64(putChange-callChange) / float64(total))
	return &v
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
