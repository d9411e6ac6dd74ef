package models

import "time"

// StrikeRecord holds both option legs quoted at one strike for one expiry
// within a single chain snapshot. A missing leg stays at zero so a strike
// listed only on one side still contributes its other leg.
type StrikeRecord struct {
	Strike       float64
	Expiry       time.Time
	CallOI       int64
	CallOIChange int64
	PutOI        int64
	PutOIChange  int64
}

// ExpiryCandidate pairs a parsed expiry date with the label the exchange
// used, so follow-up requests can echo the label back verbatim.
type ExpiryCandidate struct {
	Date  time.Time
	Label string
}

// ChainSnapshot is one symbol's option chain at one point in time, either the
// live chain or a single reconstructed historical day.
type ChainSnapshot struct {
	Symbol          string
	UnderlyingValue float64
	Records         []StrikeRecord
	Expiries        []ExpiryCandidate
}

// NSE expiry labels look like "28-Aug-2026".
const ExpiryLabelLayout = "02-Jan-2006"

// ParseExpiryLabels converts raw expiry strings into candidates. Labels that
// fail to parse are dropped; a partial set is still usable.
func ParseExpiryLabels(labels []string) []ExpiryCandidate {
	candidates := make([]ExpiryCandidate, 0, len(labels))
	for _, label := range labels {
		date, err := time.Parse(ExpiryLabelLayout, label)
		if err != nil {
			continue
		}
		candidates = append(candidates, ExpiryCandidate{Date: date, Label: label})
	}
	return candidates
}
