package processor

import (
	"time"

	"oiflow/models"
)

// SelectExpiry picks the governing expiry relative to the reference date: the
// earliest expiry strictly after the reference day. When every listed expiry
// has already lapsed (a stale feed near settlement) it falls back to the
// earliest expiry overall. Returns false only for an empty candidate set.
func SelectExpiry(candidates []models.ExpiryCandidate, reference time.Time) (models.ExpiryCandidate, bool) {
	if len(candidates) == 0 {
		return models.ExpiryCandidate{}, false
	}

	refDay := dayOf(reference)

	var selected, earliest *models.ExpiryCandidate
	for i := range candidates {
		c := &candidates[i]
		if earliest == nil || c.Date.Before(earliest.Date) {
			earliest = c
		}
		if !dayOf(c.Date).After(refDay) {
			continue
		}
		if selected == nil || c.Date.Before(selected.Date) {
			selected = c
		}
	}

	if selected == nil {
		selected = earliest
	}
	return *selected, true
}

// SameDay reports whether two timestamps fall on the same calendar date,
// ignoring clock time and using each value's own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
