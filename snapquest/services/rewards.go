package services

import (
	"fmt"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
)

// TierProgress places the global point total between the nearest reward
// tiers below and above it.
type TierProgress struct {
	Total   int64
	Percent float64

	// Prev and Next frame the current segment. Past the last threshold
	// both collapse to the last tier. With no tiers both are nil.
	Prev *models.RewardTier
	Next *models.RewardTier

	// Display is the fraction text shown next to the bar, e.g. "350 / 500",
	// or the raw total when no tier remains ahead.
	Display string
}

// TierProgressFor computes progress through an ascending-by-threshold tier
// list. Percent is non-decreasing in total and resets to the new segment's
// baseline whenever a threshold is crossed.
func TierProgressFor(total int64, tiers []*models.RewardTier) TierProgress {
	p := TierProgress{
		Total:   total,
		Display: fmt.Sprintf("%d", total),
	}
	if len(tiers) == 0 {
		return p
	}

	nextIdx := -1
	for i, tier := range tiers {
		if tier.Threshold > total {
			nextIdx = i
			break
		}
	}

	if nextIdx == -1 {
		// Total meets or exceeds every threshold.
		last := tiers[len(tiers)-1]
		p.Prev = last
		p.Next = last
		p.Percent = 100
		p.Display = fmt.Sprintf("%d / %d", min(total, last.Threshold), last.Threshold)
		return p
	}

	p.Next = tiers[nextIdx]
	var prevThreshold int64
	if nextIdx > 0 {
		p.Prev = tiers[nextIdx-1]
		prevThreshold = p.Prev.Threshold
	}

	if p.Next.Threshold > prevThreshold {
		percent := float64(total-prevThreshold) / float64(p.Next.Threshold-prevThreshold) * 100
		p.Percent = clampPercent(percent)
	} else {
		p.Percent = 100
	}

	p.Display = fmt.Sprintf("%d / %d", min(total, p.Next.Threshold), p.Next.Threshold)
	return p
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
