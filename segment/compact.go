package segment

import (
	"cmp"
	"slices"

	"github.com/dnldd/chartview/shared"
)

// Compact merges the provided, possibly overlapping segments into a sequence sorted by
// start with no two segments overlapping.
//
// A run of overlapping segments keeps the start and start value of the segment that
// began it. Its end is the furthest end in the run and its end value is the largest
// reported end value, segments without an end value carry the current one forward.
// Segments sharing a start keep their input order.
func Compact(segments []shared.Segment) []shared.Segment {
	if len(segments) == 0 {
		return nil
	}

	sorted := slices.Clone(segments)
	slices.SortStableFunc(sorted, func(a, b shared.Segment) int {
		return cmp.Compare(a.Start, b.Start)
	})

	compacted := make([]shared.Segment, 0, len(sorted))
	for idx := 0; idx < len(sorted); idx++ {
		merged := sorted[idx]
		if merged.EndValue != nil {
			merged.EndValue = shared.Float(*merged.EndValue)
		}

		for idx+1 < len(sorted) && sorted[idx+1].Start < merged.End {
			next := sorted[idx+1]
			merged.End = max(merged.End, next.End)
			if next.EndValue != nil {
				endValue := *next.EndValue
				if merged.EndValue != nil {
					endValue = max(*merged.EndValue, endValue)
				}
				merged.EndValue = shared.Float(endValue)
			}
			idx++
		}

		compacted = append(compacted, merged)
	}

	return compacted
}
