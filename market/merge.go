package market

import (
	"cmp"
	"slices"

	"github.com/dnldd/chartview/shared"
)

// Merge splices fresh bars over older ones. The result holds the older bars strictly
// before the first fresh bar followed by every fresh bar, fresh bars win at equal times.
// Both inputs must already be strictly ordered by time. The inputs are not modified;
// when fresh is empty older is returned as is.
func Merge(older []shared.Bar, fresh []shared.Bar) []shared.Bar {
	if len(fresh) == 0 {
		return older
	}

	cut, _ := slices.BinarySearchFunc(older, fresh[0].Time, func(bar shared.Bar, t int64) int {
		return cmp.Compare(bar.Time, t)
	})

	merged := make([]shared.Bar, 0, cut+len(fresh))
	merged = append(merged, older[:cut]...)
	merged = append(merged, fresh...)

	return merged
}
