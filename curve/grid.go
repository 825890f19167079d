package curve

import "sort"

// Times closer than half a day are treated as the same point.
const gridTolerance = 1.0 / 730

func different(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d > gridTolerance
}

// IntegrationPoints merges two sorted knot sets into the integration grid
// for [start, end]: start, every knot strictly inside the window, then end.
// Near-duplicates collapse to the earlier point, except that end always wins.
func IntegrationPoints(start, end float64, setA, setB []float64) []float64 {
	set1 := truncateSetExclusive(start, end, setA)
	set2 := truncateSetExclusive(start, end, setB)
	set := make([]float64, 0, len(set1)+len(set2))
	set = append(set, set1...)
	set = append(set, set2...)
	sort.Float64s(set)

	res := make([]float64, 1, len(set)+2)
	res[0] = start
	for _, x := range set {
		if different(res[len(res)-1], x) {
			res = append(res, x)
		}
	}
	if different(res[len(res)-1], end) || len(res) == 1 {
		res = append(res, end)
	} else {
		res[len(res)-1] = end
	}
	return res
}

// TruncateSetInclusive returns lower, the values of the sorted set strictly
// inside (lower, upper), then upper. Interior values within half a day of
// either bound are replaced by the bound.
func TruncateSetInclusive(lower, upper float64, set []float64) []float64 {
	temp := truncateSetExclusive(lower, upper, set)
	n := len(temp)
	if n == 0 {
		return []float64{lower, upper}
	}
	addLower := different(lower, temp[0])
	addUpper := different(upper, temp[n-1])
	if n == 1 && !addLower && !addUpper {
		return []float64{lower, upper}
	}

	res := make([]float64, 0, n+2)
	if addLower {
		res = append(res, lower)
	}
	res = append(res, temp...)
	if addUpper {
		res = append(res, upper)
	}
	res[0] = lower
	res[len(res)-1] = upper
	return res
}

// CombineSets returns the sorted union of two sets with near-duplicates
// (within half a day) collapsed to the smaller value.
func CombineSets(a, b []float64) []float64 {
	set := make([]float64, 0, len(a)+len(b))
	set = append(set, a...)
	set = append(set, b...)
	if len(set) == 0 {
		return set
	}
	sort.Float64s(set)
	res := set[:1]
	for _, x := range set[1:] {
		if different(res[len(res)-1], x) {
			res = append(res, x)
		}
	}
	return res
}

func truncateSetExclusive(lower, upper float64, set []float64) []float64 {
	n := len(set)
	if n == 0 || upper < set[0] || lower > set[n-1] {
		return nil
	}
	// first index strictly above lower
	lIndex := sort.Search(n, func(i int) bool { return set[i] > lower })
	// first index at or above upper
	uIndex := sort.Search(n, func(i int) bool { return set[i] >= upper })
	if uIndex <= lIndex {
		return nil
	}
	return append([]float64(nil), set[lIndex:uIndex]...)
}
