package interval

import (
	"sort"
)

// SortByStart sorts intervals by increasing Start, breaking ties by End and
// then by ID so that the order does not depend on how the slice was built.
func SortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		a, b := intervals[i], intervals[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.ID < b.ID
	})
}

// validate checks that every interval lies within [0, length) and is
// nonempty.
func validate(chrom string, length PosType, intervals []Interval) error {
	for _, iv := range intervals {
		if iv.End <= iv.Start {
			return &SegmentError{Kind: KindNegative, Chrom: chrom, ID: iv.ID, Start: iv.Start, End: iv.End}
		}
		if iv.Start < 0 || iv.End > length {
			return &SegmentError{Kind: KindRange, Chrom: chrom, ID: iv.ID, Start: iv.Start, End: iv.End}
		}
	}
	return nil
}

// UnionEndpoints returns the interval-union of the given intervals as a sorted
// endpoint sequence {start0, end0, start1, end1, ...}.  Overlapping and
// touching intervals are merged, and empty ones are dropped.  The input need
// not be sorted.
func UnionEndpoints(intervals []Interval) []PosType {
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	SortByStart(sorted)

	var endpoints []PosType
	prevStart, prevEnd := PosType(-1), PosType(-1)
	for _, iv := range sorted {
		if iv.End <= iv.Start {
			continue
		}
		if prevEnd == -1 {
			prevStart, prevEnd = iv.Start, iv.End
			continue
		}
		if iv.Start > prevEnd {
			// New interval doesn't overlap or touch the previous one, so we can
			// save the previous one.
			endpoints = append(endpoints, prevStart, prevEnd)
			prevStart, prevEnd = iv.Start, iv.End
			continue
		}
		// Intervals overlap, merge them.
		if iv.End > prevEnd {
			prevEnd = iv.End
		}
	}
	if prevEnd != -1 {
		endpoints = append(endpoints, prevStart, prevEnd)
	}
	return endpoints
}

// Complement returns the unphased intervals of a chromosome of the given
// length: the maximal spans of [0, length) not covered by any phased
// interval.  Phased intervals may overlap in any way; their union is
// complemented.  The result is sorted by Start and contains no empty
// interval.
func Complement(chrom string, length PosType, phased []Interval) ([]Interval, error) {
	if err := validate(chrom, length, phased); err != nil {
		return nil, err
	}
	union := UnionEndpoints(phased)
	// Bracketing the union endpoints with 0 and length inverts it.
	inverted := make([]PosType, 0, len(union)+2)
	inverted = append(inverted, 0)
	inverted = append(inverted, union...)
	inverted = append(inverted, length)
	return fromEndpoints(chrom, inverted), nil
}

// ComplementSharedStart computes the unphased intervals with the legacy
// shared-start rule: for each distinct phased start coordinate, the gap
// preceding it starts at the maximum end among the phased intervals sharing
// the previous start.  This is only correct when phased intervals don't
// overlap unless they share a start; when they do, the resulting
// negative-length span is reported as a *SegmentError instead of being
// emitted.
func ComplementSharedStart(chrom string, length PosType, phased []Interval) ([]Interval, error) {
	if err := validate(chrom, length, phased); err != nil {
		return nil, err
	}
	maxEnd := map[PosType]PosType{}
	var starts []PosType
	for _, iv := range phased {
		end, ok := maxEnd[iv.Start]
		if !ok {
			starts = append(starts, iv.Start)
		}
		if !ok || iv.End > end {
			maxEnd[iv.Start] = iv.End
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	endpoints := make([]PosType, 0, 2*len(starts)+2)
	endpoints = append(endpoints, 0)
	for _, start := range starts {
		endpoints = append(endpoints, start, maxEnd[start])
	}
	endpoints = append(endpoints, length)
	for i := 0; i < len(endpoints); i += 2 {
		if endpoints[i] > endpoints[i+1] {
			return nil, &SegmentError{
				Kind:  KindNegative,
				Chrom: chrom,
				ID:    UnphasedID,
				Start: endpoints[i],
				End:   endpoints[i+1],
			}
		}
	}
	return fromEndpoints(chrom, endpoints), nil
}

func fromEndpoints(chrom string, endpoints []PosType) []Interval {
	var (
		result     []Interval
		start, end PosType
	)
	us := NewUnionScanner(endpoints)
	for us.Scan(&start, &end) {
		result = append(result, NewUnphased(chrom, start, end))
	}
	return result
}
