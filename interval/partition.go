package interval

import (
	"fmt"
)

// ErrorKind classifies a SegmentError.
type ErrorKind int

const (
	// KindNegative is an interval whose end is not after its start.
	KindNegative ErrorKind = iota
	// KindRange is an interval extending past either end of the chromosome.
	KindRange
	// KindGap is a span of the chromosome covered by no interval.
	KindGap
	// KindOverlap is a span covered by more than one interval.
	KindOverlap
)

func (k ErrorKind) String() string {
	switch k {
	case KindNegative:
		return "negative-length interval"
	case KindRange:
		return "interval out of chromosome range"
	case KindGap:
		return "gap between intervals"
	case KindOverlap:
		return "overlapping intervals"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// SegmentError reports a violation of the chromosome partition: the
// offending chromosome, the identifier of the interval at fault and the span
// involved.
type SegmentError struct {
	Kind  ErrorKind
	Chrom string
	ID    string
	Start PosType
	End   PosType
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("%s: %s at [%d, %d) (interval %s)", e.Chrom, e.Kind, e.Start, e.End, e.ID)
}

// CheckPartition verifies that the union of the given intervals covers [0,
// length) with no gap and no overlap.  A negative, out-of-range or gap
// violation is returned as soon as it is found, scanning left to right.
// Overlaps don't stop the scan: if the intervals cover the chromosome but
// some overlap, the first overlap is returned.
func CheckPartition(chrom string, length PosType, intervals []Interval) error {
	if err := validate(chrom, length, intervals); err != nil {
		return err
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	SortByStart(sorted)

	var (
		covered PosType
		prevID  string
		overlap *SegmentError
	)
	for _, iv := range sorted {
		if iv.Start > covered {
			return &SegmentError{Kind: KindGap, Chrom: chrom, ID: iv.ID, Start: covered, End: iv.Start}
		}
		if iv.Start < covered && overlap == nil {
			end := covered
			if iv.End < end {
				end = iv.End
			}
			overlap = &SegmentError{Kind: KindOverlap, Chrom: chrom, ID: prevID + "/" + iv.ID, Start: iv.Start, End: end}
		}
		if iv.End > covered {
			covered = iv.End
			prevID = iv.ID
		}
	}
	if covered != length {
		return &SegmentError{Kind: KindGap, Chrom: chrom, ID: UnphasedID, Start: covered, End: length}
	}
	if overlap != nil {
		return overlap
	}
	return nil
}
