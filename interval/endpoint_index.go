package interval

// This file includes support datatypes and functions for representing an
// interval-union as an []PosType containing a sorted sequence of
// interval-endpoints, and iterating over the intervals.
//
// For example, given the intervals
//   [5, 15)
//   [7, 17)
//   [20, 25)
// the interval-union would be
//   [5, 17) U [20, 25)
// so the sorted sequence of endpoints would be
//   {5, 17, 20, 25}.
//
// Complementing the union within [0, 30) only requires bracketing the
// endpoint sequence: {0, 5, 17, 20, 25, 30} describes [0, 5) U [17, 20) U
// [25, 30) once empty intervals are dropped.

// PosType is the type used to represent interval coordinates.  int32 should be
// wide enough for some time to come, since that's what BAM is limited to.
type PosType int32

// UnionScanner supports iteration over the intervals of an endpoint
// sequence.  Empty intervals (start == end) are skipped.
type UnionScanner struct {
	endpoints   []PosType
	endpointIdx int
}

// NewUnionScanner returns a UnionScanner positioned before the first
// interval.  len(endpoints) must be even.
func NewUnionScanner(endpoints []PosType) UnionScanner {
	return UnionScanner{endpoints: endpoints}
}

// Scan is written so that the following loop can be used to iterate over all
// nonempty intervals:
//   for us.Scan(&start, &end) {
//     // ...do stuff with [start, end)...
//   }
func (us *UnionScanner) Scan(start *PosType, end *PosType) bool {
	for us.endpointIdx+1 < len(us.endpoints) {
		s := us.endpoints[us.endpointIdx]
		e := us.endpoints[us.endpointIdx+1]
		us.endpointIdx += 2
		if s != e {
			*start = s
			*end = e
			return true
		}
	}
	return false
}
