package interval

import (
	"fmt"
	"strings"
)

// Label identifies which haplotype stream an interval (or a read-set built
// from it) feeds.
type Label uint8

const (
	// LabelNone is the zero value; it never appears in a valid interval.
	LabelNone Label = iota
	// Hap1 is haplotype 1 (HP:i:1).
	Hap1
	// Hap2 is haplotype 2 (HP:i:2).
	Hap2
	// HapUnphased is the sentinel label of unphased intervals.
	HapUnphased
)

// Labels lists every stream label in aggregation order.
var Labels = []Label{Hap1, Hap2, HapUnphased}

// String returns "1", "2" or "u".
func (l Label) String() string {
	switch l {
	case Hap1:
		return "1"
	case Hap2:
		return "2"
	case HapUnphased:
		return "u"
	}
	return fmt.Sprintf("label(%d)", uint8(l))
}

// Status classifies an interval by how many haplotypes are known across it.
type Status uint8

const (
	// StatusUnphased intervals carry no phasing information.
	StatusUnphased Status = iota
	// StatusMonophasic intervals have reads from exactly one haplotype.
	StatusMonophasic
	// StatusBiphasic intervals have reads from both haplotypes.
	StatusBiphasic
)

func (s Status) String() string {
	switch s {
	case StatusBiphasic:
		return "biphasic"
	case StatusMonophasic:
		return "monophasic"
	case StatusUnphased:
		return "unphased"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// UnphasedID is the identifier given to every unphased interval.
const UnphasedID = "NOID"

// Interval is a contiguous span [Start, End) of one chromosome, along with the
// haplotype labels that are processed over it.
type Interval struct {
	// ID is the phase set the interval was built from, or UnphasedID.
	ID    string
	Chrom string
	Start PosType
	End   PosType
	// Labels is nonempty.  Phased intervals list Hap1 and/or Hap2 in the order
	// they are processed; unphased intervals list only HapUnphased.
	Labels []Label
}

// NewUnphased returns an unphased interval spanning [start, end).
func NewUnphased(chrom string, start, end PosType) Interval {
	return Interval{
		ID:     UnphasedID,
		Chrom:  chrom,
		Start:  start,
		End:    end,
		Labels: []Label{HapUnphased},
	}
}

// Status derives the interval status from its labels.
func (iv Interval) Status() Status {
	var has1, has2 bool
	for _, l := range iv.Labels {
		switch l {
		case Hap1:
			has1 = true
		case Hap2:
			has2 = true
		case HapUnphased:
			return StatusUnphased
		}
	}
	if has1 && has2 {
		return StatusBiphasic
	}
	return StatusMonophasic
}

// String renders the interval as chrom:start-end[id:labels], with 0-based
// half-open coordinates.
func (iv Interval) String() string {
	labels := make([]string, len(iv.Labels))
	for i, l := range iv.Labels {
		labels[i] = l.String()
	}
	return fmt.Sprintf("%s:%d-%d[%s:%s]", iv.Chrom, iv.Start, iv.End, iv.ID, strings.Join(labels, ","))
}
