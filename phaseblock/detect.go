// Package phaseblock finds the phase blocks of a chromosome: one interval per
// phase set (PS tag), spanning every haplotype-tagged read of that set.
package phaseblock

import (
	"fmt"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/log"
	"github.com/grailbio/phasedsv/encoding/bamprovider"
	"github.com/grailbio/phasedsv/interval"
)

// DataIntegrityError is returned when a phase set cannot be turned into a
// valid interval.
type DataIntegrityError struct {
	Chrom string
	// ID is the phase set.
	ID  string
	Msg string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s: phase set %s: %s", e.Chrom, e.ID, e.Msg)
}

// Stats counts the reads seen by Detect.
type Stats struct {
	// Reads is the number of reads scanned.
	Reads int
	// Phased is the number of reads assigned to a phase set.
	Phased int
	// NoPhaseSet counts reads with a valid HP tag but no PS tag.
	NoPhaseSet int
	// BadHaplotype counts reads with an HP tag that is not 1 or 2.
	BadHaplotype int
	// Empty counts reads with no aligned reference bases.
	Empty int
}

type phaseSet struct {
	id         string
	start, end int
	// labels observed, in order of first appearance.
	labels []interval.Label
	nReads int
}

func (g *phaseSet) add(r *sam.Record, label interval.Label) {
	if g.nReads == 0 || r.Pos < g.start {
		g.start = r.Pos
	}
	if end := r.End(); g.nReads == 0 || end > g.end {
		g.end = end
	}
	g.nReads++
	for _, l := range g.labels {
		if l == label {
			return
		}
	}
	g.labels = append(g.labels, label)
}

// Detect reads every record from iter, which must yield the reads of
// chromosome chrom, and returns one interval per phase set, sorted by start.
//
// A read contributes to a phase set only if it carries both a PS tag and an
// HP tag of 1 or 2.  A phase set with both haplotypes is biphasic and gets
// labels {1, 2}; otherwise it is monophasic and gets the single label that was
// observed.
//
// Detect does not close iter.
func Detect(chrom string, iter bamprovider.Iterator) ([]interval.Interval, Stats, error) {
	var (
		stats  Stats
		groups []*phaseSet
		byID   = map[string]*phaseSet{}
	)
	for iter.Scan() {
		r := iter.Record()
		stats.Reads++
		if r.Flags&sam.Unmapped != 0 {
			continue
		}
		if r.AuxFields.Get(hpTag) == nil {
			continue
		}
		label, ok := Haplotype(r)
		if !ok {
			stats.BadHaplotype++
			continue
		}
		id, ok := PhaseSet(r)
		if !ok {
			stats.NoPhaseSet++
			continue
		}
		if r.End() <= r.Pos {
			stats.Empty++
			continue
		}
		g := byID[id]
		if g == nil {
			g = &phaseSet{id: id}
			byID[id] = g
			groups = append(groups, g)
		}
		g.add(r, label)
		stats.Phased++
	}
	if err := iter.Err(); err != nil {
		return nil, stats, err
	}

	blocks := make([]interval.Interval, 0, len(groups))
	for _, g := range groups {
		if g.nReads == 0 || len(g.labels) == 0 {
			return nil, stats, &DataIntegrityError{Chrom: chrom, ID: g.id, Msg: "no haplotype-tagged reads"}
		}
		if g.end <= g.start {
			return nil, stats, &DataIntegrityError{Chrom: chrom, ID: g.id, Msg: fmt.Sprintf("empty span [%d, %d)", g.start, g.end)}
		}
		block := interval.Interval{
			ID:    g.id,
			Chrom: chrom,
			Start: interval.PosType(g.start),
			End:   interval.PosType(g.end),
		}
		if len(g.labels) >= 2 {
			block.Labels = []interval.Label{interval.Hap1, interval.Hap2}
		} else {
			block.Labels = []interval.Label{g.labels[0]}
		}
		blocks = append(blocks, block)
	}
	interval.SortByStart(blocks)
	log.Debug.Printf("%s: %d phase blocks from %d/%d reads (%d without PS, %d bad HP, %d empty)",
		chrom, len(blocks), stats.Phased, stats.Reads, stats.NoPhaseSet, stats.BadHaplotype, stats.Empty)
	return blocks, stats, nil
}

// DetectChrom runs Detect over every read of ref.
func DetectChrom(p bamprovider.Provider, ref *sam.Reference) ([]interval.Interval, Stats, error) {
	iter := bamprovider.NewChromIterator(p, ref)
	blocks, stats, err := Detect(ref.Name(), iter)
	if cerr := iter.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return blocks, stats, err
}
