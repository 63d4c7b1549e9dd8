// Package readset splits the reads overlapping one interval into isolated,
// indexed BAM files: one per haplotype label processed over the interval.
package readset

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/phasedsv/encoding/bamprovider"
	"github.com/grailbio/phasedsv/interval"
	"github.com/grailbio/phasedsv/phaseblock"
)

// ReadSet is a BAM file holding the reads of one (interval, label) pair.
// The caller owns the file and must call Remove when done with it.
type ReadSet struct {
	// Path is the BAM file; its index is Path + ".bai".
	Path     string
	Label    interval.Label
	Interval interval.Interval
	// NReads is the number of records in the file.
	NReads int
}

// Region renders the read-set span as chrom:start-end, with 1-based
// inclusive coordinates as expected by samtools-style tools.
func (rs ReadSet) Region() string {
	return fmt.Sprintf("%s:%d-%d", rs.Interval.Chrom, rs.Interval.Start+1, rs.Interval.End)
}

// Remove deletes the BAM file and its index.  Missing files are ignored.
func (rs ReadSet) Remove(ctx context.Context) error {
	var err error
	for _, path := range []string{rs.Path, rs.Path + ".bai"} {
		if rerr := file.Remove(ctx, path); rerr != nil && !errors.Is(errors.NotExist, rerr) && err == nil {
			err = rerr
		}
	}
	return err
}

// RemoveAll removes every read-set, logging failures.
func RemoveAll(ctx context.Context, sets []ReadSet) {
	for _, rs := range sets {
		if err := rs.Remove(ctx); err != nil {
			log.Error.Printf("remove %s: %v", rs.Path, err)
		}
	}
}

// FileName returns the base name of the BAM file materialized for
// (iv, label).
func FileName(iv interval.Interval, label interval.Label) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, iv.ID)
	return fmt.Sprintf("%s_%d_%d_%s_h%s.bam", iv.Chrom, iv.Start, iv.End, id, label)
}

// keep reports whether read r belongs to the read-set of label.
func keep(r *sam.Record, label interval.Label) bool {
	if label == interval.HapUnphased {
		return true
	}
	hp, ok := phaseblock.Haplotype(r)
	return ok && hp == label
}

// Materialize scans the reads of ref overlapping iv once, and writes one
// read-set per label of iv into dir.  The read-sets are returned in the order
// of iv.Labels.  On error, any file already created is removed.
func Materialize(ctx context.Context, p bamprovider.Provider, ref *sam.Reference, iv interval.Interval, dir string) (sets []ReadSet, err error) {
	if len(iv.Labels) == 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("interval %v has no labels", iv))
	}
	header, err := p.GetHeader()
	if err != nil {
		return nil, err
	}
	writers := make([]*bamprovider.IndexedWriter, len(iv.Labels))
	sets = make([]ReadSet, len(iv.Labels))
	defer func() {
		if err != nil {
			for _, w := range writers {
				if w != nil {
					_ = w.Close()
				}
			}
			RemoveAll(ctx, sets)
			sets = nil
		}
	}()
	for i, label := range iv.Labels {
		path := filepath.Join(dir, FileName(iv, label))
		sets[i] = ReadSet{Path: path, Label: label, Interval: iv}
		if writers[i], err = bamprovider.NewIndexedWriter(ctx, path, header); err != nil {
			return
		}
	}

	iter := p.NewIterator(ref, int(iv.Start), int(iv.End))
	for iter.Scan() {
		r := iter.Record()
		for i, label := range iv.Labels {
			if !keep(r, label) {
				continue
			}
			if err = writers[i].Write(r); err != nil {
				_ = iter.Close()
				err = errors.E(err, "write", sets[i].Path)
				return
			}
		}
	}
	if err = iter.Close(); err != nil {
		err = errors.E(err, fmt.Sprintf("read %v", iv))
		return
	}
	for i, w := range writers {
		sets[i].NReads = w.Len()
		writers[i] = nil
		if err = w.Close(); err != nil {
			return
		}
	}
	log.Debug.Printf("%v: materialized %d read-sets", iv, len(sets))
	return sets, nil
}
