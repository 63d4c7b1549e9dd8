// Package vcfmerge recombines per-interval call-result streams into
// chromosome-level and genome-level VCF files.
package vcfmerge

import (
	"context"
	"fmt"

	"github.com/biogo/store/llrb"
	"github.com/brentp/vcfgo"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"v.io/x/lib/vlog"
)

// mergeLeaf is one input of Merge, positioned at its current record.
type mergeLeaf struct {
	// seq distinguishes leafs with equal positions; lower seq sorts first.
	seq  int
	name string
	in   file.File
	r    *vcfgo.Reader
	cur  *vcfgo.Variant
}

func (l *mergeLeaf) scan() bool {
	l.cur = l.r.Read()
	return l.cur != nil
}

func (l *mergeLeaf) Compare(c1 llrb.Comparable) int {
	l1 := c1.(*mergeLeaf)
	if l.cur.Pos != l1.cur.Pos {
		if l.cur.Pos < l1.cur.Pos {
			return -1
		}
		return 1
	}
	return l.seq - l1.seq
}

// mergeHeaders adds the INFO, FORMAT and FILTER definitions of src missing
// from dst.
func mergeHeaders(dst, src *vcfgo.Header) {
	for k, v := range src.Infos {
		if _, ok := dst.Infos[k]; !ok {
			dst.Infos[k] = v
		}
	}
	for k, v := range src.SampleFormats {
		if _, ok := dst.SampleFormats[k]; !ok {
			dst.SampleFormats[k] = v
		}
	}
	for k, v := range src.Filters {
		if _, ok := dst.Filters[k]; !ok {
			dst.Filters[k] = v
		}
	}
}

// Merge writes the union of the records of the coordinate-sorted VCF files
// at inputs to output, in nondecreasing position order.  All records must be
// on the same chromosome.  Records at equal positions are written in input
// order, and nothing is deduplicated.  The output header is the first
// input's, extended with the INFO, FORMAT and FILTER definitions of the
// others.  Merge returns the number of records written.
func Merge(ctx context.Context, inputs []string, output string) (n int, err error) {
	if len(inputs) == 0 {
		return 0, errors.E(errors.Invalid, "vcfmerge.Merge: no inputs")
	}
	leafs := make([]*mergeLeaf, 0, len(inputs))
	defer func() {
		for _, l := range leafs {
			_ = l.in.Close(ctx)
		}
	}()
	var header *vcfgo.Header
	for i, path := range inputs {
		in, err := file.Open(ctx, path)
		if err != nil {
			return 0, errors.E(err, "open", path)
		}
		r, err := vcfgo.NewReader(in.Reader(ctx), false)
		if err != nil {
			_ = in.Close(ctx)
			return 0, errors.E(err, "read vcf header", path)
		}
		leafs = append(leafs, &mergeLeaf{seq: i, name: path, in: in, r: r})
		if header == nil {
			header = r.Header
		} else {
			mergeHeaders(header, r.Header)
		}
	}

	out, err := file.Create(ctx, output)
	if err != nil {
		return 0, errors.E(err, "create", output)
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, "close", output)
		}
	}()
	w, err := vcfgo.NewWriter(out.Writer(ctx), header)
	if err != nil {
		return 0, errors.E(err, "write vcf header", output)
	}

	tree := llrb.Tree{}
	for _, l := range leafs {
		if l.scan() {
			tree.Insert(l)
		}
	}
	vlog.VI(1).Infof("merging %d vcfs into %s, %d nonempty", len(inputs), output, tree.Len())
	chrom := ""
	for tree.Len() > 0 {
		nthiter := 0
		var top, next *mergeLeaf
		tree.Do(func(item llrb.Comparable) bool {
			nthiter++
			if nthiter == 1 {
				top = item.(*mergeLeaf)
				return false
			}
			next = item.(*mergeLeaf)
			return true
		})
		// Drain top until it sorts after next.
		for {
			v := top.cur
			if chrom == "" {
				chrom = v.Chromosome
			} else if v.Chromosome != chrom {
				return n, errors.E(errors.Invalid, fmt.Sprintf("%s: record on %s in a merge of %s", top.name, v.Chromosome, chrom))
			}
			w.WriteVariant(v)
			n++
			if !top.scan() {
				break
			}
			if next != nil && next.Compare(top) < 0 {
				break
			}
		}
		tree.DeleteMin()
		if top.cur != nil {
			tree.Insert(top)
		}
	}
	for _, l := range leafs {
		if err := l.r.Error(); err != nil {
			return n, errors.E(err, "parse vcf", l.name)
		}
	}
	return n, nil
}
