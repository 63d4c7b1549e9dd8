package vcfmerge

import (
	"context"
	"sort"

	"github.com/brentp/vcfgo"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// MemConcat is a Concatenator that holds every record in memory.  Chromosomes
// are ordered by first appearance across inputs.  It is meant for tests and
// small call sets.
type MemConcat struct{}

func readAll(ctx context.Context, path string) (h *vcfgo.Header, vars []*vcfgo.Variant, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "open", path)
	}
	defer in.Close(ctx) // nolint: errcheck
	r, err := vcfgo.NewReader(in.Reader(ctx), false)
	if err != nil {
		return nil, nil, errors.E(err, "read vcf header", path)
	}
	for v := r.Read(); v != nil; v = r.Read() {
		vars = append(vars, v)
	}
	if err := r.Error(); err != nil {
		return nil, nil, errors.E(err, "parse vcf", path)
	}
	return r.Header, vars, nil
}

// Concat implements Concatenator.
func (MemConcat) Concat(ctx context.Context, inputs []string, output string) (err error) {
	if len(inputs) == 0 {
		return errors.E(errors.Invalid, "concat: no inputs for", output)
	}
	var (
		header *vcfgo.Header
		all    []*vcfgo.Variant
		chroms = map[string]int{}
	)
	for _, path := range inputs {
		h, vars, err := readAll(ctx, path)
		if err != nil {
			return err
		}
		if header == nil {
			header = h
		} else {
			mergeHeaders(header, h)
		}
		for _, v := range vars {
			if _, ok := chroms[v.Chromosome]; !ok {
				chroms[v.Chromosome] = len(chroms)
			}
		}
		all = append(all, vars...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		ci, cj := chroms[all[i].Chromosome], chroms[all[j].Chromosome]
		if ci != cj {
			return ci < cj
		}
		return all[i].Pos < all[j].Pos
	})

	out, err := file.Create(ctx, output)
	if err != nil {
		return errors.E(err, "create", output)
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, "close", output)
		}
	}()
	w, err := vcfgo.NewWriter(out.Writer(ctx), header)
	if err != nil {
		return errors.E(err, "write vcf header", output)
	}
	for _, v := range all {
		w.WriteVariant(v)
	}
	return nil
}
