// Package coverage decides whether a read-set has enough depth to be worth
// calling variants on.
package coverage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/phasedsv/exttool"
	"github.com/grailbio/phasedsv/interval"
	"github.com/grailbio/phasedsv/readset"
	"github.com/klauspost/compress/gzip"
)

// DefaultMinDepth is the default admission threshold.
const DefaultMinDepth = 10.0

// Depther computes the mean per-base depth of a read-set over its interval.
type Depther interface {
	Depth(ctx context.Context, rs readset.ReadSet) (float64, error)
}

// Gate admits read-sets to variant calling.
type Gate struct {
	Depther Depther
	// MinDepth is the smallest admitted mean depth.
	MinDepth float64
}

// Admit reports whether a read-set of the given mean depth is admitted.
func (g Gate) Admit(depth float64) bool {
	return depth >= g.MinDepth
}

// Check computes the depth of rs and applies the threshold.  A read-set with
// no reads has depth zero; the depth tool isn't run for it.
func (g Gate) Check(ctx context.Context, rs readset.ReadSet) (bool, float64, error) {
	if rs.NReads == 0 {
		log.Debug.Printf("%v hap %v: no reads", rs.Interval, rs.Label)
		return false, 0, nil
	}
	depth, err := g.Depther.Depth(ctx, rs)
	if err != nil {
		return false, 0, err
	}
	admit := g.Admit(depth)
	if !admit {
		log.Printf("%v hap %v: skipping, mean depth %.2f < %.2f", rs.Interval, rs.Label, depth, g.MinDepth)
	}
	return admit, depth, nil
}

// Mosdepth computes depth with the mosdepth tool:
//
//   mosdepth -n -x -b <bed> <prefix> <bam>
//
// and reads the mean from <prefix>.regions.bed.gz.
type Mosdepth struct {
	Invoker exttool.Invoker
	// Tool is the name passed to Invoker.Run.
	Tool string
	// Dir holds the region files and reports.
	Dir string
	// Threads is passed as -t if positive.
	Threads int
}

// Prefix returns the output prefix used for rs.
func (m *Mosdepth) Prefix(rs readset.ReadSet) string {
	return filepath.Join(m.Dir, fmt.Sprintf("%s.%d.%s", rs.Interval.Chrom, rs.Interval.Start, rs.Label))
}

// ReportPath returns the region report that mosdepth writes for prefix.
func ReportPath(prefix string) string {
	return prefix + ".regions.bed.gz"
}

// Depth implements Depther.
func (m *Mosdepth) Depth(ctx context.Context, rs readset.ReadSet) (float64, error) {
	prefix := m.Prefix(rs)
	bed := prefix + ".bed"
	if err := interval.WriteBED(ctx, bed, rs.Interval); err != nil {
		return 0, errors.E(err, "write region", bed)
	}
	defer removeAll(ctx, bed)

	args := []string{"-n", "-x"}
	if m.Threads > 0 {
		args = append(args, "-t", fmt.Sprint(m.Threads))
	}
	args = append(args, "-b", bed, prefix, rs.Path)
	if err := m.Invoker.Run(ctx, m.Tool, args...); err != nil {
		return 0, exttool.WithRegion(err, rs.Region())
	}
	defer removeAll(ctx, ReportPath(prefix), ReportPath(prefix)+".csi",
		prefix+".mosdepth.global.dist.txt", prefix+".mosdepth.region.dist.txt",
		prefix+".mosdepth.summary.txt")
	return ReadMeanDepth(ctx, ReportPath(prefix))
}

func removeAll(ctx context.Context, paths ...string) {
	for _, path := range paths {
		_ = file.Remove(ctx, path)
	}
}

// regionRow is one line of a mosdepth regions report for an unnamed BED.
type regionRow struct {
	Chrom string
	Start int64
	End   int64
	Mean  float64
}

// ReadMeanDepth reads the 4th column of the single row of a gzipped mosdepth
// region report.
func ReadMeanDepth(ctx context.Context, path string) (depth float64, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return 0, errors.E(err, "open depth report", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	gz, err := gzip.NewReader(in.Reader(ctx))
	if err != nil {
		return 0, errors.E(err, "read depth report", path)
	}
	defer gz.Close() // nolint: errcheck
	r := tsv.NewReader(gz)
	var row regionRow
	if err = r.Read(&row); err != nil {
		if err == io.EOF {
			return 0, errors.E(errors.Invalid, "empty depth report", path)
		}
		return 0, errors.E(err, "parse depth report", path)
	}
	if row.Mean < 0 {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("negative depth %v", row.Mean), path)
	}
	return row.Mean, nil
}
