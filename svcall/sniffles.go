// Package svcall drives the external structural-variant caller over one
// read-set at a time, and tags each emitted record with the haplotype and
// phase status of the read-set it came from.
package svcall

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/phasedsv/exttool"
	"github.com/grailbio/phasedsv/interval"
	"github.com/grailbio/phasedsv/readset"
)

const (
	// DefaultMinHomoAF is the allele frequency at or above which a call is
	// genotyped homozygous.
	DefaultMinHomoAF = 0.8
	// DefaultMinHetAF is the allele frequency at or above which a call is
	// genotyped heterozygous.
	DefaultMinHetAF = 0.3
)

// Caller runs an SV caller on one read-set and writes a VCF to out.
type Caller interface {
	Call(ctx context.Context, rs readset.ReadSet, status interval.Status, out string) error
}

// Sniffles runs
//
//   sniffles --tmp_file <dir> --genotype --min_homo_af A --min_het_af B [-s N] [-t T] -m <bam> -v <vcf>
type Sniffles struct {
	Invoker exttool.Invoker
	// Tool is the name passed to Invoker.Run.
	Tool string
	// TempDir is the parent of the per-invocation --tmp_file directory.  If
	// empty, the system default is used.
	TempDir   string
	MinHomoAF float64
	MinHetAF  float64
	// MinSupport is passed as -s for unphased read-sets, and
	// PhasedMinSupport for phased ones.  Zero leaves the caller's default.
	MinSupport       int
	PhasedMinSupport int
	// Threads is passed as -t if positive.
	Threads int
}

// Args returns the sniffles command line for the given inputs.
func (s *Sniffles) Args(tmpDir, bam, vcf string, status interval.Status) []string {
	args := []string{
		"--tmp_file", tmpDir,
		"--genotype",
		"--min_homo_af", strconv.FormatFloat(s.MinHomoAF, 'g', -1, 64),
		"--min_het_af", strconv.FormatFloat(s.MinHetAF, 'g', -1, 64),
	}
	support := s.MinSupport
	if status != interval.StatusUnphased {
		support = s.PhasedMinSupport
	}
	if support > 0 {
		args = append(args, "-s", fmt.Sprint(support))
	}
	if s.Threads > 0 {
		args = append(args, "-t", fmt.Sprint(s.Threads))
	}
	return append(args, "-m", bam, "-v", vcf)
}

// Call implements Caller.
func (s *Sniffles) Call(ctx context.Context, rs readset.ReadSet, status interval.Status, out string) error {
	tmpDir, err := ioutil.TempDir(s.TempDir, "sniffles_tmp")
	if err != nil {
		return errors.E(err, "create sniffles scratch dir")
	}
	defer os.RemoveAll(tmpDir) // nolint: errcheck
	if err := s.Invoker.Run(ctx, s.Tool, s.Args(tmpDir, rs.Path, out, status)...); err != nil {
		return exttool.WithRegion(err, rs.Region())
	}
	return nil
}
