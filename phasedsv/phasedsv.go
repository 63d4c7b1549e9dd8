// Package phasedsv calls structural variants separately on each haplotype of
// a phased BAM file.
//
// Each chromosome is split into phase blocks (one per PS tag value) and the
// unphased intervals between them, which together partition the chromosome.
// For every interval, the reads of each haplotype processed over it (1 and/or
// 2 for phase blocks; all reads for unphased intervals) are written to their
// own BAM file.  Read-sets with enough depth are passed to the SV caller, and
// the resulting VCFs are concatenated per haplotype, merged per chromosome, and
// finally concatenated into one coordinate-sorted VCF.
package phasedsv

import (
	"context"
	"time"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/phasedsv/coverage"
	"github.com/grailbio/phasedsv/encoding/bamprovider"
	"github.com/grailbio/phasedsv/exttool"
	"github.com/grailbio/phasedsv/interval"
	"github.com/grailbio/phasedsv/phaseblock"
	"github.com/grailbio/phasedsv/readset"
	"github.com/grailbio/phasedsv/svcall"
	"github.com/grailbio/phasedsv/vcfmerge"
	"github.com/pkg/errors"
)

// PhasedSV runs the pipeline over one BAM file.  The external collaborators
// are interfaces so that they can be replaced in tests.
type PhasedSV struct {
	Provider bamprovider.Provider
	Depther  coverage.Depther
	Caller   svcall.Caller
	Concat   vcfmerge.Concatenator
	Opts     Opts
	// Scratch is the scratch space of the run.  If nil, Run creates one and
	// cleans it up.
	Scratch *Scratch
}

// chromStats summarizes the processing of one chromosome.
type chromStats struct {
	phased, unphased int
	readSets         int
	lowDepth         int
	called           int
	toolErrors       int
}

// Run processes every selected chromosome and writes the merged calls to
// output.  A scratch space created by Run is removed on return, whether or
// not Run succeeds.
func (p *PhasedSV) Run(ctx context.Context, output string) (err error) {
	opts := p.Opts
	if err = opts.Validate(); err != nil {
		return err
	}
	header, err := p.Provider.GetHeader()
	if err != nil {
		return errors.Wrap(err, "read BAM header")
	}
	refs, err := selectRefs(header, opts.Chroms)
	if err != nil {
		return err
	}
	if opts.SampleName == "" {
		opts.SampleName = DefaultSampleName(header, "")
	}
	scratch := p.Scratch
	if scratch == nil {
		if scratch, err = NewScratch(opts.TempDir, opts.KeepTemp); err != nil {
			return err
		}
		defer scratch.Cleanup()
	}

	start := time.Now()
	chromVCFs := make([]string, len(refs))
	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	if parallelism > len(refs) {
		parallelism = len(refs)
	}
	log.Printf("processing %d chromosomes (%d jobs)", len(refs), parallelism)
	if len(refs) > 0 {
		err = traverse.Each(parallelism, func(jobIdx int) error {
			startIdx := (jobIdx * len(refs)) / parallelism
			endIdx := ((jobIdx + 1) * len(refs)) / parallelism
			for i := startIdx; i < endIdx; i++ {
				path, err := p.processChrom(ctx, scratch, i, refs[i], opts.SampleName)
				if err != nil {
					return errors.Wrapf(err, "chromosome %s", refs[i].Name())
				}
				chromVCFs[i] = path
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	agg := &vcfmerge.Aggregator{Concat: p.Concat, Dir: scratch.Root}
	if err = agg.Finish(ctx, chromVCFs, output, opts.SampleName); err != nil {
		return errors.Wrap(err, "write "+output)
	}
	log.Printf("wrote %s in %v", output, time.Since(start))
	return nil
}

// Segment returns the phase blocks of a chromosome together with the
// unphased intervals complementing them, sorted by start.  The result
// partitions [0, length): a gap or out-of-range interval is an error, while
// an overlap between phase blocks is only logged.
func Segment(chrom string, length int, blocks []interval.Interval, legacy bool) ([]interval.Interval, error) {
	complement := interval.Complement
	if legacy {
		complement = interval.ComplementSharedStart
	}
	unphased, err := complement(chrom, interval.PosType(length), blocks)
	if err != nil {
		return nil, err
	}
	all := make([]interval.Interval, 0, len(blocks)+len(unphased))
	all = append(all, blocks...)
	all = append(all, unphased...)
	interval.SortByStart(all)
	if err := interval.CheckPartition(chrom, interval.PosType(length), all); err != nil {
		se, ok := err.(*interval.SegmentError)
		if !ok || se.Kind != interval.KindOverlap {
			return nil, err
		}
		log.Error.Printf("%v; phase blocks are processed as is", err)
	}
	return all, nil
}

func (p *PhasedSV) processChrom(ctx context.Context, scratch *Scratch, idx int, ref *sam.Reference, sample string) (string, error) {
	chrom := ref.Name()
	log.Printf("working on chromosome %s", chrom)
	dirs, err := scratch.Chrom(idx, chrom)
	if err != nil {
		return "", err
	}
	blocks, _, err := phaseblock.DetectChrom(p.Provider, ref)
	if err != nil {
		return "", err
	}
	intervals, err := Segment(chrom, ref.Len(), blocks, p.Opts.LegacyComplement)
	if err != nil {
		return "", err
	}

	var (
		stats   = chromStats{phased: len(blocks), unphased: len(intervals) - len(blocks)}
		streams = vcfmerge.NewStreams(chrom)
		gate    = coverage.Gate{Depther: p.Depther, MinDepth: p.Opts.MinDepth}
		driver  = &svcall.Driver{Caller: p.Caller, Dir: dirs.Calls, SampleName: sample}
	)
	for _, iv := range intervals {
		if err := p.processInterval(ctx, ref, iv, dirs.ReadSets, gate, driver, streams, &stats); err != nil {
			streams.Remove(ctx)
			return "", err
		}
	}
	log.Printf("%s: %d phase blocks, %d unphased intervals, %d read-sets: %d called, %d below depth %v, %d tool errors",
		chrom, stats.phased, stats.unphased, stats.readSets, stats.called, stats.lowDepth, p.Opts.MinDepth, stats.toolErrors)
	agg := &vcfmerge.Aggregator{Concat: p.Concat, Dir: dirs.Merge}
	return agg.FinishChrom(ctx, streams)
}

// skippable reports whether err may be dropped under the tool-error policy.
func (p *PhasedSV) skippable(err error) bool {
	if p.Opts.OnToolError != OnToolErrorSkip {
		return false
	}
	_, ok := errors.Cause(err).(*exttool.Error)
	return ok
}

func (p *PhasedSV) processInterval(ctx context.Context, ref *sam.Reference, iv interval.Interval, dir string,
	gate coverage.Gate, driver *svcall.Driver, streams *vcfmerge.Streams, stats *chromStats) error {
	sets, err := readset.Materialize(ctx, p.Provider, ref, iv, dir)
	if err != nil {
		return err
	}
	defer readset.RemoveAll(ctx, sets)
	for _, rs := range sets {
		stats.readSets++
		admit, depth, err := gate.Check(ctx, rs)
		if err == nil && admit {
			log.Debug.Printf("%v hap %v: depth %.2f, calling", iv, rs.Label, depth)
			var res svcall.Result
			if res, err = driver.Call(ctx, rs); err == nil {
				streams.Add(ctx, res)
				stats.called++
			}
		} else if err == nil {
			stats.lowDepth++
		}
		if rerr := rs.Remove(ctx); rerr != nil {
			log.Error.Printf("remove %s: %v", rs.Path, rerr)
		}
		if err != nil {
			if !p.skippable(err) {
				return err
			}
			stats.toolErrors++
			log.Error.Printf("%v hap %v: skipping: %v", iv, rs.Label, err)
		}
	}
	return nil
}
