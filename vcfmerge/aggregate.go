package vcfmerge

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/brentp/vcfgo"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/phasedsv/interval"
	"github.com/grailbio/phasedsv/svcall"
)

// Streams collects the call-result files of one chromosome, per label.
// Thread compatible.
type Streams struct {
	Chrom string
	paths map[interval.Label][]string
}

// NewStreams creates an empty accumulator for chrom.
func NewStreams(chrom string) *Streams {
	return &Streams{Chrom: chrom, paths: map[interval.Label][]string{}}
}

// Add appends a call result to the stream of its label.  A result with no
// records is deleted instead.
func (s *Streams) Add(ctx context.Context, r svcall.Result) {
	if r.NRecords == 0 {
		removeFiles(ctx, r.Path)
		return
	}
	s.paths[r.Label] = append(s.paths[r.Label], r.Path)
}

// Paths returns the files added for label, in the order they were added.
func (s *Streams) Paths(label interval.Label) []string {
	return s.paths[label]
}

// Remove deletes every file in the accumulator.
func (s *Streams) Remove(ctx context.Context) {
	for _, label := range interval.Labels {
		removeFiles(ctx, s.paths[label]...)
	}
	s.paths = map[interval.Label][]string{}
}

func removeFiles(ctx context.Context, paths ...string) {
	for _, path := range paths {
		if err := file.Remove(ctx, path); err != nil {
			log.Error.Printf("remove %s: %v", path, err)
		}
	}
}

// Aggregator merges call-result streams.
type Aggregator struct {
	Concat Concatenator
	// Dir receives the intermediate chromosome-level files.
	Dir string
}

// FinishChrom concatenates and sorts each label stream of s, then merges the
// label streams into one chromosome-level VCF, which it returns.  It returns
// "" if s holds no records.  The files of s are consumed.
func (a *Aggregator) FinishChrom(ctx context.Context, s *Streams) (string, error) {
	defer s.Remove(ctx)
	var perLabel []string
	defer func() { removeFiles(ctx, perLabel...) }()
	for _, label := range interval.Labels {
		paths := s.Paths(label)
		if len(paths) == 0 {
			continue
		}
		out := filepath.Join(a.Dir, fmt.Sprintf("%s.h%s.vcf", s.Chrom, label))
		if err := a.Concat.Concat(ctx, paths, out); err != nil {
			return "", err
		}
		perLabel = append(perLabel, out)
	}
	if len(perLabel) == 0 {
		log.Printf("%s: no calls", s.Chrom)
		return "", nil
	}
	out := filepath.Join(a.Dir, s.Chrom+".vcf")
	n, err := Merge(ctx, perLabel, out)
	if err != nil {
		removeFiles(ctx, out)
		return "", err
	}
	log.Printf("%s: %d calls from %d streams", s.Chrom, n, len(perLabel))
	return out, nil
}

func isLocal(path string) bool {
	return !strings.Contains(path, "://")
}

// Finish concatenates the chromosome-level VCFs into output, sorted by
// coordinate, and removes them.  Empty entries are skipped.  If no input
// remains, output holds just a VCF header naming sample.
func (a *Aggregator) Finish(ctx context.Context, chromVCFs []string, output, sample string) error {
	var inputs []string
	for _, path := range chromVCFs {
		if path != "" {
			inputs = append(inputs, path)
		}
	}
	defer removeFiles(ctx, inputs...)
	if len(inputs) == 0 {
		log.Printf("no calls; writing an empty %s", output)
		return WriteEmpty(ctx, output, sample)
	}
	if isLocal(output) {
		return a.Concat.Concat(ctx, inputs, output)
	}
	ext := filepath.Ext(output)
	if outputType(output) == "z" {
		ext = ".vcf.gz"
	}
	local := filepath.Join(a.Dir, "final"+ext)
	defer removeFiles(ctx, local)
	if err := a.Concat.Concat(ctx, inputs, local); err != nil {
		return err
	}
	return Copy(ctx, local, output)
}

// WriteEmpty writes a VCF with a header and no records to path.  A path
// ending in .vcf.gz is bgzipped.
func WriteEmpty(ctx context.Context, path, sample string) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, "close", path)
		}
	}()
	h := vcfgo.NewHeader()
	h.FileFormat = "4.2"
	svcall.AddInfoHeaders(h)
	if sample != "" {
		h.SampleNames = []string{sample}
	}
	if outputType(path) != "z" {
		_, err = vcfgo.NewWriter(out.Writer(ctx), h)
		return err
	}
	bw := bgzf.NewWriter(out.Writer(ctx), 1)
	if _, err = vcfgo.NewWriter(bw, h); err != nil {
		return err
	}
	return bw.Close()
}

// Copy copies src to dst; either may be a remote path.
func Copy(ctx context.Context, src, dst string) (err error) {
	in, err := file.Open(ctx, src)
	if err != nil {
		return errors.E(err, "open", src)
	}
	defer in.Close(ctx) // nolint: errcheck
	out, err := file.Create(ctx, dst)
	if err != nil {
		return errors.E(err, "create", dst)
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, "close", dst)
		}
	}()
	if _, err = io.Copy(out.Writer(ctx), in.Reader(ctx)); err != nil {
		return errors.E(err, "copy", src, dst)
	}
	return nil
}
