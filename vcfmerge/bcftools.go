package vcfmerge

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/phasedsv/exttool"
)

// Concatenator concatenates VCF files into one coordinate-sorted file.
type Concatenator interface {
	// Concat writes the records of inputs, sorted by coordinate, to output.
	// Overlapping inputs are allowed.  len(inputs) must be positive.
	Concat(ctx context.Context, inputs []string, output string) error
}

// BCFTools implements Concatenator with bcftools.  Each input is first
// bgzipped and indexed (bcftools sort -Oz; bcftools index), since "concat -a"
// requires it; the inputs are then joined with "bcftools concat -a" and
// sorted into output.
type BCFTools struct {
	Invoker exttool.Invoker
	// Tool is the name passed to Invoker.Run.
	Tool string
	// Threads is passed as --threads to concat if positive.
	Threads int
	// TempDir holds the intermediate files of each call, in a directory of
	// their own that is removed when the call returns.  Defaults to
	// os.TempDir().
	TempDir string
}

// outputType returns the bcftools -O value matching the file name.
func outputType(path string) string {
	switch {
	case strings.HasSuffix(path, ".vcf.gz"):
		return "z"
	case strings.HasSuffix(path, ".bcf"):
		return "b"
	}
	return "v"
}

// Concat implements Concatenator.
func (b *BCFTools) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return errors.E(errors.Invalid, "bcftools concat: no inputs for", output)
	}
	dir, err := ioutil.TempDir(b.TempDir, "bcftools")
	if err != nil {
		return errors.E(err, "create bcftools work dir")
	}
	defer os.RemoveAll(dir) // nolint: errcheck
	gzs := make([]string, len(inputs))
	for i, in := range inputs {
		gzs[i] = filepath.Join(dir, fmt.Sprintf("in%d.vcf.gz", i))
		if err := b.Invoker.Run(ctx, b.Tool, "sort", "-Oz", "-o", gzs[i], in); err != nil {
			return err
		}
		if err := b.Invoker.Run(ctx, b.Tool, "index", "-f", gzs[i]); err != nil {
			return err
		}
	}
	concat := filepath.Join(dir, "concat.vcf")
	args := []string{"concat", "-a", "-Ov", "-o", concat}
	if b.Threads > 0 {
		args = append(args, "--threads", fmt.Sprint(b.Threads))
	}
	if err := b.Invoker.Run(ctx, b.Tool, append(args, gzs...)...); err != nil {
		return err
	}
	return b.Invoker.Run(ctx, b.Tool, "sort", "-O"+outputType(output), "-o", output, concat)
}
