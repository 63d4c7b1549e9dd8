package phasedsv

import (
	"context"

	"github.com/grailbio/base/log"
	"github.com/grailbio/phasedsv/coverage"
	"github.com/grailbio/phasedsv/encoding/bamprovider"
	"github.com/grailbio/phasedsv/exttool"
	"github.com/grailbio/phasedsv/svcall"
	"github.com/grailbio/phasedsv/vcfmerge"
	"github.com/pkg/errors"
)

// NewRunner returns the exttool.Runner configured by opts.
func NewRunner(opts *Opts) *exttool.Runner {
	return &exttool.Runner{
		Paths: map[string]string{
			"mosdepth": opts.Mosdepth,
			"sniffles": opts.Sniffles,
			"bcftools": opts.BCFTools,
		},
		Timeout: opts.ToolTimeout,
		Retries: opts.ToolRetries,
	}
}

// SetupAndRun runs the pipeline on the BAM file at bamPath with the external
// tools (mosdepth, sniffles and bcftools), writing the calls to outputPath.
func SetupAndRun(ctx context.Context, bamPath, outputPath string, opts Opts) (err error) {
	if err = opts.Validate(); err != nil {
		return err
	}
	runner := NewRunner(&opts)
	if err = runner.Check("mosdepth", "sniffles", "bcftools"); err != nil {
		return errors.Wrap(err, "external tool not found")
	}

	provider := bamprovider.NewProvider(bamPath, bamprovider.ProviderOpts{Index: opts.BamIndexPath})
	defer func() {
		if cerr := provider.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if opts.SampleName == "" {
		header, err := provider.GetHeader()
		if err != nil {
			return errors.Wrapf(err, "read %s", bamPath)
		}
		opts.SampleName = DefaultSampleName(header, bamPath)
	}
	log.Printf("calling %s as sample %s", bamPath, opts.SampleName)

	scratch, err := NewScratch(opts.TempDir, opts.KeepTemp)
	if err != nil {
		return err
	}
	defer scratch.Cleanup()

	p := &PhasedSV{
		Provider: provider,
		Depther: &coverage.Mosdepth{
			Invoker: runner,
			Tool:    "mosdepth",
			Dir:     scratch.Depth,
			Threads: opts.Threads,
		},
		Caller: &svcall.Sniffles{
			Invoker:          runner,
			Tool:             "sniffles",
			TempDir:          scratch.Root,
			MinHomoAF:        opts.MinHomoAF,
			MinHetAF:         opts.MinHetAF,
			MinSupport:       opts.MinSupport,
			PhasedMinSupport: opts.PhasedMinSupport,
			Threads:          opts.Threads,
		},
		Concat: &vcfmerge.BCFTools{
			Invoker: runner,
			Tool:    "bcftools",
			Threads: opts.Threads,
			TempDir: scratch.Root,
		},
		Opts:    opts,
		Scratch: scratch,
	}
	return p.Run(ctx, outputPath)
}
