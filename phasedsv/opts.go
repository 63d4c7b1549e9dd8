package phasedsv

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/phasedsv/coverage"
	"github.com/grailbio/phasedsv/encoding/bamprovider"
	"github.com/grailbio/phasedsv/svcall"
)

// Tool-failure policies.
const (
	// OnToolErrorAbort makes a failed external tool fail the run.
	OnToolErrorAbort = "abort"
	// OnToolErrorSkip drops the interval haplotype whose tool failed, and
	// continues.
	OnToolErrorSkip = "skip"
)

// Opts configures a run.
type Opts struct {
	// BamIndexPath is the BAM index.  Defaults to the BAM path + ".bai".
	BamIndexPath string
	// TempDir is the parent of the run's scratch directory.  Defaults to
	// os.TempDir().
	TempDir string
	// KeepTemp retains the scratch directory after the run.
	KeepTemp bool

	// MinDepth is the smallest mean depth at which a read-set is called.
	MinDepth float64
	// MinHomoAF and MinHetAF are the caller's genotyping thresholds.
	MinHomoAF float64
	MinHetAF  float64
	// MinSupport is the caller's minimum read support on unphased
	// read-sets, and PhasedMinSupport on phased ones.  Zero keeps the caller's
	// default.
	MinSupport       int
	PhasedMinSupport int
	// SampleName names the sample column of the output.  Defaults to the SM
	// of the first read group, or the BAM file name.
	SampleName string

	// Chroms is a comma-separated list of chromosomes to process.  Empty
	// means all, in header order.
	Chroms string
	// Parallelism is the number of chromosomes processed concurrently.
	Parallelism int
	// LegacyComplement selects interval.ComplementSharedStart to compute the
	// unphased intervals.
	LegacyComplement bool

	// OnToolError is OnToolErrorAbort or OnToolErrorSkip.
	OnToolError string
	// ToolTimeout bounds each external tool invocation; zero means none.
	ToolTimeout time.Duration
	// ToolRetries is the number of times a failed invocation is retried.
	ToolRetries int
	// Threads is passed to the external tools that accept a thread count.
	Threads int

	// Binaries of the external tools.
	Mosdepth string
	Sniffles string
	BCFTools string
}

// DefaultOpts holds the default options.
var DefaultOpts = Opts{
	MinDepth:    coverage.DefaultMinDepth,
	MinHomoAF:   svcall.DefaultMinHomoAF,
	MinHetAF:    svcall.DefaultMinHetAF,
	Parallelism: 1,
	OnToolError: OnToolErrorAbort,
	Mosdepth:    "mosdepth",
	Sniffles:    "sniffles",
	BCFTools:    "bcftools",
}

// Validate checks the option values.
func (o *Opts) Validate() error {
	switch o.OnToolError {
	case OnToolErrorAbort, OnToolErrorSkip:
	default:
		return errors.E(errors.Invalid, fmt.Sprintf("on-tool-error must be %q or %q, not %q", OnToolErrorAbort, OnToolErrorSkip, o.OnToolError))
	}
	if o.MinDepth < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("negative min depth %v", o.MinDepth))
	}
	if o.MinHetAF < 0 || o.MinHetAF > o.MinHomoAF || o.MinHomoAF > 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("allele frequency thresholds must satisfy 0 <= het (%v) <= homo (%v) <= 1", o.MinHetAF, o.MinHomoAF))
	}
	if o.MinSupport < 0 || o.PhasedMinSupport < 0 || o.ToolRetries < 0 || o.Threads < 0 {
		return errors.E(errors.Invalid, "support, retry and thread counts must be nonnegative")
	}
	return nil
}

// selectRefs returns the references of header named in chroms (comma
// separated), in the order given, or every reference if chroms is empty.
func selectRefs(header *sam.Header, chroms string) ([]*sam.Reference, error) {
	if chroms == "" {
		return header.Refs(), nil
	}
	var refs []*sam.Reference
	seen := map[string]bool{}
	for _, name := range strings.Split(chroms, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		ref := bamprovider.RefByName(header, name)
		if ref == nil {
			return nil, errors.E(errors.NotExist, fmt.Sprintf("chromosome %s not in the BAM header", name))
		}
		seen[name] = true
		refs = append(refs, ref)
	}
	return refs, nil
}

// DefaultSampleName returns the SM tag of the first read group of header that
// has one, or else the base name of bamPath without its extension, or else "".
func DefaultSampleName(header *sam.Header, bamPath string) string {
	for _, rg := range header.RGs() {
		if name := rg.Get(sam.NewTag("SM")); name != "" {
			return name
		}
	}
	if bamPath == "" {
		return ""
	}
	base := filepath.Base(bamPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
