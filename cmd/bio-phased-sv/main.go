// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/phasedsv/phasedsv"
)

var (
	bamPath          = flag.String("bam", "", "Phased BAM to call SVs on (required)")
	vcfPath          = flag.String("vcf", "", "Output VCF path (required); a .vcf.gz path is bgzipped")
	bamIndexPath     = flag.String("index", phasedsv.DefaultOpts.BamIndexPath, "Input BAM index path. Defaults to bampath + .bai")
	tempDir          = flag.String("temp-dir", phasedsv.DefaultOpts.TempDir, "Directory to write temporary files to (default os.TempDir())")
	keepTemp         = flag.Bool("keep-temp", phasedsv.DefaultOpts.KeepTemp, "Don't remove temporary files")
	minDepth         = flag.Float64("min-depth", phasedsv.DefaultOpts.MinDepth, "Read-sets with a lower mean depth are not called")
	minHomoAF        = flag.Float64("min-homo-af", phasedsv.DefaultOpts.MinHomoAF, "Minimum allele frequency of a homozygous call")
	minHetAF         = flag.Float64("min-het-af", phasedsv.DefaultOpts.MinHetAF, "Minimum allele frequency of a heterozygous call")
	minSupport       = flag.Int("min-support", phasedsv.DefaultOpts.MinSupport, "Minimum number of supporting reads on unphased intervals; 0 = sniffles default")
	phasedMinSupport = flag.Int("phased-min-support", phasedsv.DefaultOpts.PhasedMinSupport, "Minimum number of supporting reads on phase blocks; 0 = sniffles default")
	sample           = flag.String("sample", phasedsv.DefaultOpts.SampleName, "Output sample name; defaults to the SM of the first read group, or the BAM file name")
	chroms           = flag.String("chroms", phasedsv.DefaultOpts.Chroms, "Comma-separated chromosomes to process; default all")
	parallelism      = flag.Int("parallelism", phasedsv.DefaultOpts.Parallelism, "Number of chromosomes processed concurrently")
	legacyComplement = flag.Bool("legacy-complement", phasedsv.DefaultOpts.LegacyComplement, "Compute unphased intervals from the maximum end of phase blocks sharing a start; fails on other overlaps")
	onToolError      = flag.String("on-tool-error", phasedsv.DefaultOpts.OnToolError, "What to do when mosdepth or sniffles fails: 'abort' or 'skip' the interval haplotype")
	toolTimeout      = flag.Duration("tool-timeout", phasedsv.DefaultOpts.ToolTimeout, "Timeout of each external tool invocation; 0 = none")
	toolRetries      = flag.Int("tool-retries", phasedsv.DefaultOpts.ToolRetries, "Number of times a failed external tool is retried")
	threads          = flag.Int("threads", phasedsv.DefaultOpts.Threads, "Threads passed to mosdepth, sniffles and bcftools; 0 = tool default")
	mosdepth         = flag.String("mosdepth", phasedsv.DefaultOpts.Mosdepth, "mosdepth binary")
	sniffles         = flag.String("sniffles", phasedsv.DefaultOpts.Sniffles, "sniffles binary")
	bcftools         = flag.String("bcftools", phasedsv.DefaultOpts.BCFTools, "bcftools binary")
)

func bioPhasedSVUsage() {
	fmt.Printf("Usage: %s [OPTIONS] -bam phased.bam -vcf out.vcf\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioPhasedSVUsage
	shutdown := grail.Init()
	defer shutdown()

	if *bamPath == "" || *vcfPath == "" {
		log.Fatalf("-bam and -vcf are required")
	}
	if flag.NArg() > 0 {
		log.Fatalf("unexpected positional arguments %v", flag.Args())
	}
	opts := phasedsv.Opts{
		BamIndexPath:     *bamIndexPath,
		TempDir:          *tempDir,
		KeepTemp:         *keepTemp,
		MinDepth:         *minDepth,
		MinHomoAF:        *minHomoAF,
		MinHetAF:         *minHetAF,
		MinSupport:       *minSupport,
		PhasedMinSupport: *phasedMinSupport,
		SampleName:       *sample,
		Chroms:           *chroms,
		Parallelism:      *parallelism,
		LegacyComplement: *legacyComplement,
		OnToolError:      *onToolError,
		ToolTimeout:      *toolTimeout,
		ToolRetries:      *toolRetries,
		Threads:          *threads,
		Mosdepth:         *mosdepth,
		Sniffles:         *sniffles,
		BCFTools:         *bcftools,
	}
	ctx := vcontext.Background()
	if err := phasedsv.SetupAndRun(ctx, *bamPath, *vcfPath, opts); err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
